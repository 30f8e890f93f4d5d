package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/clemson-tix/tigertix/internal/models"
)

type EventService struct {
	events models.EventsRepo
	logger *slog.Logger
	now    func() time.Time
}

func NewEventService(events models.EventsRepo, logger *slog.Logger) *EventService {
	return &EventService{
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

func (es *EventService) CreateEvent(ctx context.Context, in *models.EventInput) (*models.Event, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate(in); err != nil {
		return nil, err
	}

	event, err := es.events.CreateEvent(ctx, in, es.now())
	if err != nil {
		return nil, err
	}
	es.logger.Info("event created", "event_id", event.ID, "total_tickets", event.TotalTickets)
	return event, nil
}

func (es *EventService) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	if id <= 0 {
		return nil, models.InvalidInput("event id must be a positive integer")
	}
	return es.events.GetEvent(ctx, id)
}

// FindEventByName resolves free-text names, as produced by the chat flow.
func (es *EventService) FindEventByName(ctx context.Context, name string) (*models.Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.InvalidInput("event name is required")
	}
	return es.events.FindEventByName(ctx, name)
}

func (es *EventService) ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.Event, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, models.InvalidInput("limit and offset must not be negative")
	}
	return es.events.ListEvents(ctx, filter, es.now())
}

func (es *EventService) UpdateEvent(ctx context.Context, id int64, upd *models.EventUpdate) (*models.Event, error) {
	if id <= 0 {
		return nil, models.InvalidInput("event id must be a positive integer")
	}
	if upd.Empty() {
		return nil, models.InvalidInput("no fields to update")
	}
	if err := validate(upd); err != nil {
		return nil, err
	}

	event, err := es.events.UpdateEvent(ctx, id, upd, es.now())
	if err != nil {
		return nil, err
	}
	es.logger.Info("event updated", "event_id", id)
	return event, nil
}

func (es *EventService) DeleteEvent(ctx context.Context, id int64) error {
	if id <= 0 {
		return models.InvalidInput("event id must be a positive integer")
	}
	if err := es.events.DeleteEvent(ctx, id); err != nil {
		return err
	}
	es.logger.Info("event deleted", "event_id", id)
	return nil
}
