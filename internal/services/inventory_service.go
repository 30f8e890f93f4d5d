package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clemson-tix/tigertix/internal/models"
)

const retryBackoff = 25 * time.Millisecond

// InventoryService is the caller side of the purchase and release
// transactions. The transactions themselves live in the store; this layer
// validates input, applies the retry policy and logs outcomes.
type InventoryService struct {
	events  models.EventsRepo
	logger  *slog.Logger
	retries int
	now     func() time.Time
}

func NewInventoryService(events models.EventsRepo, logger *slog.Logger, retries int) *InventoryService {
	return &InventoryService{
		events:  events,
		logger:  logger,
		retries: max(retries, 0),
		now:     time.Now,
	}
}

// Purchase sells quantity tickets for eventID. Only ErrStoreUnavailable is
// retried; domain failures return on the first attempt.
func (s *InventoryService) Purchase(ctx context.Context, eventID int64, quantity int, purchaser models.Purchaser) (*models.Booking, error) {
	if eventID <= 0 {
		return nil, models.InvalidInput("event_id must be a positive integer")
	}
	if quantity <= 0 {
		return nil, models.InvalidInput("quantity must be a positive integer")
	}

	var (
		booking *models.Booking
		err     error
	)
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			if waitErr := sleepCtx(ctx, time.Duration(attempt)*retryBackoff); waitErr != nil {
				return nil, fmt.Errorf("purchase retry abandoned: %w: %w", waitErr, err)
			}
			s.logger.Warn("retrying purchase",
				"event_id", eventID,
				"attempt", attempt,
				"error", err,
			)
		}
		booking, err = s.events.PurchaseTickets(ctx, eventID, quantity, purchaser, s.now())
		if err == nil || !errors.Is(err, models.ErrStoreUnavailable) {
			break
		}
	}

	if err != nil {
		var short *models.InsufficientInventoryError
		if errors.As(err, &short) {
			s.logger.Info("purchase refused",
				"event_id", eventID,
				"requested", short.Requested,
				"remaining", short.Remaining,
			)
		}
		return nil, err
	}

	s.logger.Info("tickets purchased",
		"event_id", booking.EventID,
		"ticket_id", booking.TicketID,
		"user_id", purchaser.UserID,
		"quantity", booking.TicketsBooked,
		"remaining", booking.RemainingTickets,
	)
	return booking, nil
}

// Release returns quantity tickets to eventID's inventory.
func (s *InventoryService) Release(ctx context.Context, eventID int64, quantity int) (*models.Release, error) {
	if eventID <= 0 {
		return nil, models.InvalidInput("event_id must be a positive integer")
	}
	if quantity <= 0 {
		return nil, models.InvalidInput("quantity must be a positive integer")
	}

	release, err := s.events.ReleaseTickets(ctx, eventID, quantity, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("tickets released",
		"event_id", release.EventID,
		"quantity", release.TicketsReleased,
		"remaining", release.RemainingTickets,
	)
	return release, nil
}

func (s *InventoryService) TicketsForUser(ctx context.Context, userID int64) ([]*models.Ticket, error) {
	return s.events.ListTicketsByUser(ctx, userID)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
