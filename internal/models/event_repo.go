package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type EventsRepo interface {
	CreateEvent(ctx context.Context, in *EventInput, now time.Time) (*Event, error)
	GetEvent(ctx context.Context, id int64) (*Event, error)
	FindEventByName(ctx context.Context, name string) (*Event, error)
	ListEvents(ctx context.Context, filter EventFilter, now time.Time) ([]*Event, error)
	UpdateEvent(ctx context.Context, id int64, upd *EventUpdate, now time.Time) (*Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	PurchaseTickets(ctx context.Context, eventID int64, quantity int, purchaser Purchaser, now time.Time) (*Booking, error)
	ReleaseTickets(ctx context.Context, eventID int64, quantity int, now time.Time) (*Release, error)
	ListTicketsByUser(ctx context.Context, userID int64) ([]*Ticket, error)
}

const eventColumns = `id, name, date, description, location, category,
	total_tickets, available_tickets, price, created_at, updated_at`

const defaultEventLimit = 100

func scanEvent(stmt *sqlite.Stmt) (*Event, error) {
	price, err := decimal.NewFromString(stmt.ColumnText(8))
	if err != nil {
		return nil, fmt.Errorf("event %d: bad price %q: %w", stmt.ColumnInt64(0), stmt.ColumnText(8), err)
	}
	return &Event{
		ID:               stmt.ColumnInt64(0),
		Name:             stmt.ColumnText(1),
		Date:             stmt.ColumnText(2),
		Description:      stmt.ColumnText(3),
		Location:         stmt.ColumnText(4),
		Category:         stmt.ColumnText(5),
		TotalTickets:     stmt.ColumnInt(6),
		AvailableTickets: stmt.ColumnInt(7),
		Price:            price,
		CreatedAt:        unixTime(stmt.ColumnInt64(9)),
		UpdatedAt:        unixTime(stmt.ColumnInt64(10)),
	}, nil
}

func queryEvents(conn *sqlite.Conn, query string, args ...any) ([]*Event, error) {
	var events []*Event
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			event, err := scanEvent(stmt)
			if err != nil {
				return err
			}
			events = append(events, event)
			return nil
		},
	})
	return events, err
}

// loadEvent reads one event on conn, inside whatever transaction the caller
// holds.
func loadEvent(conn *sqlite.Conn, id int64) (*Event, error) {
	events, err := queryEvents(conn, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	if err != nil {
		return nil, storeUnavailable("load event", err)
	}
	if len(events) == 0 {
		return nil, ErrEventNotFound
	}
	return events[0], nil
}

func (s *TicketStore) CreateEvent(ctx context.Context, in *EventInput, now time.Time) (*Event, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, storeUnavailable("create event", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO events (name, date, description, location, category,
			total_tickets, available_tickets, price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				strings.TrimSpace(in.Name), in.Date, in.Description, in.Location, in.Category,
				in.TotalTickets, in.TotalTickets, in.Price.String(), now.Unix(), now.Unix(),
			},
		})
	if err != nil {
		if sqlite.ErrCode(err).ToPrimary() == sqlite.ResultConstraint {
			return nil, InvalidInput("event violates a store constraint")
		}
		return nil, storeUnavailable("create event", err)
	}

	return loadEvent(conn, conn.LastInsertRowID())
}

func (s *TicketStore) GetEvent(ctx context.Context, id int64) (*Event, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, storeUnavailable("get event", err)
	}
	defer s.pool.Put(conn)

	return loadEvent(conn, id)
}

// FindEventByName prefers an exact case-insensitive match and falls back to
// the earliest-dated event whose name contains name.
func (s *TicketStore) FindEventByName(ctx context.Context, name string) (*Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEventNotFound
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, storeUnavailable("find event", err)
	}
	defer s.pool.Put(conn)

	events, err := queryEvents(conn,
		"SELECT "+eventColumns+" FROM events WHERE name = ? COLLATE NOCASE ORDER BY date, id LIMIT 1",
		name)
	if err != nil {
		return nil, storeUnavailable("find event", err)
	}
	if len(events) == 0 {
		pattern := "%" + escapeLike(name) + "%"
		events, err = queryEvents(conn,
			"SELECT "+eventColumns+` FROM events WHERE name LIKE ? ESCAPE '\' ORDER BY date, id LIMIT 1`,
			pattern)
		if err != nil {
			return nil, storeUnavailable("find event", err)
		}
	}
	if len(events) == 0 {
		return nil, ErrEventNotFound
	}
	return events[0], nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *TicketStore) ListEvents(ctx context.Context, filter EventFilter, now time.Time) ([]*Event, error) {
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		where = append(where, "category = ? COLLATE NOCASE")
		args = append(args, filter.Category)
	}
	if filter.FromDate != "" {
		where = append(where, "date >= ?")
		args = append(args, filter.FromDate)
	}
	if filter.OnlyUpcoming {
		where = append(where, "date >= ?")
		args = append(args, now.UTC().Format(DateLayout))
	}

	limit := filter.Limit
	if limit <= 0 || limit > defaultEventLimit {
		limit = defaultEventLimit
	}

	query := "SELECT " + eventColumns + " FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, id LIMIT ? OFFSET ?"
	args = append(args, limit, max(filter.Offset, 0))

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, storeUnavailable("list events", err)
	}
	defer s.pool.Put(conn)

	events, err := queryEvents(conn, query, args...)
	if err != nil {
		return nil, storeUnavailable("list events", err)
	}
	if events == nil {
		events = []*Event{}
	}
	return events, nil
}

// UpdateEvent edits metadata only. Ticket counts are owned by the purchase
// and release transactions.
func (s *TicketStore) UpdateEvent(ctx context.Context, id int64, upd *EventUpdate, now time.Time) (event *Event, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, storeUnavailable("update event", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, storeUnavailable("update event: begin", err)
	}
	defer endTransaction(&err)

	current, err := loadEvent(conn, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		current.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Date != nil {
		current.Date = *upd.Date
	}
	if upd.Description != nil {
		current.Description = *upd.Description
	}
	if upd.Location != nil {
		current.Location = *upd.Location
	}
	if upd.Category != nil {
		current.Category = *upd.Category
	}
	if upd.Price != nil {
		current.Price = *upd.Price
	}

	err = sqlitex.Execute(conn, `
		UPDATE events
		SET name = ?, date = ?, description = ?, location = ?, category = ?, price = ?, updated_at = ?
		WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{
				current.Name, current.Date, current.Description, current.Location,
				current.Category, current.Price.String(), now.Unix(), id,
			},
		})
	if err != nil {
		return nil, storeUnavailable("update event", err)
	}
	if conn.Changes() != 1 {
		return nil, ErrEventNotFound
	}

	return loadEvent(conn, id)
}

// DeleteEvent removes the event; its tickets go with it through the foreign
// key cascade.
func (s *TicketStore) DeleteEvent(ctx context.Context, id int64) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return storeUnavailable("delete event", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "DELETE FROM events WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{id},
	})
	if err != nil {
		return storeUnavailable("delete event", err)
	}
	if conn.Changes() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// PurchaseTickets is the check-and-decrement. The sufficiency check, the
// decrement, the ticket insert and the re-read share one IMMEDIATE
// transaction, so concurrent purchases of the same event serialize on the
// write lock and the loser observes the winner's decrement. Any error rolls
// the transaction back.
func (s *TicketStore) PurchaseTickets(ctx context.Context, eventID int64, quantity int, purchaser Purchaser, now time.Time) (booking *Booking, err error) {
	if quantity <= 0 {
		return nil, InvalidInput("quantity must be a positive integer")
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, storeUnavailable("purchase", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, storeUnavailable("purchase: begin", err)
	}
	defer endTransaction(&err)

	before, err := loadEvent(conn, eventID)
	if err != nil {
		return nil, err
	}
	if before.AvailableTickets < quantity {
		return nil, &InsufficientInventoryError{
			EventID:   eventID,
			Requested: quantity,
			Remaining: before.AvailableTickets,
		}
	}

	err = sqlitex.Execute(conn,
		"UPDATE events SET available_tickets = available_tickets - ?, updated_at = ? WHERE id = ?",
		&sqlitex.ExecOptions{Args: []any{quantity, now.Unix(), eventID}})
	if err != nil {
		return nil, storeUnavailable("purchase: decrement", err)
	}
	if conn.Changes() != 1 {
		return nil, ErrEventNotFound
	}

	totalPrice := before.Price.Mul(decimal.NewFromInt(int64(quantity)))
	err = sqlitex.Execute(conn, `
		INSERT INTO tickets (event_id, user_id, purchaser_email, quantity, total_price, purchased_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{eventID, purchaser.UserID, purchaser.Email, quantity, totalPrice.String(), now.Unix()},
		})
	if err != nil {
		return nil, storeUnavailable("purchase: record ticket", err)
	}
	ticketID := conn.LastInsertRowID()

	after, err := loadEvent(conn, eventID)
	if err != nil {
		return nil, err
	}

	return &Booking{
		EventID:          after.ID,
		EventName:        after.Name,
		EventDate:        after.Date,
		TicketID:         ticketID,
		TicketsBooked:    quantity,
		RemainingTickets: after.AvailableTickets,
		TotalPrice:       totalPrice,
	}, nil
}

// ReleaseTickets returns quantity tickets to inventory under the same
// transactional discipline as PurchaseTickets. It refuses to push
// available_tickets above total_tickets.
func (s *TicketStore) ReleaseTickets(ctx context.Context, eventID int64, quantity int, now time.Time) (release *Release, err error) {
	if quantity <= 0 {
		return nil, InvalidInput("quantity must be a positive integer")
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, storeUnavailable("release", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, storeUnavailable("release: begin", err)
	}
	defer endTransaction(&err)

	before, err := loadEvent(conn, eventID)
	if err != nil {
		return nil, err
	}
	if before.AvailableTickets+quantity > before.TotalTickets {
		return nil, InvalidInput("releasing %d tickets would exceed the %d total for event %d",
			quantity, before.TotalTickets, eventID)
	}

	err = sqlitex.Execute(conn,
		"UPDATE events SET available_tickets = available_tickets + ?, updated_at = ? WHERE id = ?",
		&sqlitex.ExecOptions{Args: []any{quantity, now.Unix(), eventID}})
	if err != nil {
		return nil, storeUnavailable("release: increment", err)
	}
	if conn.Changes() != 1 {
		return nil, ErrEventNotFound
	}

	after, err := loadEvent(conn, eventID)
	if err != nil {
		return nil, err
	}

	return &Release{
		EventID:          after.ID,
		TicketsReleased:  quantity,
		RemainingTickets: after.AvailableTickets,
		TotalTickets:     after.TotalTickets,
	}, nil
}

func (s *TicketStore) ListTicketsByUser(ctx context.Context, userID int64) ([]*Ticket, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, storeUnavailable("list tickets", err)
	}
	defer s.pool.Put(conn)

	tickets := []*Ticket{}
	err = sqlitex.Execute(conn, `
		SELECT t.id, t.event_id, e.name, e.date, t.user_id, t.purchaser_email,
			t.quantity, t.total_price, t.purchased_at
		FROM tickets t
		JOIN events e ON e.id = t.event_id
		WHERE t.user_id = ?
		ORDER BY t.purchased_at DESC, t.id DESC`,
		&sqlitex.ExecOptions{
			Args: []any{userID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				total, err := decimal.NewFromString(stmt.ColumnText(7))
				if err != nil {
					return fmt.Errorf("ticket %d: bad total %q: %w", stmt.ColumnInt64(0), stmt.ColumnText(7), err)
				}
				tickets = append(tickets, &Ticket{
					ID:             stmt.ColumnInt64(0),
					EventID:        stmt.ColumnInt64(1),
					EventName:      stmt.ColumnText(2),
					EventDate:      stmt.ColumnText(3),
					UserID:         stmt.ColumnInt64(4),
					PurchaserEmail: stmt.ColumnText(5),
					Quantity:       stmt.ColumnInt(6),
					TotalPrice:     total,
					PurchasedAt:    unixTime(stmt.ColumnInt64(8)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, storeUnavailable("list tickets", err)
	}
	return tickets, nil
}
