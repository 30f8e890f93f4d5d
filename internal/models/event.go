package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Event is one sellable inventory row. AvailableTickets only changes inside
// the purchase and release transactions.
type Event struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Date             string          `json:"date"`
	Description      string          `json:"description"`
	Location         string          `json:"location"`
	Category         string          `json:"category"`
	TotalTickets     int             `json:"total_tickets"`
	AvailableTickets int             `json:"available_tickets"`
	Price            decimal.Decimal `json:"price"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// EventInput is the admin create payload.
type EventInput struct {
	Name         string          `json:"name" validate:"required,notblank,max=200"`
	Date         string          `json:"date" validate:"required,eventdate"`
	Description  string          `json:"description" validate:"max=4000"`
	Location     string          `json:"location" validate:"max=200"`
	Category     string          `json:"category" validate:"max=100"`
	TotalTickets int             `json:"total_tickets" validate:"gte=0"`
	Price        decimal.Decimal `json:"price" validate:"gte=0"`
}

// EventUpdate carries the mutable metadata. Nil fields are left unchanged;
// ticket counts are not editable.
type EventUpdate struct {
	Name        *string          `json:"name" validate:"omitempty,notblank,max=200"`
	Date        *string          `json:"date" validate:"omitempty,eventdate"`
	Description *string          `json:"description" validate:"omitempty,max=4000"`
	Location    *string          `json:"location" validate:"omitempty,max=200"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
}

func (u EventUpdate) Empty() bool {
	return u.Name == nil && u.Date == nil && u.Description == nil &&
		u.Location == nil && u.Category == nil && u.Price == nil
}

// EventFilter narrows ListEvents. Zero values mean no filter.
type EventFilter struct {
	Category     string
	FromDate     string
	OnlyUpcoming bool
	Limit        int
	Offset       int
}

// Purchaser identifies who a ticket record belongs to.
type Purchaser struct {
	UserID int64
	Email  string
}

// Booking is the purchase outcome returned to clients.
type Booking struct {
	EventID          int64           `json:"event_id"`
	EventName        string          `json:"event_name"`
	EventDate        string          `json:"event_date"`
	TicketID         int64           `json:"ticket_id"`
	TicketsBooked    int             `json:"tickets_booked"`
	RemainingTickets int             `json:"remaining_tickets"`
	TotalPrice       decimal.Decimal `json:"total_price"`
}

// Release is the outcome of returning tickets to an event's inventory.
type Release struct {
	EventID          int64 `json:"event_id"`
	TicketsReleased  int   `json:"tickets_released"`
	RemainingTickets int   `json:"remaining_tickets"`
	TotalTickets     int   `json:"total_tickets"`
}

// Ticket is a purchase record. It is never mutated after creation.
type Ticket struct {
	ID             int64           `json:"id"`
	EventID        int64           `json:"event_id"`
	EventName      string          `json:"event_name"`
	EventDate      string          `json:"event_date"`
	UserID         int64           `json:"user_id"`
	PurchaserEmail string          `json:"purchaser_email"`
	Quantity       int             `json:"quantity"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	PurchasedAt    time.Time       `json:"purchased_at"`
}
