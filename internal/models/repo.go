package models

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"zombiezen.com/go/sqlite"
)

var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("eventdate", func(fl validator.FieldLevel) bool {
		return ValidEventDate(fl.Field().String(), time.Now())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, err := ParseRole(fl.Field().String())
		return err == nil
	})
	return v
}

// ValidEventDate reports whether s is a YYYY-MM-DD date that is not before
// today's date in UTC.
func ValidEventDate(s string, now time.Time) bool {
	date, err := time.Parse(DateLayout, s)
	if err != nil {
		return false
	}
	today := now.UTC().Truncate(24 * time.Hour)
	return !date.Before(today)
}

// Pool is the connection source the repositories run against.
// *connect.Pool satisfies it.
type Pool interface {
	Take(ctx context.Context) (*sqlite.Conn, error)
	Put(conn *sqlite.Conn)
}

// TicketStore owns the events and tickets tables.
type TicketStore struct {
	pool Pool
}

func NewTicketStore(pool Pool) *TicketStore {
	return &TicketStore{pool: pool}
}

// IdentityStore owns the users, refresh_tokens and password_reset_tokens
// tables.
type IdentityStore struct {
	pool Pool
}

func NewIdentityStore(pool Pool) *IdentityStore {
	return &IdentityStore{pool: pool}
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
