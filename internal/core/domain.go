package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO calendar date format used on every boundary.
const DateLayout = "2006-01-02"

// MonthLayout is the bucket label format for month granularity.
const MonthLayout = "2006-01"

const (
	CategoryFood          = "Food"
	CategoryTransport     = "Transport"
	CategoryBills         = "Bills"
	CategoryEducation     = "Education"
	CategoryEntertainment = "Entertainment"
	CategoryShopping      = "Shopping"
	CategoryHealth        = "Health"
	CategoryMisc          = "Misc"
)

// Categories is the recommended category set, in display order.
var Categories = []string{
	CategoryFood,
	CategoryTransport,
	CategoryBills,
	CategoryEducation,
	CategoryEntertainment,
	CategoryShopping,
	CategoryHealth,
	CategoryMisc,
}

type (
	// Date is a calendar date stored at UTC midnight.
	Date struct {
		time.Time
	}

	// DateValue is the date of an expense as the storage collaborator delivered it:
	// either a structured time or an ISO string. Use Normalize before aggregating.
	DateValue struct {
		Time time.Time
		Raw  string
	}

	Expense struct {
		ID          string // assigned by storage, empty before persistence
		UserID      string
		Amount      decimal.Decimal
		Category    string
		Date        DateValue
		Description string
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("amount cannot be negative")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidDate     = errors.New("invalid date")
	ErrMissingOwner    = errors.New("expense has no owner")
	ErrDescriptionSize = errors.New("description too long (max 200 characters)")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM label of the date's month.
func (d Date) MonthKey() string {
	return d.Format(MonthLayout)
}

// DateOf wraps a structured time. Time of day is dropped on normalization.
func DateOf(t time.Time) DateValue {
	return DateValue{Time: t}
}

// DateString wraps an ISO YYYY-MM-DD string.
func DateString(s string) DateValue {
	return DateValue{Raw: s}
}

// Normalize converts the raw representation into a calendar date.
// ok is false when neither a structured time nor a parseable string is present.
func (v DateValue) Normalize() (Date, bool) {
	if !v.Time.IsZero() {
		y, m, d := v.Time.Date()
		return NewDate(y, int(m), d), true
	}
	if v.Raw == "" {
		return Date{}, false
	}
	d, err := ParseDate(v.Raw)
	if err != nil {
		return Date{}, false
	}
	return d, true
}

// String renders the date the way exports and forms show it: YYYY-MM-DD when it
// normalizes, the raw input otherwise.
func (v DateValue) String() string {
	if d, ok := v.Normalize(); ok {
		return d.String()
	}
	return v.Raw
}

// IsKnownCategory reports whether c is one of the recommended categories.
func IsKnownCategory(c string) bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrMissingOwner
	}
	if e.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if _, ok := e.Date.Normalize(); !ok {
		return ErrInvalidDate
	}
	if len(e.Description) > 200 {
		return ErrDescriptionSize
	}
	return nil
}
