package periods

import "time"

// PeriodStatus summarises the lock flags for listings.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusLocked PeriodStatus = "LOCKED"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// FiscalPeriod is a date window that can be locked temporarily or closed for good.
type FiscalPeriod struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	IsLocked  bool       `json:"is_locked"`
	IsClosed  bool       `json:"is_closed"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	ClosedBy  *int64     `json:"closed_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Status derives the display status. Closed wins over locked.
func (p FiscalPeriod) Status() PeriodStatus {
	switch {
	case p.IsClosed:
		return PeriodStatusClosed
	case p.IsLocked:
		return PeriodStatusLocked
	default:
		return PeriodStatusOpen
	}
}

// Contains reports whether date falls inside [StartDate, EndDate], compared by day.
func (p FiscalPeriod) Contains(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(DateOnly(p.StartDate)) && !d.After(DateOnly(p.EndDate))
}

// CreateInput describes a new fiscal period.
type CreateInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	ActorID   int64
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
