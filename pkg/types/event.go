package types

import (
	"errors"
	"time"
)

var ErrEventNotFound = errors.New("event not found")

const DateLayout = "2006-01-02"

type Event struct {
	ID             int64     `db:"id"`
	Title          string    `db:"title"`
	Description    string    `db:"description"`
	Date           time.Time `db:"event_date"`
	Time           string    `db:"start_time"`
	Location       string    `db:"location"`
	WaiverRequired bool      `db:"waiver_required"`
	WaiverURL      *string   `db:"waiver_url"`
	ImageID        *string   `db:"image_id"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`

	// ImageURL is resolved from the image bucket listing at read time.
	ImageURL string `db:"-"`
}

// IsPast reports whether the event date falls before the calendar day of now.
func (e *Event) IsPast(now time.Time) bool {
	return DateOnly(e.Date).Before(DateOnly(now))
}

// MissingWaiver reports an upcoming event that requires a waiver but has none attached.
func (e *Event) MissingWaiver(now time.Time) bool {
	return e.WaiverRequired && !e.IsPast(now) && (e.WaiverURL == nil || *e.WaiverURL == "")
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EventForm is the admin event editor payload.
type EventForm struct {
	ID             *int64 `form:"id"`
	Title          string `form:"title" validate:"required,max=200"`
	Description    string `form:"description" validate:"max=10000"`
	Date           string `form:"date" validate:"required,datetime=2006-01-02"`
	Time           string `form:"time" validate:"required,max=32"`
	Location       string `form:"location" validate:"required,max=300"`
	WaiverRequired bool   `form:"waiver_required"`
	WaiverURL      string `form:"waiver_url" validate:"omitempty,url"`
	ImageID        string `form:"image_id"`
	OriginalDate   string `form:"original_date" validate:"omitempty,datetime=2006-01-02"`
	Recurrence     string `form:"recurrence" validate:"max=200"`
}

type SignupStatus string

const (
	SignupStatusSignedUp SignupStatus = "SIGNED_UP"
)

type EventSignup struct {
	ID        string       `db:"id"`
	UserID    string       `db:"user_id"`
	EventID   int64        `db:"event_id"`
	Status    SignupStatus `db:"status"`
	CreatedAt time.Time    `db:"created_at"`
}

type VolunteerHours struct {
	EventID   int64     `db:"event_id"`
	UserID    string    `db:"user_id"`
	Hours     float64   `db:"hours"`
	UpdatedAt time.Time `db:"updated_at"`
}

const MaxHoursPerSave = 24

// HoursRecord is one signed-up event of a volunteer with the hours logged against it.
type HoursRecord struct {
	EventID   int64     `db:"event_id"`
	Title     string    `db:"title"`
	EventDate time.Time `db:"event_date"`
	Hours     *float64  `db:"hours"`
}

// SignupRosterEntry is a volunteer signed up for an event.
type SignupRosterEntry struct {
	User
	SignedUpAt time.Time `db:"signed_up_at"`
}
