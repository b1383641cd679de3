package types

import "time"

// WebsiteDetailsID is the primary key of the singleton website details row.
const WebsiteDetailsID = 1

type Leader struct {
	Name     string `json:"name" yaml:"name"`
	Role     string `json:"role" yaml:"role"`
	ImageURL string `json:"image_url" yaml:"image_url"`
}

type WebsiteDetails struct {
	ID              int       `db:"id" yaml:"-"`
	VolunteersCount int       `db:"volunteers_count" yaml:"volunteers_count"`
	TrashRemovedLbs int       `db:"trash_removed_lbs" yaml:"trash_removed_lbs"`
	EventsHosted    int       `db:"events_hosted" yaml:"events_hosted"`
	Leadership      []Leader  `db:"leadership" yaml:"leadership"`
	FeaturedEventID *int64    `db:"featured_event_id" yaml:"featured_event_id"`
	AboutMarkdown   string    `db:"about_markdown" yaml:"about_markdown"`
	UpdatedAt       time.Time `db:"updated_at" yaml:"-"`
}

type WebsiteDetailsForm struct {
	VolunteersCount int      `form:"volunteers_count" validate:"min=0"`
	TrashRemovedLbs int      `form:"trash_removed_lbs" validate:"min=0"`
	EventsHosted    int      `form:"events_hosted" validate:"min=0"`
	LeaderNames     []string `form:"leader_name"`
	LeaderRoles     []string `form:"leader_role"`
	LeaderImageURLs []string `form:"leader_image_url"`
	FeaturedEventID *int64   `form:"featured_event_id"`
	AboutMarkdown   string   `form:"about_markdown" validate:"max=20000"`
}

type ContactMessage struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}
