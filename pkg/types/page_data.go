package types

import "html/template"

type NavbarData struct {
	IsAuthenticated bool
	IsApproved      bool
	IsAdmin         bool
	UserID          string
	UserEmail       string
}

type NavbarDataSetter interface {
	SetNavbarData(data NavbarData)
	SetCSRFField(field template.HTML)
}

type BasePageData struct {
	Title     string
	Notice    string
	Error     string
	Navbar    NavbarData
	CSRFField template.HTML
}

func (d *BasePageData) SetNavbarData(data NavbarData) {
	d.Navbar = data
}

func (d *BasePageData) SetCSRFField(field template.HTML) {
	d.CSRFField = field
}

type HomePageData struct {
	BasePageData
	Details        *WebsiteDetails
	FeaturedEvent  *Event
	UpcomingEvents []*Event
}

type AboutPageData struct {
	BasePageData
	About      template.HTML
	Leadership []Leader
}

type GalleryPageData struct {
	BasePageData
	Images []string
}

type ContactPageData struct {
	BasePageData
	Name        string
	Email       string
	Message     string
	FieldErrors map[string]string
}

type LoginPageData struct {
	BasePageData
	Email string
}

type SignupPageData struct {
	BasePageData
	Form        SignupForm
	Roles       []Role
	FieldErrors map[string]string
}

type ConfirmSignupPageData struct {
	BasePageData
	Email string
}

type StatusPageData struct {
	BasePageData
	Message string
}

// DashboardEvent is an upcoming event as listed on the volunteer dashboard.
type DashboardEvent struct {
	*Event
	Description template.HTML
	SignedUp    bool
}

type HoursRow struct {
	EventID   int64
	Title     string
	EventDate string
	Hours     *float64
	Editable  bool
}

type ChartBucket struct {
	Label string  `json:"label"`
	Hours float64 `json:"hours"`
}

type DashboardPageData struct {
	BasePageData
	User       *User
	Events     []*DashboardEvent
	HoursRows  []*HoursRow
	Period     string
	Periods    []string
	Chart      []ChartBucket
	ChartJSON  template.JS
	TotalHours float64
	MaxHours   int
}

type AdminUserRow struct {
	*User
	ContactFields []AdminContactField
}

type AdminContactField struct {
	Label string
	Value string
}

type BulkList struct {
	Field UserField
	Value string
}

type AdminEventRow struct {
	*Event
	Signups       int
	IsPast        bool
	MissingWaiver bool
}

type AdminPageData struct {
	BasePageData
	Tab string

	Users        []*AdminUserRow
	RoleFilter   string
	StatusFilter string
	Roles        []Role
	Statuses     []UserStatus
	BulkLists    []BulkList

	Events []*AdminEventRow

	Details *WebsiteDetails
}

type EventEditorPageData struct {
	BasePageData
	Form      EventForm
	ImageURL  string
	IsNew     bool
	Recurring bool
}

type RosterPageData struct {
	BasePageData
	Event   *Event
	Entries []*SignupRosterEntry
	Emails  string
}
