package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"volunteerhub/internal/auth"
	"volunteerhub/internal/content"
	"volunteerhub/internal/events"
	"volunteerhub/internal/gate"
	"volunteerhub/internal/session"
	"volunteerhub/internal/storage"
	"volunteerhub/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

//go:embed templates static
var uiFS embed.FS
var decoder = form.NewDecoder()
var validate = validator.New()

const requestTimeout = 5 * time.Second

type UserStore interface {
	User(ctx context.Context, userID string) (*types.User, error)
	All(ctx context.Context) ([]*types.User, error)
	Create(ctx context.Context, user *types.User) error
	UpdateStatus(ctx context.Context, userID string, status types.UserStatus) error
	UpdateRole(ctx context.Context, userID string, role types.Role) error
}

type SignupStore interface {
	SignUp(ctx context.Context, userID string, eventID int64) (bool, error)
	Cancel(ctx context.Context, userID string, eventID int64) error
	EventIDsByUser(ctx context.Context, userID string) (map[int64]bool, error)
	IsSignedUp(ctx context.Context, userID string, eventID int64) (bool, error)
	Counts(ctx context.Context) (map[int64]int, error)
}

type HoursStore interface {
	Upsert(ctx context.Context, hours *types.VolunteerHours) (*float64, error)
	RecordsByUser(ctx context.Context, userID string) ([]*types.HoursRecord, error)
}

type WebsiteStore interface {
	Details(ctx context.Context) (*types.WebsiteDetails, error)
	Upsert(ctx context.Context, details *types.WebsiteDetails) error
	CreateContactMessage(ctx context.Context, msg *types.ContactMessage) error
}

type EventService interface {
	ListEvents(ctx context.Context) ([]*types.Event, error)
	Event(ctx context.Context, eventID int64) (*types.Event, error)
	SaveEvent(ctx context.Context, form *types.EventForm, waiver, image *events.Upload) (*events.SaveResult, error)
	DeleteEvent(ctx context.Context, eventID int64) error
	CleanupPastEventFiles(ctx context.Context) (*events.CleanupReport, error)
	CreateRecurring(ctx context.Context, form *types.EventForm, waiver, image *events.Upload) ([]*types.Event, error)
	Signups(ctx context.Context, eventID int64) ([]*types.SignupRosterEntry, error)
}

type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*auth.Tokens, error)
	SignUp(ctx context.Context, email, password, fullName string) (string, error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	SignOut(ctx context.Context, accessToken string) error
}

type Notifier interface {
	UserStatusChanged(ctx context.Context, user *types.User, status types.UserStatus) error
	ContactReceived(ctx context.Context, msg *types.ContactMessage) error
}

// Deps are the collaborators the HTTP service is built from.
type Deps struct {
	Users    UserStore
	Signups  SignupStore
	Hours    HoursStore
	Website  WebsiteStore
	Events   EventService
	Auth     Authenticator
	Notifier Notifier
	Gallery  storage.Bucket
	Sessions *session.Manager
	Gate     *gate.Evaluator
}

type Service struct {
	logger    *logrus.Logger
	config    *types.Config
	templates *template.Template

	users    UserStore
	signups  SignupStore
	hours    HoursStore
	website  WebsiteStore
	events   EventService
	auth     Authenticator
	notifier Notifier
	gallery  storage.Bucket
	sessions *session.Manager
	gate     *gate.Evaluator

	now func() time.Time

	server *http.Server
}

func New(config *types.Config, logger *logrus.Logger, deps Deps) (*Service, error) {
	mux := flow.New()

	s := &Service{
		logger: logger,
		config: config,

		users:    deps.Users,
		signups:  deps.Signups,
		hours:    deps.Hours,
		website:  deps.Website,
		events:   deps.Events,
		auth:     deps.Auth,
		notifier: deps.Notifier,
		gallery:  deps.Gallery,
		sessions: deps.Sessions,
		gate:     deps.Gate,

		now: time.Now,
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	s.templates = templates

	s.buildRouter(mux)

	csrfMiddleware, err := s.CSRF()
	if err != nil {
		return nil, err
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.ServerPort),
		Handler:           csrfMiddleware(mux),
		ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the routed handler including CSRF protection.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)
	r.Use(s.SessionMiddleware)

	r.HandleFunc("/", s.handleHome, http.MethodGet)
	r.HandleFunc("/about", s.handleAbout, http.MethodGet)
	r.HandleFunc("/gallery", s.handleGallery, http.MethodGet)
	r.HandleFunc("/contact", s.handleGetContact, http.MethodGet)
	r.HandleFunc("/contact", s.handlePostContact, http.MethodPost)
	r.HandleFunc("/not-allowed", s.handleNotAllowed, http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/signup", s.handleGetSignup, http.MethodGet)
	r.HandleFunc("/signup", s.handlePostSignup, http.MethodPost)
	r.HandleFunc("/signup/confirm", s.handleGetSignupConfirm, http.MethodGet)
	r.HandleFunc("/signup/confirm", s.handlePostSignupConfirm, http.MethodPost)
	r.HandleFunc("/login", s.handleGetLogin, http.MethodGet)
	r.HandleFunc("/login", s.handlePostLogin, http.MethodPost)
	r.HandleFunc("/logout", s.handlePostLogout, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.GateMiddleware)

		r.HandleFunc("/pending", s.handlePending, http.MethodGet)

		r.HandleFunc("/dashboard", s.handleDashboard, http.MethodGet)
		r.HandleFunc("/dashboard/hours.json", s.handleDashboardHoursJSON, http.MethodGet)
		r.HandleFunc("/dashboard/events/:eventID/signup", s.handlePostEventSignup, http.MethodPost)
		r.HandleFunc("/dashboard/events/:eventID/cancel", s.handlePostEventCancel, http.MethodPost)
		r.HandleFunc("/dashboard/events/:eventID/hours", s.handlePostHours, http.MethodPost)

		r.HandleFunc("/admin", s.handleAdmin, http.MethodGet)
		r.HandleFunc("/admin/users/:userID/status", s.handlePostUserStatus, http.MethodPost)
		r.HandleFunc("/admin/users/:userID/role", s.handlePostUserRole, http.MethodPost)
		r.HandleFunc("/admin/events/new", s.handleGetEventNew, http.MethodGet)
		r.HandleFunc("/admin/events/recurring", s.handleGetEventRecurring, http.MethodGet)
		r.HandleFunc("/admin/events/recurring", s.handlePostEventRecurring, http.MethodPost)
		r.HandleFunc("/admin/events", s.handlePostEvent, http.MethodPost)
		r.HandleFunc("/admin/events/:eventID", s.handleGetEventEdit, http.MethodGet)
		r.HandleFunc("/admin/events/:eventID/delete", s.handlePostEventDelete, http.MethodPost)
		r.HandleFunc("/admin/events/:eventID/roster", s.handleEventRoster, http.MethodGet)
		r.HandleFunc("/admin/website", s.handlePostWebsite, http.MethodPost)
	})

	staticRoot, err := fs.Sub(uiFS, "static")
	if err != nil {
		s.logger.WithError(err).Fatal("failed to mount static assets")
	}
	r.Handle("/static/...", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))), http.MethodGet)
}

func loadTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"derefOr": func(s *string, defaultVal string) string {
			if s == nil {
				return defaultVal
			}
			return *s
		},
		"derefID": func(id *int64) int64 {
			if id == nil {
				return 0
			}
			return *id
		},
		"hours": func(h *float64) string {
			if h == nil {
				return ""
			}
			return formatHours(*h)
		},
		"fmtHours": formatHours,
		"date": func(t time.Time) string {
			return t.Format("Mon, Jan 2 2006")
		},
		"markdown": content.Markdown,
	}

	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(uiFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		data, err := fs.ReadFile(uiFS, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}

		if _, err := t.Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

func formatHours(h float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", h), "0"), ".")
}
