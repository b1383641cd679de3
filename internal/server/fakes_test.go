package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"volunteerhub/internal/auth"
	"volunteerhub/internal/events"
	"volunteerhub/internal/gate"
	"volunteerhub/internal/session"
	"volunteerhub/internal/storage"
	"volunteerhub/pkg/types"

	"github.com/gorilla/securecookie"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

type fakeUsers struct {
	mu          sync.Mutex
	users       map[string]*types.User
	accessCalls int
	created     []*types.User
	statusCalls []types.UserStatus
	roleCalls   []types.Role
}

func newFakeUsers(users ...*types.User) *fakeUsers {
	f := &fakeUsers{users: map[string]*types.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) User(_ context.Context, userID string) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) Access(_ context.Context, userID string) (*types.UserAccess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessCalls++
	u, ok := f.users[userID]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	return &types.UserAccess{Status: u.Status, Role: u.Role}, nil
}

func (f *fakeUsers) All(context.Context) ([]*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) Create(_ context.Context, user *types.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.Status = types.UserStatusPending
	f.created = append(f.created, user)
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsers) UpdateStatus(_ context.Context, userID string, status types.UserStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return types.ErrUserNotFound
	}
	f.statusCalls = append(f.statusCalls, status)
	u.Status = status
	return nil
}

func (f *fakeUsers) UpdateRole(_ context.Context, userID string, role types.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return types.ErrUserNotFound
	}
	f.roleCalls = append(f.roleCalls, role)
	u.Role = role
	return nil
}

type fakeSignups struct {
	signedUp map[int64]bool
	calls    []string
}

func (f *fakeSignups) SignUp(_ context.Context, _ string, eventID int64) (bool, error) {
	f.calls = append(f.calls, "SignUp")
	if f.signedUp[eventID] {
		return false, nil
	}
	f.signedUp[eventID] = true
	return true, nil
}

func (f *fakeSignups) Cancel(_ context.Context, _ string, eventID int64) error {
	f.calls = append(f.calls, "Cancel")
	delete(f.signedUp, eventID)
	return nil
}

func (f *fakeSignups) EventIDsByUser(context.Context, string) (map[int64]bool, error) {
	f.calls = append(f.calls, "EventIDsByUser")
	return f.signedUp, nil
}

func (f *fakeSignups) IsSignedUp(_ context.Context, _ string, eventID int64) (bool, error) {
	f.calls = append(f.calls, "IsSignedUp")
	return f.signedUp[eventID], nil
}

func (f *fakeSignups) Counts(context.Context) (map[int64]int, error) {
	out := map[int64]int{}
	for id := range f.signedUp {
		out[id] = 1
	}
	return out, nil
}

type fakeHours struct {
	values  map[int64]float64
	records []*types.HoursRecord
	upserts int
}

func (f *fakeHours) Upsert(_ context.Context, h *types.VolunteerHours) (*float64, error) {
	f.upserts++
	prev, ok := f.values[h.EventID]
	f.values[h.EventID] = h.Hours
	if !ok {
		return nil, nil
	}
	return &prev, nil
}

func (f *fakeHours) RecordsByUser(context.Context, string) ([]*types.HoursRecord, error) {
	return f.records, nil
}

type fakeWebsite struct {
	details  *types.WebsiteDetails
	messages []*types.ContactMessage
}

func (f *fakeWebsite) Details(context.Context) (*types.WebsiteDetails, error) {
	if f.details == nil {
		return &types.WebsiteDetails{ID: types.WebsiteDetailsID, Leadership: []types.Leader{}}, nil
	}
	return f.details, nil
}

func (f *fakeWebsite) Upsert(_ context.Context, d *types.WebsiteDetails) error {
	f.details = d
	return nil
}

func (f *fakeWebsite) CreateContactMessage(_ context.Context, msg *types.ContactMessage) error {
	msg.ID = "msg-1"
	f.messages = append(f.messages, msg)
	return nil
}

type fakeEvents struct {
	events        []*types.Event
	saveResult    *events.SaveResult
	saveErr       error
	saved         []*types.EventForm
	deleted       []int64
	cleanupCalls  int
	cleanupReport events.CleanupReport
	roster        []*types.SignupRosterEntry
}

func (f *fakeEvents) ListEvents(context.Context) ([]*types.Event, error) {
	return f.events, nil
}

func (f *fakeEvents) Event(_ context.Context, eventID int64) (*types.Event, error) {
	for _, e := range f.events {
		if e.ID == eventID {
			return e, nil
		}
	}
	return nil, types.ErrEventNotFound
}

func (f *fakeEvents) SaveEvent(_ context.Context, form *types.EventForm, _, _ *events.Upload) (*events.SaveResult, error) {
	f.saved = append(f.saved, form)
	return f.saveResult, f.saveErr
}

func (f *fakeEvents) DeleteEvent(_ context.Context, eventID int64) error {
	f.deleted = append(f.deleted, eventID)
	return nil
}

func (f *fakeEvents) CleanupPastEventFiles(context.Context) (*events.CleanupReport, error) {
	f.cleanupCalls++
	report := f.cleanupReport
	return &report, nil
}

func (f *fakeEvents) CreateRecurring(_ context.Context, form *types.EventForm, _, _ *events.Upload) ([]*types.Event, error) {
	f.saved = append(f.saved, form)
	return []*types.Event{{ID: 1}, {ID: 2}}, nil
}

func (f *fakeEvents) Signups(context.Context, int64) ([]*types.SignupRosterEntry, error) {
	return f.roster, nil
}

type fakeAuth struct {
	signInErr  error
	signUpErr  error
	signOuts   []string
	signUpSubs int
}

func (f *fakeAuth) SignIn(context.Context, string, string) (*auth.Tokens, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &auth.Tokens{AccessToken: "token", ExpiresIn: 3600}, nil
}

func (f *fakeAuth) SignUp(context.Context, string, string, string) (string, error) {
	if f.signUpErr != nil {
		return "", f.signUpErr
	}
	f.signUpSubs++
	return "sub-new", nil
}

func (f *fakeAuth) ConfirmSignUp(context.Context, string, string) error {
	return nil
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	f.signOuts = append(f.signOuts, token)
	return nil
}

type fakeNotifier struct {
	statuses []types.UserStatus
	contacts int
}

func (f *fakeNotifier) UserStatusChanged(_ context.Context, _ *types.User, status types.UserStatus) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeNotifier) ContactReceived(context.Context, *types.ContactMessage) error {
	f.contacts++
	return nil
}

type testService struct {
	*Service
	hook     *logtest.Hook
	users    *fakeUsers
	signups  *fakeSignups
	hours    *fakeHours
	website  *fakeWebsite
	events   *fakeEvents
	auth     *fakeAuth
	notifier *fakeNotifier
}

func newTestService(t *testing.T, users ...*types.User) *testService {
	t.Helper()

	logger, hook := logtest.NewNullLogger()

	templates, err := loadTemplates()
	require.NoError(t, err)

	ts := &testService{
		hook:     hook,
		users:    newFakeUsers(users...),
		signups:  &fakeSignups{signedUp: map[int64]bool{}},
		hours:    &fakeHours{values: map[int64]float64{}},
		website:  &fakeWebsite{},
		events:   &fakeEvents{},
		auth:     &fakeAuth{},
		notifier: &fakeNotifier{},
	}

	cookie := securecookie.New(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32))

	ts.Service = &Service{
		logger:    logger,
		config:    &types.Config{Environment: "test"},
		templates: templates,
		users:     ts.users,
		signups:   ts.signups,
		hours:     ts.hours,
		website:   ts.website,
		events:    ts.events,
		auth:      ts.auth,
		notifier:  ts.notifier,
		gallery:   storage.NewMemoryStorage("https://cdn.example.org/gallery"),
		sessions:  session.NewManager(logger, cookie, nil, "", false, 3600),
		gate:      gate.NewEvaluator(logger, ts.users),
		now:       func() time.Time { return testNow },
	}

	return ts
}

func signedIn(userID string) *session.Session {
	return &session.Session{Identity: &session.Identity{ID: userID, Email: userID + "@example.org"}, Token: "tok-" + userID}
}

func approvedUser(id string, role types.Role) *types.User {
	return &types.User{ID: id, FullName: "User " + id, Email: id + "@example.org", Role: role, Status: types.UserStatusApproved}
}
