package events

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"volunteerhub/internal/storage"
	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu         sync.Mutex
	events     map[int64]*types.Event
	nextID     int64
	calls      []string
	updateRows *int64
	eventsErr  error
	rpcErr     error
	rpcCalls   int
	cleared    map[int64][2]bool
}

func newFakeStore(events ...*types.Event) *fakeStore {
	f := &fakeStore{events: map[int64]*types.Event{}, nextID: 100, cleared: map[int64][2]bool{}}
	for _, e := range events {
		f.events[e.ID] = e
	}
	return f
}

func (f *fakeStore) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeStore) Events(context.Context) ([]*types.Event, error) {
	f.record("Events")
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	out := make([]*types.Event, 0, len(f.events))
	for _, e := range f.events {
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeStore) Event(_ context.Context, id int64) (*types.Event, error) {
	f.record("Event")
	e, ok := f.events[id]
	if !ok {
		return nil, types.ErrEventNotFound
	}
	c := *e
	return &c, nil
}

func (f *fakeStore) CreateEvent(_ context.Context, e *types.Event) error {
	f.record("CreateEvent")
	f.nextID++
	e.ID = f.nextID
	c := *e
	f.events[e.ID] = &c
	return nil
}

func (f *fakeStore) UpdateEvent(_ context.Context, e *types.Event) (int64, error) {
	f.record("UpdateEvent")
	if f.updateRows != nil {
		return *f.updateRows, nil
	}
	if _, ok := f.events[e.ID]; !ok {
		return 0, nil
	}
	c := *e
	f.events[e.ID] = &c
	return 1, nil
}

func (f *fakeStore) DeleteEvent(_ context.Context, id int64) error {
	f.record("DeleteEvent")
	if _, ok := f.events[id]; !ok {
		return types.ErrEventNotFound
	}
	delete(f.events, id)
	return nil
}

func (f *fakeStore) ClearEventFiles(_ context.Context, id int64, image, waiver bool) error {
	f.record("ClearEventFiles")
	f.cleared[id] = [2]bool{image, waiver}
	return nil
}

func (f *fakeStore) CleanupExpiredImages(context.Context) error {
	f.record("CleanupExpiredImages")
	f.rpcCalls++
	return f.rpcErr
}

type fakeRoster struct {
	entries []*types.SignupRosterEntry
}

func (f *fakeRoster) Roster(context.Context, int64) ([]*types.SignupRosterEntry, error) {
	return f.entries, nil
}

// countingBucket counts every call that reaches storage.
type countingBucket struct {
	*storage.MemoryStorage
	calls int
}

func (c *countingBucket) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	c.calls++
	return c.MemoryStorage.List(ctx, prefix)
}

func (c *countingBucket) Upload(ctx context.Context, name string, body io.Reader, contentType string) (storage.Object, error) {
	c.calls++
	return c.MemoryStorage.Upload(ctx, name, body, contentType)
}

func (c *countingBucket) Remove(ctx context.Context, names ...string) error {
	c.calls++
	return c.MemoryStorage.Remove(ctx, names...)
}

type fixture struct {
	svc     *Service
	store   *fakeStore
	images  *countingBucket
	waivers *countingBucket
}

var today = time.Date(2025, time.June, 15, 13, 30, 0, 0, time.UTC)

func newFixture(events ...*types.Event) *fixture {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		store:   newFakeStore(events...),
		images:  &countingBucket{MemoryStorage: storage.NewMemoryStorage("https://files.example.org/event-images")},
		waivers: &countingBucket{MemoryStorage: storage.NewMemoryStorage("https://files.example.org/waivers")},
	}
	f.svc = NewService(logger, f.store, &fakeRoster{}, f.images, f.waivers)
	f.svc.now = func() time.Time { return today }
	return f
}

func (f *fixture) backendCalls() int {
	return len(f.store.calls) + f.images.calls + f.waivers.calls
}

func (f *fixture) put(t *testing.T, bucket *countingBucket, name string) {
	t.Helper()
	_, err := bucket.MemoryStorage.Upload(context.Background(), name, strings.NewReader("x"), "application/octet-stream")
	require.NoError(t, err)
}

func date(s string) time.Time {
	d, err := time.Parse(types.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func validForm() *types.EventForm {
	return &types.EventForm{
		Title:    "River cleanup",
		Date:     "2025-07-01",
		Time:     "9:00 AM",
		Location: "Riverside Park",
	}
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrValidation)

	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, field, verr.Field)
}

func TestSaveEventRejectsMissingWaiverWithoutBackend(t *testing.T) {
	f := newFixture()

	form := validForm()
	form.WaiverRequired = true

	_, err := f.svc.SaveEvent(context.Background(), form, nil, nil)
	requireValidation(t, err, "waiver")
	assert.Equal(t, 0, f.backendCalls())
}

func TestSaveEventRejectsPastEventMovedForwardWithoutBackend(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name string
		date string
	}{
		{name: "to future", date: "2025-08-01"},
		{name: "to today", date: "2025-06-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			form.ID = utils.Int64Ptr(7)
			form.OriginalDate = "2025-05-01"
			form.Date = tt.date

			_, err := f.svc.SaveEvent(context.Background(), form, nil, nil)
			requireValidation(t, err, "date")
			assert.Equal(t, 0, f.backendCalls())
		})
	}
}

func TestSaveEventUpdateRequiresOriginalDate(t *testing.T) {
	f := newFixture()

	form := validForm()
	form.ID = utils.Int64Ptr(7)
	form.Date = "2025-08-01"

	_, err := f.svc.SaveEvent(context.Background(), form, nil, nil)
	requireValidation(t, err, "original_date")
	assert.Equal(t, 0, f.backendCalls())
}

func TestSaveEventStructValidation(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name   string
		mutate func(*types.EventForm)
		field  string
	}{
		{name: "blank title", mutate: func(e *types.EventForm) { e.Title = "  " }, field: "title"},
		{name: "bad date", mutate: func(e *types.EventForm) { e.Date = "07/01/2025" }, field: "date"},
		{name: "missing location", mutate: func(e *types.EventForm) { e.Location = "" }, field: "location"},
		{name: "bad waiver url", mutate: func(e *types.EventForm) { e.WaiverURL = "not a url" }, field: "waiverurl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(form)

			_, err := f.svc.SaveEvent(context.Background(), form, nil, nil)
			requireValidation(t, err, tt.field)
			assert.Equal(t, 0, f.backendCalls())
		})
	}
}

func TestSaveEventCreatesWithUploads(t *testing.T) {
	f := newFixture()

	form := validForm()
	form.WaiverRequired = true

	waiver := &Upload{FileName: "Waiver.PDF", ContentType: "application/pdf", Body: strings.NewReader("%PDF")}
	image := &Upload{FileName: "river.jpg", ContentType: "image/jpeg", Body: strings.NewReader("jpg")}

	res, err := f.svc.SaveEvent(context.Background(), form, waiver, image)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Empty(t, res.Warning)
	assert.Equal(t, int64(101), res.Event.ID)

	waiverURL := utils.PtrString(res.Event.WaiverURL)
	assert.True(t, strings.HasPrefix(waiverURL, "https://files.example.org/waivers/waivers/"))
	assert.True(t, strings.HasSuffix(waiverURL, ".pdf"))

	imageID := utils.PtrString(res.Event.ImageID)
	assert.True(t, strings.HasPrefix(imageID, "events/"))

	events, err := f.svc.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "https://files.example.org/event-images/"+imageID, events[0].ImageURL)
	assert.Equal(t, waiverURL, utils.PtrString(events[0].WaiverURL))
}

func TestSaveEventExistingWaiverURLSatisfiesRequirement(t *testing.T) {
	existing := &types.Event{ID: 3, Title: "Old", Date: date("2025-07-01")}
	f := newFixture(existing)

	form := validForm()
	form.ID = utils.Int64Ptr(3)
	form.OriginalDate = "2025-07-01"
	form.WaiverRequired = true
	form.WaiverURL = "https://files.example.org/waivers/waivers/a.pdf"

	res, err := f.svc.SaveEvent(context.Background(), form, nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Empty(t, res.Warning)
	assert.Equal(t, "River cleanup", f.store.events[3].Title)
}

func TestSaveEventPastEventMayStayInPast(t *testing.T) {
	f := newFixture(&types.Event{ID: 4, Title: "Spring", Date: date("2025-04-01")})

	form := validForm()
	form.ID = utils.Int64Ptr(4)
	form.OriginalDate = "2025-04-01"
	form.Date = "2025-04-02"

	_, err := f.svc.SaveEvent(context.Background(), form, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, date("2025-04-02"), f.store.events[4].Date)
}

func TestSaveEventUpdateMatchingNoRowWarns(t *testing.T) {
	f := newFixture()
	zero := int64(0)
	f.store.updateRows = &zero

	form := validForm()
	form.ID = utils.Int64Ptr(42)
	form.OriginalDate = "2025-07-01"

	res, err := f.svc.SaveEvent(context.Background(), form, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Warning, "42")
	assert.Equal(t, []string{"UpdateEvent"}, f.store.calls)
}

func TestListEventsEmpty(t *testing.T) {
	f := newFixture()

	events, err := f.svc.ListEvents(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
	assert.Equal(t, 0, f.images.calls+f.waivers.calls)
}

func TestListEventsResolvesFiles(t *testing.T) {
	f := newFixture(
		&types.Event{ID: 1, Title: "A", Date: date("2025-07-01"), ImageID: utils.StringPtr("events/a.png"),
			WaiverURL: utils.StringPtr("https://files.example.org/waivers/waivers/a.pdf")},
		&types.Event{ID: 2, Title: "B", Date: date("2025-08-01"), ImageID: utils.StringPtr("events/missing.png"),
			WaiverURL: utils.StringPtr("https://files.example.org/waivers/waivers/gone.pdf")},
		&types.Event{ID: 3, Title: "C", Date: date("2025-09-01"),
			WaiverURL: utils.StringPtr("https://docs.example.com/waiver.pdf")},
	)
	f.put(t, f.images, "events/a.png")
	f.put(t, f.waivers, "waivers/a.pdf")

	events, err := f.svc.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "https://files.example.org/event-images/events/a.png", events[0].ImageURL)
	assert.Equal(t, "https://files.example.org/waivers/waivers/a.pdf", utils.PtrString(events[0].WaiverURL))

	assert.Empty(t, events[1].ImageURL)
	assert.Nil(t, events[1].WaiverURL)

	assert.Equal(t, "https://docs.example.com/waiver.pdf", utils.PtrString(events[2].WaiverURL))
}

func TestListEventsPropagatesErrors(t *testing.T) {
	f := newFixture()
	f.store.eventsErr = errors.New("connection refused")

	_, err := f.svc.ListEvents(context.Background())
	assert.EqualError(t, err, "connection refused")
}

func TestCleanupPastEventFiles(t *testing.T) {
	f := newFixture(
		&types.Event{ID: 1, Date: date("2025-05-01"), ImageID: utils.StringPtr("events/old.png"),
			WaiverURL: utils.StringPtr("https://files.example.org/waivers/waivers/old.pdf")},
		&types.Event{ID: 2, Date: date("2025-05-02"),
			WaiverURL: utils.StringPtr("https://files.example.org/waivers/waivers/older.pdf")},
		&types.Event{ID: 3, Date: date("2025-07-01"), ImageID: utils.StringPtr("events/new.png")},
		&types.Event{ID: 4, Date: date("2025-05-03")},
	)
	f.put(t, f.images, "events/old.png")
	f.put(t, f.images, "events/new.png")
	f.put(t, f.waivers, "waivers/old.pdf")
	f.put(t, f.waivers, "waivers/older.pdf")
	f.images.RemoveErr = errors.New("permission denied")
	f.store.rpcErr = errors.New("rpc failed")

	report, err := f.svc.CleanupPastEventFiles(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &CleanupReport{EventsScanned: 2, ObjectsRemoved: 2, Failures: 1}, report)
	assert.Equal(t, [2]bool{false, true}, f.store.cleared[1])
	assert.Equal(t, [2]bool{false, true}, f.store.cleared[2])
	assert.NotContains(t, f.store.cleared, int64(3))
	assert.NotContains(t, f.store.cleared, int64(4))
	assert.Equal(t, 1, f.store.rpcCalls)

	waivers, _ := f.waivers.MemoryStorage.List(context.Background(), "")
	assert.Empty(t, waivers)
	images, _ := f.images.MemoryStorage.List(context.Background(), "")
	assert.Len(t, images, 2)
}

func TestCleanupClearsImageAlreadyGone(t *testing.T) {
	f := newFixture(&types.Event{ID: 1, Date: date("2025-01-01"), ImageID: utils.StringPtr("events/vanished.png")})

	report, err := f.svc.CleanupPastEventFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Failures)
	assert.Equal(t, [2]bool{true, false}, f.store.cleared[1])
}

func TestDeleteEventRemovesFiles(t *testing.T) {
	f := newFixture(&types.Event{ID: 9, Date: date("2025-07-01"), ImageID: utils.StringPtr("events/x.png"),
		WaiverURL: utils.StringPtr("https://files.example.org/waivers/waivers/x.pdf")})
	f.put(t, f.images, "events/x.png")
	f.put(t, f.waivers, "waivers/x.pdf")

	require.NoError(t, f.svc.DeleteEvent(context.Background(), 9))
	assert.NotContains(t, f.store.events, int64(9))

	images, _ := f.images.MemoryStorage.List(context.Background(), "")
	waivers, _ := f.waivers.MemoryStorage.List(context.Background(), "")
	assert.Empty(t, images)
	assert.Empty(t, waivers)

	assert.ErrorIs(t, f.svc.DeleteEvent(context.Background(), 9), types.ErrEventNotFound)
}

func TestOccurrences(t *testing.T) {
	start := date("2025-07-05")

	weekly, err := Occurrences("FREQ=WEEKLY;COUNT=4", start)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date("2025-07-05"), date("2025-07-12"), date("2025-07-19"), date("2025-07-26")}, weekly)

	daily, err := Occurrences("RRULE:FREQ=DAILY", start)
	require.NoError(t, err)
	assert.Len(t, daily, MaxOccurrences)

	monthly, err := Occurrences("FREQ=MONTHLY", start)
	require.NoError(t, err)
	assert.Len(t, monthly, 13)

	_, err = Occurrences("FREQ=SOMETIMES", start)
	requireValidation(t, err, "recurrence")

	_, err = Occurrences("", start)
	requireValidation(t, err, "recurrence")
}

func TestCreateRecurring(t *testing.T) {
	f := newFixture()

	form := validForm()
	form.Recurrence = "FREQ=WEEKLY;COUNT=3"
	image := &Upload{FileName: "a.png", ContentType: "image/png", Body: strings.NewReader("png")}

	created, err := f.svc.CreateRecurring(context.Background(), form, nil, image)
	require.NoError(t, err)
	require.Len(t, created, 3)

	assert.Equal(t, date("2025-07-01"), created[0].Date)
	assert.Equal(t, date("2025-07-15"), created[2].Date)
	assert.Equal(t, created[0].ImageID, created[2].ImageID)
	assert.NotEqual(t, created[0].ID, created[1].ID)
	assert.Equal(t, 1, f.images.calls)
}

func TestSignups(t *testing.T) {
	f := newFixture()
	f.svc.roster = &fakeRoster{entries: []*types.SignupRosterEntry{{User: types.User{ID: "u1"}}}}

	roster, err := f.svc.Signups(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, roster, 1)
}
