package gate

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"volunteerhub/internal/session"
	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

var (
	anonymous = &session.Session{}
	signedOut = &session.Session{JustSignedOut: true}
	loading   = &session.Session{Loading: true}
	signedIn  = &session.Session{Identity: &session.Identity{ID: "user-1", Email: "a@example.org"}}

	pendingStudent  = &types.UserAccess{Status: types.UserStatusPending, Role: types.RoleStudent}
	rejectedParent  = &types.UserAccess{Status: types.UserStatusRejected, Role: types.RoleParent}
	approvedStudent = &types.UserAccess{Status: types.UserStatusApproved, Role: types.RoleStudent}
	approvedAdmin   = &types.UserAccess{Status: types.UserStatusApproved, Role: types.RoleAdmin}
)

func TestDecideUnprotectedPathsNeverNavigate(t *testing.T) {
	paths := []string{"/", "/about", "/gallery", "/contact", "/login", "/not-allowed", "/dashboards", "/administrator"}
	sessions := []*session.Session{nil, anonymous, signedOut, loading, signedIn}
	accesses := []*types.UserAccess{nil, pendingStudent, approvedStudent, approvedAdmin}

	for _, p := range paths {
		for _, s := range sessions {
			for _, a := range accesses {
				assert.Equal(t, Allow, Decide(p, s, a, nil), p)
				assert.Equal(t, Allow, Decide(p, s, a, errors.New("boom")), p)
			}
		}
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		sess   *session.Session
		access *types.UserAccess
		err    error
		want   Decision
	}{
		{name: "loading waits", path: "/dashboard", sess: loading, want: Wait},
		{name: "anonymous dashboard", path: "/dashboard", sess: anonymous, want: RedirectNotAllowed},
		{name: "anonymous admin subpath", path: "/admin/events/3", sess: anonymous, want: RedirectNotAllowed},
		{name: "nil session", path: "/pending", sess: nil, want: RedirectNotAllowed},
		{name: "just signed out goes home", path: "/dashboard", sess: signedOut, want: RedirectHome},
		{name: "lookup error denies", path: "/dashboard", sess: signedIn, err: errors.New("db down"), want: RedirectNotAllowed},
		{name: "missing record denies", path: "/dashboard", sess: signedIn, want: RedirectNotAllowed},
		{name: "pending to pending page", path: "/dashboard", sess: signedIn, access: pendingStudent, want: RedirectPending},
		{name: "rejected to pending page", path: "/admin", sess: signedIn, access: rejectedParent, want: RedirectPending},
		{name: "pending already on pending page", path: "/pending", sess: signedIn, access: pendingStudent, want: Allow},
		{name: "student on admin", path: "/admin", sess: signedIn, access: approvedStudent, want: RedirectNotAllowed},
		{name: "student on admin subpath", path: "/admin/users", sess: signedIn, access: approvedStudent, want: RedirectNotAllowed},
		{name: "admin on admin", path: "/admin", sess: signedIn, access: approvedAdmin, want: Allow},
		{name: "approved on dashboard", path: "/dashboard", sess: signedIn, access: approvedStudent, want: Allow},
		{name: "approved on pending page", path: "/pending", sess: signedIn, access: approvedStudent, want: RedirectDashboard},
		{name: "approved admin on pending page", path: "/pending", sess: signedIn, access: approvedAdmin, want: RedirectDashboard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.path, tt.sess, tt.access, tt.err))
		})
	}
}

func TestDecideNeverRedirectsToCurrentPage(t *testing.T) {
	sessions := []*session.Session{nil, anonymous, signedOut, loading, signedIn}
	accesses := []*types.UserAccess{nil, pendingStudent, rejectedParent, approvedStudent, approvedAdmin}
	paths := []string{"/dashboard", "/admin", "/pending", "/pending/help", "/not-allowed", "/"}

	for _, p := range paths {
		for _, s := range sessions {
			for _, a := range accesses {
				d := Decide(p, s, a, nil)
				assert.NotEqual(t, p, d.Target(), "path %s decision %s", p, d)

				// following the redirect must settle without a second hop back
				if d.Redirects() {
					next := Decide(d.Target(), s, a, nil)
					assert.NotEqual(t, p, next.Target(), "path %s bounced back via %s", p, d.Target())
				}
			}
		}
	}
}

func TestDecisionTargets(t *testing.T) {
	assert.Equal(t, "/not-allowed", RedirectNotAllowed.Target())
	assert.Equal(t, "/pending", RedirectPending.Target())
	assert.Equal(t, "/dashboard", RedirectDashboard.Target())
	assert.Equal(t, "/", RedirectHome.Target())
	assert.False(t, Allow.Redirects())
	assert.False(t, Wait.Redirects())
	assert.Equal(t, "wait", Wait.String())
}

type blockingLookup struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	access  *types.UserAccess
	err     error
}

func (b *blockingLookup) Access(ctx context.Context, userID string) (*types.UserAccess, error) {
	if b.calls.Add(1) == 1 && b.started != nil {
		close(b.started)
	}
	if b.release != nil {
		<-b.release
	}
	return b.access, b.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestEvaluateSkipsLookupWhenNotNeeded(t *testing.T) {
	users := &blockingLookup{access: approvedAdmin}
	e := NewEvaluator(quietLogger(), users)
	ctx := context.Background()

	d, access := e.Evaluate(ctx, "/about", signedIn)
	assert.Equal(t, Allow, d)
	assert.Nil(t, access)

	d, _ = e.Evaluate(ctx, "/dashboard", anonymous)
	assert.Equal(t, RedirectNotAllowed, d)

	d, _ = e.Evaluate(ctx, "/dashboard", loading)
	assert.Equal(t, Wait, d)

	assert.Equal(t, int32(0), users.calls.Load())
}

func TestEvaluateLooksUpUser(t *testing.T) {
	users := &blockingLookup{access: approvedStudent}
	e := NewEvaluator(quietLogger(), users)

	d, access := e.Evaluate(context.Background(), "/admin", signedIn)
	assert.Equal(t, RedirectNotAllowed, d)
	assert.Equal(t, approvedStudent, access)

	users.access = nil
	users.err = types.ErrUserNotFound
	d, access = e.Evaluate(context.Background(), "/dashboard", signedIn)
	assert.Equal(t, RedirectNotAllowed, d)
	assert.Nil(t, access)
}

func TestEvaluateCollapsesConcurrentLookups(t *testing.T) {
	users := &blockingLookup{
		started: make(chan struct{}),
		release: make(chan struct{}),
		access:  pendingStudent,
	}
	e := NewEvaluator(quietLogger(), users)

	const navigations = 8
	decisions := make([]Decision, navigations)

	var wg sync.WaitGroup
	for i := 0; i < navigations; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i], _ = e.Evaluate(context.Background(), "/dashboard", signedIn)
		}(i)
	}

	<-users.started
	time.Sleep(100 * time.Millisecond)
	close(users.release)
	wg.Wait()

	assert.Equal(t, int32(1), users.calls.Load())
	for _, d := range decisions {
		assert.Equal(t, RedirectPending, d)
	}
}
