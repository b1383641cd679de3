// Package gate decides where a request for a protected page may go, based on
// the session and the user's approval status and role.
package gate

import (
	"context"
	"strings"
	"time"

	"volunteerhub/internal/session"
	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	PathHome       = "/"
	PathDashboard  = "/dashboard"
	PathAdmin      = "/admin"
	PathPending    = "/pending"
	PathNotAllowed = "/not-allowed"
)

var ProtectedPaths = []string{PathDashboard, PathAdmin, PathPending}

const lookupTimeout = 5 * time.Second

type Decision int

const (
	Allow Decision = iota
	Wait
	RedirectNotAllowed
	RedirectPending
	RedirectDashboard
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Wait:
		return "wait"
	case RedirectNotAllowed:
		return "redirect_not_allowed"
	case RedirectPending:
		return "redirect_pending"
	case RedirectDashboard:
		return "redirect_dashboard"
	case RedirectHome:
		return "redirect_home"
	}
	return "unknown"
}

// Target is the redirect location, empty for Allow and Wait.
func (d Decision) Target() string {
	switch d {
	case RedirectNotAllowed:
		return PathNotAllowed
	case RedirectPending:
		return PathPending
	case RedirectDashboard:
		return PathDashboard
	case RedirectHome:
		return PathHome
	case Allow, Wait:
		return ""
	}
	return ""
}

func (d Decision) Redirects() bool {
	return d.Target() != ""
}

// IsProtected reports whether path is one of ProtectedPaths or below one.
func IsProtected(path string) bool {
	for _, p := range ProtectedPaths {
		if under(path, p) {
			return true
		}
	}
	return false
}

func IsAdminPath(path string) bool {
	return under(path, PathAdmin)
}

func under(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+"/")
}

// Decide applies the access rules in priority order. access and lookupErr are
// only consulted once an identity is present.
func Decide(path string, sess *session.Session, access *types.UserAccess, lookupErr error) Decision {
	if !IsProtected(path) {
		return Allow
	}

	if sess != nil && sess.Loading {
		return Wait
	}

	if !sess.Authenticated() {
		if sess != nil && sess.JustSignedOut {
			return RedirectHome
		}
		return guard(path, RedirectNotAllowed)
	}

	if lookupErr != nil || access == nil {
		return guard(path, RedirectNotAllowed)
	}

	if !access.Approved() {
		return guard(path, RedirectPending)
	}

	if IsAdminPath(path) && !access.IsAdmin() {
		return guard(path, RedirectNotAllowed)
	}

	if under(path, PathPending) {
		return RedirectDashboard
	}

	return Allow
}

// guard drops a redirect that would land on the current page.
func guard(path string, d Decision) Decision {
	if path == d.Target() {
		return Allow
	}
	return d
}

// UserLookup fetches the access fields of a user record.
type UserLookup interface {
	Access(ctx context.Context, userID string) (*types.UserAccess, error)
}

// Evaluator runs Decide once per request, fetching the user record only when
// the rules need it. Concurrent lookups for one user share a single fetch.
type Evaluator struct {
	logger *logrus.Logger
	users  UserLookup
	group  singleflight.Group
}

func NewEvaluator(logger *logrus.Logger, users UserLookup) *Evaluator {
	return &Evaluator{logger: logger, users: users}
}

// Evaluate returns the decision for path together with the fetched access
// record, which is nil whenever no lookup was needed or it failed.
func (e *Evaluator) Evaluate(ctx context.Context, path string, sess *session.Session) (Decision, *types.UserAccess) {
	if !IsProtected(path) || sess == nil || sess.Loading || !sess.Authenticated() {
		return Decide(path, sess, nil, nil), nil
	}

	access, err := e.lookup(ctx, sess.UserID())
	if err != nil {
		e.logger.WithError(err).WithField("user_id", sess.UserID()).Warn("access lookup failed")
	}

	d := Decide(path, sess, access, err)
	if d.Redirects() {
		e.logger.WithFields(logrus.Fields{
			"user_id":  sess.UserID(),
			"path":     path,
			"decision": d.String(),
		}).Debug("access gate redirect")
	}

	return d, access
}

func (e *Evaluator) lookup(ctx context.Context, userID string) (*types.UserAccess, error) {
	v, err, _ := e.group.Do(userID, func() (any, error) {
		// detached so one caller going away does not fail the others
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		return e.users.Access(lctx, userID)
	})
	if err != nil {
		return nil, err
	}

	shared, _ := v.(*types.UserAccess)
	if shared == nil {
		return nil, nil
	}

	access := *shared
	return &access, nil
}
