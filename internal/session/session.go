package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"volunteerhub/internal"

	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus"
)

// SignedOutFlashTTL is how long the "just signed out" marker survives.
const SignedOutFlashTTL = 10 * time.Second

// Identity is the authenticated principal as issued by the identity provider.
type Identity struct {
	ID    string
	Email string
}

// Session is the resolved auth state of one request.
type Session struct {
	Identity *Identity
	Token    string

	// Loading is set while the signing keys cannot be fetched, so the token
	// could be neither accepted nor rejected.
	Loading bool

	// JustSignedOut is set for a short time after logout.
	JustSignedOut bool
}

func (s *Session) Authenticated() bool {
	return s != nil && s.Identity != nil
}

func (s *Session) UserID() string {
	if !s.Authenticated() {
		return ""
	}
	return s.Identity.ID
}

// KeySource yields the key set tokens are verified against. *jwk.Cache
// satisfies it.
type KeySource interface {
	Lookup(ctx context.Context, url string) (jwk.Set, error)
}

type Manager struct {
	logger  *logrus.Logger
	cookie  *securecookie.SecureCookie
	keys    KeySource
	jwksURL string
	secure  bool
	maxAge  int
}

func NewManager(logger *logrus.Logger, cookie *securecookie.SecureCookie, keys KeySource, jwksURL string, secure bool, maxAge int) *Manager {
	return &Manager{
		logger:  logger,
		cookie:  cookie,
		keys:    keys,
		jwksURL: jwksURL,
		secure:  secure,
		maxAge:  maxAge,
	}
}

// Load resolves the session carried by r. It never fails: anything that
// cannot be verified yields a session without identity.
func (m *Manager) Load(r *http.Request) *Session {
	sess := &Session{JustSignedOut: m.justSignedOut(r)}

	cookie, err := r.Cookie(internal.COOKIE_ACCESS_TOKEN_NAME)
	if err != nil {
		return sess
	}

	var accessToken string
	err = m.cookie.Decode(internal.COOKIE_ACCESS_TOKEN_NAME, cookie.Value, &accessToken)
	if err != nil {
		m.logger.WithError(err).Warn("failed to decrypt access token")
		return sess
	}

	set, err := m.keys.Lookup(r.Context(), m.jwksURL)
	if err != nil {
		m.logger.WithError(err).Error("failed to fetch JWKS")
		sess.Loading = true
		return sess
	}

	identity, err := verify(accessToken, set)
	if err != nil {
		m.logger.WithError(err).Debug("rejected access token")
		return sess
	}

	sess.Identity = identity
	sess.Token = accessToken
	sess.JustSignedOut = false

	return sess
}

func verify(accessToken string, set jwk.Set) (*Identity, error) {
	token, err := jwt.Parse(
		[]byte(accessToken),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	userID, ok := token.Subject()
	if !ok || userID == "" {
		return nil, fmt.Errorf("no user ID in JWT subject claim")
	}

	// Cognito access tokens carry no email claim, only id tokens do
	var email string
	_ = token.Get("email", &email)

	return &Identity{ID: userID, Email: email}, nil
}

// Start stores the provider access token in the encrypted session cookie.
func (m *Manager) Start(w http.ResponseWriter, accessToken string) error {
	encoded, err := m.cookie.Encode(internal.COOKIE_ACCESS_TOKEN_NAME, accessToken)
	if err != nil {
		return fmt.Errorf("failed to encode access token: %w", err)
	}

	http.SetCookie(w, m.newCookie(internal.COOKIE_ACCESS_TOKEN_NAME, encoded, m.maxAge))
	m.clear(w, internal.COOKIE_SIGNED_OUT_NAME)

	return nil
}

// End clears the session cookie and sets the short lived signed out marker.
func (m *Manager) End(w http.ResponseWriter) {
	m.clear(w, internal.COOKIE_ACCESS_TOKEN_NAME)

	encoded, err := m.cookie.Encode(internal.COOKIE_SIGNED_OUT_NAME, time.Now().Add(SignedOutFlashTTL).Unix())
	if err != nil {
		m.logger.WithError(err).Error("failed to encode signed out marker")
		return
	}
	http.SetCookie(w, m.newCookie(internal.COOKIE_SIGNED_OUT_NAME, encoded, int(SignedOutFlashTTL.Seconds())))
}

// SetRedirect remembers where to send the user after login.
func (m *Manager) SetRedirect(w http.ResponseWriter, path string, ttl time.Duration) {
	http.SetCookie(w, m.newCookie(internal.COOKIE_REDIRECT_NAME, path, int(ttl.Seconds())))
}

// PopRedirect returns and clears the remembered post-login path, or fallback.
func (m *Manager) PopRedirect(w http.ResponseWriter, r *http.Request, fallback string) string {
	cookie, err := r.Cookie(internal.COOKIE_REDIRECT_NAME)
	if err != nil || !isLocalPath(cookie.Value) {
		return fallback
	}

	m.clear(w, internal.COOKIE_REDIRECT_NAME)
	return cookie.Value
}

func (m *Manager) justSignedOut(r *http.Request) bool {
	cookie, err := r.Cookie(internal.COOKIE_SIGNED_OUT_NAME)
	if err != nil {
		return false
	}

	var expires int64
	if err := m.cookie.Decode(internal.COOKIE_SIGNED_OUT_NAME, cookie.Value, &expires); err != nil {
		return false
	}

	return time.Now().Unix() < expires
}

func (m *Manager) newCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Manager) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, m.newCookie(name, "", -1))
}

func isLocalPath(p string) bool {
	return len(p) > 0 && p[0] == '/' && (len(p) == 1 || (p[1] != '/' && p[1] != '\\'))
}

type contextKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request session, or an empty session when none was
// attached.
func FromContext(ctx context.Context) *Session {
	s, ok := ctx.Value(contextKey{}).(*Session)
	if !ok || s == nil {
		return &Session{}
	}
	return s
}
