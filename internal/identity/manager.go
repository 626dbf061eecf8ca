// Package identity tracks who is signed in to a learner session and notifies
// subscribers when that changes.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/message"

	"github.com/spbe-academy/devops-academy/internal/activity"
	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/platform/i18n"
	"github.com/spbe-academy/devops-academy/internal/platform/metrics"
	"github.com/spbe-academy/devops-academy/internal/platform/validation"
	"github.com/spbe-academy/devops-academy/internal/store"
)

// Event is an identity state change.
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Listener receives identity events. user is nil after sign-out.
type Listener func(event Event, user *store.User)

// SubscriptionID identifies a listener for Unsubscribe.
type SubscriptionID int

type subscription struct {
	id SubscriptionID
	fn Listener
}

// Session is the token handed to a signed-in client.
type Session struct {
	User      store.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	Provider  string     `json:"provider"`
}

// ManagerConfig holds dependencies for the identity manager.
type ManagerConfig struct {
	Provider Provider
	Tokens   *Tokens
	Activity activity.Logger  // default NopLogger
	Notifier Notifier         // default LogNotifier
	Printer  *message.Printer // default Indonesian
}

// Manager holds the current identity of one learner session.
type Manager struct {
	provider Provider
	tokens   *Tokens
	activity activity.Logger
	notifier Notifier
	printer  *message.Printer

	mu          sync.Mutex
	user        *store.User
	session     *Session
	initialized bool
	listeners   []subscription
	nextID      SubscriptionID
}

// NewManager creates a signed-out identity manager.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Activity
	if logger == nil {
		logger = activity.NopLogger{}
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = LogNotifier{}
	}
	printer := cfg.Printer
	if printer == nil {
		printer = i18n.NewPrinter("id")
	}
	return &Manager{
		provider: cfg.Provider,
		tokens:   cfg.Tokens,
		activity: logger,
		notifier: notifier,
		printer:  printer,
	}
}

// Initialize restores a remembered identity from the provider. Calling it
// again is a no-op.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	u, err := m.provider.Restore(ctx)
	if err != nil {
		slog.Warn("could not restore identity", "provider", m.provider.Name(), "error", err)
	}

	var sess *Session
	if u != nil {
		sess, err = m.issue(*u)
		if err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.initialized = true
	if sess != nil {
		m.user = &sess.User
		m.session = sess
	}
	m.mu.Unlock()

	if sess != nil {
		slog.Info("identity restored", "user_id", sess.User.ID, "provider", m.provider.Name())
		m.emit(EventSignedIn, &sess.User)
	}
	return nil
}

// Subscribe registers fn for identity events, delivered synchronously in
// subscription order. Once the manager is initialized fn is also called
// immediately with the current state.
func (m *Manager) Subscribe(fn Listener) SubscriptionID {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, subscription{id: id, fn: fn})
	initialized := m.initialized
	user := m.userCopy()
	m.mu.Unlock()

	if initialized {
		if user != nil {
			fn(EventSignedIn, user)
		} else {
			fn(EventSignedOut, nil)
		}
	}
	return id
}

// Unsubscribe removes a listener. Unknown IDs are ignored.
func (m *Manager) Unsubscribe(id SubscriptionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.listeners {
		if s.id == id {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// SignUp registers a new learner. The learner still has to sign in.
func (m *Manager) SignUp(ctx context.Context, req SignUpRequest) (store.User, error) {
	u, err := m.provider.SignUp(ctx, req)
	if err != nil {
		return store.User{}, err
	}
	slog.Info("user registered", "user_id", u.ID, "provider", m.provider.Name())
	return u, nil
}

// SignIn authenticates and makes the learner the current identity.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	u, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		metrics.SignIns.WithLabelValues("failure", m.provider.Name()).Inc()
		return nil, err
	}
	metrics.SignIns.WithLabelValues("success", m.provider.Name()).Inc()

	sess, err := m.issue(u)
	if err != nil {
		return nil, err
	}
	m.setCurrent(sess)

	m.log(ctx, u.ID, activity.TypeUserLogin, m.printer.Sprintf(i18n.MsgUserSignedIn), map[string]any{
		"email":    u.Email,
		"provider": m.provider.Name(),
	})
	slog.Info("user signed in", "user_id", u.ID, "provider", m.provider.Name())

	m.emit(EventSignedIn, &sess.User)
	return sess, nil
}

// Resume rebuilds the identity from a session token issued earlier.
func (m *Manager) Resume(ctx context.Context, token string) (*Session, error) {
	claims, err := m.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Provider != "" && claims.Provider != m.provider.Name() {
		return nil, fmt.Errorf("token from provider %q: %w", claims.Provider, apperr.ErrNotAuthenticated)
	}

	u, err := m.provider.UserByID(ctx, claims.Subject)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("token subject %s: %w", claims.Subject, apperr.ErrNotAuthenticated)
	}
	if err != nil {
		return nil, err
	}

	sess := &Session{User: u, Token: token, Provider: m.provider.Name()}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}

	m.mu.Lock()
	m.initialized = true
	m.mu.Unlock()
	m.setCurrent(sess)

	m.emit(EventSignedIn, &sess.User)
	return sess, nil
}

// SignOut clears the current identity. Signing out while signed out is a no-op.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	user := m.userCopy()
	m.mu.Unlock()
	if user == nil {
		return nil
	}

	m.log(ctx, user.ID, activity.TypeUserLogout, m.printer.Sprintf(i18n.MsgUserSignedOut), map[string]any{
		"email": user.Email,
	})

	if err := m.provider.SignOut(ctx, *user); err != nil {
		slog.Warn("provider sign-out failed", "user_id", user.ID, "error", err)
	}

	m.mu.Lock()
	m.user = nil
	m.session = nil
	m.mu.Unlock()

	slog.Info("user signed out", "user_id", user.ID)
	m.emit(EventSignedOut, nil)
	return nil
}

// RefreshToken replaces the session token with a fresh one.
func (m *Manager) RefreshToken(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	user := m.userCopy()
	m.mu.Unlock()
	if user == nil {
		return nil, apperr.ErrNotAuthenticated
	}

	sess, err := m.issue(*user)
	if err != nil {
		return nil, err
	}
	m.setCurrent(sess)

	m.emit(EventTokenRefreshed, &sess.User)
	return sess, nil
}

// ResetPassword starts a password reset for email. Unknown addresses are
// not reported, so the response does not reveal which accounts exist.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	if err := validation.Struct(struct {
		Email string `json:"email" validate:"required,email"`
	}{Email: normalizeEmail(email)}); err != nil {
		return err
	}

	u, err := m.provider.UserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		slog.Info("password reset for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := m.tokens.IssueReset(u)
	if err != nil {
		return err
	}
	if err := m.notifier.SendPasswordReset(ctx, u, token); err != nil {
		return fmt.Errorf("sending reset token: %w", err)
	}
	return nil
}

// ConfirmPasswordReset sets a new password using a reset token.
func (m *Manager) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	claims, err := m.tokens.ParseReset(token)
	if err != nil {
		return err
	}
	if err := m.provider.SetPassword(ctx, claims.Subject, newPassword); err != nil {
		return err
	}
	slog.Info("password reset completed", "user_id", claims.Subject)
	return nil
}

// UpdateProfile applies a partial change to the current learner's profile.
func (m *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) (store.User, error) {
	m.mu.Lock()
	user := m.userCopy()
	m.mu.Unlock()
	if user == nil {
		return store.User{}, apperr.ErrNotAuthenticated
	}
	if err := validation.Struct(update); err != nil {
		return store.User{}, err
	}

	update.apply(user)
	updated, err := m.provider.UpdateProfile(ctx, *user)
	if err != nil {
		return store.User{}, err
	}

	m.mu.Lock()
	if m.user != nil && m.user.ID == updated.ID {
		m.user = &updated
		if m.session != nil {
			m.session.User = updated
		}
	}
	m.mu.Unlock()
	return updated, nil
}

// CurrentUser returns a copy of the current identity, or nil.
func (m *Manager) CurrentUser() *store.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userCopy()
}

// CurrentSession returns a copy of the current session, or nil.
func (m *Manager) CurrentSession() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// IsAuthenticated reports whether someone is signed in.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user != nil
}

// Profile reloads the current learner's profile from the provider.
func (m *Manager) Profile(ctx context.Context) (store.User, error) {
	m.mu.Lock()
	user := m.userCopy()
	m.mu.Unlock()
	if user == nil {
		return store.User{}, apperr.ErrNotAuthenticated
	}
	return m.provider.UserByID(ctx, user.ID)
}

// ProviderName reports which provider authenticates this session.
func (m *Manager) ProviderName() string {
	return m.provider.Name()
}

func (m *Manager) issue(u store.User) (*Session, error) {
	token, expires, err := m.tokens.Issue(u, m.provider.Name())
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token, ExpiresAt: expires, Provider: m.provider.Name()}, nil
}

func (m *Manager) setCurrent(sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := sess.User
	m.user = &u
	m.session = sess
}

// userCopy must be called with m.mu held.
func (m *Manager) userCopy() *store.User {
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) emit(event Event, user *store.User) {
	m.mu.Lock()
	listeners := append([]subscription(nil), m.listeners...)
	m.mu.Unlock()

	for _, s := range listeners {
		var u *store.User
		if user != nil {
			cp := *user
			u = &cp
		}
		s.fn(event, u)
	}
}

func (m *Manager) log(ctx context.Context, userID, kind, description string, metadata map[string]any) {
	err := m.activity.LogActivity(ctx, store.ActivityEntry{
		UserID:      userID,
		Type:        kind,
		Description: description,
		Metadata:    metadata,
	})
	if err != nil {
		slog.Error("failed to log activity", "type", kind, "user_id", userID, "error", err)
	}
}
