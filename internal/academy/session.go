package academy

import (
	"sync"

	"github.com/spbe-academy/devops-academy/internal/activity"
	"github.com/spbe-academy/devops-academy/internal/certification"
	"github.com/spbe-academy/devops-academy/internal/identity"
	"github.com/spbe-academy/devops-academy/internal/platform/metrics"
	"github.com/spbe-academy/devops-academy/internal/progress"
	"github.com/spbe-academy/devops-academy/internal/store"
)

// Session is one learner's identity with the services acting on its behalf.
type Session struct {
	Identity     *identity.Manager
	Progress     *progress.Tracker
	Certificates *certification.Engine
	Events       *activity.Broker

	subscription identity.SubscriptionID
	closeOnce    sync.Once
}

func (a *App) newSession() *Session {
	events := activity.NewBroker()
	logger := activity.MultiLogger{activity.NewStoreLogger(a.store), events}

	manager := identity.NewManager(identity.ManagerConfig{
		Provider: a.provider,
		Tokens:   a.tokens,
		Activity: logger,
		Notifier: a.notifier,
		Printer:  a.printer,
	})
	tracker := progress.NewTracker(progress.TrackerConfig{
		Catalog:  a.catalog,
		Store:    a.store,
		Identity: manager,
		Activity: logger,
		Printer:  a.printer,
	})
	engine := certification.NewEngine(certification.EngineConfig{
		Catalog:  a.catalog,
		Store:    a.store,
		Progress: tracker,
		Identity: manager,
		Activity: logger,
		Printer:  a.printer,
	})

	s := &Session{
		Identity:     manager,
		Progress:     tracker,
		Certificates: engine,
		Events:       events,
	}
	s.subscription = manager.Subscribe(func(ev identity.Event, u *store.User) {
		// The cache holds one learner's records only.
		if ev == identity.EventSignedOut || ev == identity.EventSignedIn {
			tracker.ClearCache()
		}
		var data any
		if u != nil {
			data = *u
		}
		events.Publish(activity.Event{Kind: activity.KindIdentity, Type: string(ev), Data: data})
	})
	return s
}

// anonymous returns a session that is never registered, for operations that
// need no signed-in learner.
func (a *App) anonymous() *Session {
	s := a.newSession()
	s.close()
	return s
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.Identity.Unsubscribe(s.subscription)
		s.Events.Close()
	})
}

// registry maps session tokens to sessions.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*Session)}
}

func (r *registry) get(token string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	return s, ok
}

func (r *registry) put(token string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[token]; !ok {
		metrics.ActiveSessions.Inc()
	}
	r.sessions[token] = s
}

// putIfAbsent stores s under token unless a session is already held there,
// in which case the held session is returned with false.
func (r *registry) putIfAbsent(token string, s *Session) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if held, ok := r.sessions[token]; ok {
		return held, false
	}
	r.sessions[token] = s
	metrics.ActiveSessions.Inc()
	return s, true
}

func (r *registry) remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[token]; ok {
		delete(r.sessions, token)
		metrics.ActiveSessions.Dec()
	}
}

func (r *registry) rekey(oldToken, newToken string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[oldToken]
	if !ok || oldToken == newToken {
		return
	}
	delete(r.sessions, oldToken)
	r.sessions[newToken] = s
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *registry) drain() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for token, s := range r.sessions {
		out = append(out, s)
		delete(r.sessions, token)
		metrics.ActiveSessions.Dec()
	}
	return out
}
