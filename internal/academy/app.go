// Package academy assembles the catalog, record store and identity provider
// into an App and hands out one Session per signed-in learner.
package academy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/message"

	"github.com/spbe-academy/devops-academy/internal/certification"
	"github.com/spbe-academy/devops-academy/internal/curriculum"
	"github.com/spbe-academy/devops-academy/internal/identity"
	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/platform/cache"
	"github.com/spbe-academy/devops-academy/internal/platform/config"
	"github.com/spbe-academy/devops-academy/internal/platform/database"
	"github.com/spbe-academy/devops-academy/internal/platform/i18n"
	"github.com/spbe-academy/devops-academy/internal/platform/metrics"
	"github.com/spbe-academy/devops-academy/internal/store"
	"github.com/spbe-academy/devops-academy/internal/store/kv"
)

// Config holds the components an App is built from.
type Config struct {
	Catalog *curriculum.Loader
	Store   store.Store
	// Users backs the store provider. Nil selects the demo provider.
	Users     store.UserStore
	Local     kv.Store // backend of the demo provider's remembered user
	Tokens    *identity.Tokens
	Printer   *message.Printer // default Indonesian
	AllowDemo bool
	Notifier  identity.Notifier // default LogNotifier
}

// App is the long-lived service shared by every session.
type App struct {
	catalog   *curriculum.Loader
	store     store.Store
	provider  identity.Provider
	tokens    *identity.Tokens
	printer   *message.Printer
	notifier  identity.Notifier
	verifier  *certification.Engine
	sessions  *registry
	closers   []func()
	closeOnce sync.Once
}

// New builds an App from already opened components.
func New(cfg Config) (*App, error) {
	if cfg.Catalog == nil || cfg.Store == nil || cfg.Tokens == nil {
		return nil, errors.New("academy: catalog, store and tokens are required")
	}
	printer := cfg.Printer
	if printer == nil {
		printer = i18n.NewPrinter("id")
	}

	var provider identity.Provider
	switch {
	case cfg.Users != nil:
		provider = identity.NewStoreProvider(cfg.Users)
	case cfg.AllowDemo && cfg.Local != nil:
		slog.Warn("using demo identity provider, not for production use")
		provider = identity.NewDemoProvider(cfg.Local)
	default:
		return nil, errors.New("academy: no identity provider available, remote user store is down and demo accounts are disabled")
	}

	app := &App{
		catalog:  cfg.Catalog,
		store:    cfg.Store,
		provider: provider,
		tokens:   cfg.Tokens,
		printer:  printer,
		notifier: cfg.Notifier,
		sessions: newRegistry(),
	}
	app.verifier = certification.NewEngine(certification.EngineConfig{
		Catalog: cfg.Catalog,
		Store:   cfg.Store,
		Printer: printer,
	})
	return app, nil
}

// Open connects to PostgreSQL and builds an App. When the database is
// unreachable it falls back to the configured local backend, which only
// signs in demo accounts; Open fails if those are disabled.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	catalog, err := loadCatalog(cfg.CurriculumPath)
	if err != nil {
		return nil, err
	}

	tokens := identity.NewTokens(
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.AccessTokenTTL)*time.Minute,
		time.Duration(cfg.Auth.ResetTokenTTL)*time.Minute,
	)
	appCfg := Config{
		Catalog:   catalog,
		Tokens:    tokens,
		Printer:   i18n.NewPrinter(cfg.Locale),
		AllowDemo: cfg.Auth.AllowDemo && !cfg.IsProduction(),
	}

	var closers []func()
	db, err := connectDatabase(ctx, cfg.Database)
	if err == nil {
		pg, perr := store.NewPostgresStore(db.Pool)
		if perr != nil {
			db.Close()
			return nil, perr
		}
		appCfg.Store = pg
		appCfg.Users = pg
		closers = append(closers, db.Close)
		slog.Info("record store ready", "mode", store.ModeRemote)
	} else {
		slog.Warn("record store unavailable, using local fallback",
			"error", fmt.Errorf("%w: %w", apperr.ErrRemoteUnavailable, err),
			"backend", cfg.Fallback.Backend,
		)
		metrics.StoreFallbacks.Inc()

		local, closeLocal, lerr := openFallback(ctx, cfg.Fallback, cfg.Cache)
		if lerr != nil {
			return nil, lerr
		}
		if closeLocal != nil {
			closers = append(closers, closeLocal)
		}
		appCfg.Store = store.NewLocalStore(local)
		appCfg.Local = local
		slog.Info("record store ready", "mode", store.ModeLocal, "backend", cfg.Fallback.Backend)
	}

	app, err := New(appCfg)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}
	app.closers = closers
	return app, nil
}

func loadCatalog(path string) (*curriculum.Loader, error) {
	if path == "" {
		return curriculum.Default()
	}
	return curriculum.NewLoader(path)
}

func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.New(ctx, cfg.URL, cfg.MaxConns, cfg.MinConns)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openFallback opens the local key-value backend named by cfg.Backend.
func openFallback(ctx context.Context, cfg config.FallbackConfig, cacheCfg config.CacheConfig) (kv.Store, func(), error) {
	switch cfg.Backend {
	case "memory":
		return kv.NewMemoryStore(), nil, nil
	case "redis":
		c, err := cache.New(ctx, cacheCfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("opening redis fallback: %w", err)
		}
		return kv.NewRedisStore(c), func() { c.Close() }, nil
	default:
		fs, err := kv.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening file fallback: %w", err)
		}
		return fs, nil, nil
	}
}

// Catalog returns the curriculum catalog.
func (a *App) Catalog() *curriculum.Loader { return a.catalog }

// Mode reports whether records go to the remote or the local store.
func (a *App) Mode() string { return a.store.Mode() }

// ProviderName reports which identity provider authenticates learners.
func (a *App) ProviderName() string { return a.provider.Name() }

// Printer returns the default message printer.
func (a *App) Printer() *message.Printer { return a.printer }

// HealthCheck verifies the record store is reachable.
func (a *App) HealthCheck(ctx context.Context) error {
	return a.store.HealthCheck(ctx)
}

// Verify looks up a certificate by its public code. No session is needed.
func (a *App) Verify(ctx context.Context, code string) (certification.Verification, error) {
	return a.verifier.VerifyByCode(ctx, code)
}

// SignUp registers a learner. The learner signs in separately.
func (a *App) SignUp(ctx context.Context, req identity.SignUpRequest) (store.User, error) {
	return a.anonymous().Identity.SignUp(ctx, req)
}

// ResetPassword starts a password reset for email.
func (a *App) ResetPassword(ctx context.Context, email string) error {
	return a.anonymous().Identity.ResetPassword(ctx, email)
}

// ConfirmPasswordReset sets a new password using a reset token.
func (a *App) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	return a.anonymous().Identity.ConfirmPasswordReset(ctx, token, password)
}

// SignIn authenticates a learner and registers the new session under its token.
func (a *App) SignIn(ctx context.Context, email, password string) (*Session, *identity.Session, error) {
	s := a.newSession()
	auth, err := s.Identity.SignIn(ctx, email, password)
	if err != nil {
		s.close()
		return nil, nil, err
	}
	a.sessions.put(auth.Token, s)
	return s, auth, nil
}

// Lookup returns the session for token, resuming it from the token's claims
// when this process has not seen it before.
func (a *App) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, apperr.ErrNotAuthenticated
	}
	if s, ok := a.sessions.get(token); ok {
		if cur := s.Identity.CurrentSession(); cur != nil && (cur.ExpiresAt.IsZero() || time.Now().Before(cur.ExpiresAt)) {
			return s, nil
		}
		a.sessions.remove(token)
		s.close()
		return nil, fmt.Errorf("session expired: %w", apperr.ErrNotAuthenticated)
	}

	s := a.newSession()
	if _, err := s.Identity.Resume(ctx, token); err != nil {
		s.close()
		return nil, err
	}
	// Concurrent first requests for one token resume in parallel; one wins.
	held, stored := a.sessions.putIfAbsent(token, s)
	if !stored {
		s.close()
	}
	return held, nil
}

// SignOut ends the session held under token.
func (a *App) SignOut(ctx context.Context, token string) error {
	s, ok := a.sessions.get(token)
	if !ok {
		return nil
	}
	err := s.Identity.SignOut(ctx)
	a.sessions.remove(token)
	s.close()
	return err
}

// RefreshToken issues a new token for the session and re-registers it.
func (a *App) RefreshToken(ctx context.Context, token string) (*identity.Session, error) {
	s, err := a.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	auth, err := s.Identity.RefreshToken(ctx)
	if err != nil {
		return nil, err
	}
	a.sessions.rekey(token, auth.Token)
	return auth, nil
}

// Sessions returns the number of live sessions.
func (a *App) Sessions() int { return a.sessions.len() }

// Close ends every session and releases store connections.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		for _, s := range a.sessions.drain() {
			s.close()
		}
		for _, c := range a.closers {
			c()
		}
	})
}
