package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/store"
	"github.com/spbe-academy/devops-academy/internal/store/kv"
)

// Demo credentials accepted by DemoProvider.
const (
	DemoEmail    = "demo@spbe.academy"
	DemoPassword = "demo123"
	DemoUserID   = "demo-user-id"
)

// DemoUser is the single account known to DemoProvider.
func DemoUser() store.User {
	return store.User{
		ID:        DemoUserID,
		Email:     DemoEmail,
		FullName:  "Demo User",
		NIP:       "123456789",
		Jabatan:   "Pranata Komputer",
		UnitKerja: "Diskominfo Aceh Tengah",
	}
}

// DemoProvider is the fallback provider used when the remote store is
// unreachable. It knows one account and remembers it under spbe_user.
type DemoProvider struct {
	kv kv.Store
}

// NewDemoProvider creates the fallback provider over a local backend.
func NewDemoProvider(backend kv.Store) *DemoProvider {
	return &DemoProvider{kv: backend}
}

func (p *DemoProvider) Name() string { return "demo" }

func (p *DemoProvider) Restore(ctx context.Context) (*store.User, error) {
	var u store.User
	found, err := kv.GetJSON(ctx, p.kv, store.KeyUser, &u)
	if err != nil {
		return nil, fmt.Errorf("restoring demo user: %w", err)
	}
	if !found || u.ID == "" {
		return nil, nil
	}
	return &u, nil
}

func (p *DemoProvider) SignUp(context.Context, SignUpRequest) (store.User, error) {
	return store.User{}, apperr.ErrUnsupported
}

func (p *DemoProvider) SignIn(ctx context.Context, email, password string) (store.User, error) {
	if normalizeEmail(email) != DemoEmail || password != DemoPassword {
		return store.User{}, apperr.ErrInvalidCredentials
	}

	u := p.current(ctx)
	if err := kv.SetJSON(ctx, p.kv, store.KeyUser, u); err != nil {
		return store.User{}, fmt.Errorf("remembering demo user: %w", err)
	}
	return u, nil
}

func (p *DemoProvider) SignOut(ctx context.Context, _ store.User) error {
	if err := p.kv.Delete(ctx, store.KeyUser); err != nil {
		return fmt.Errorf("forgetting demo user: %w", err)
	}
	return nil
}

func (p *DemoProvider) UserByID(ctx context.Context, id string) (store.User, error) {
	if id != DemoUserID {
		return store.User{}, fmt.Errorf("user %q: %w", id, apperr.ErrNotFound)
	}
	return p.current(ctx), nil
}

func (p *DemoProvider) UserByEmail(context.Context, string) (store.User, error) {
	return store.User{}, apperr.ErrUnsupported
}

func (p *DemoProvider) SetPassword(context.Context, string, string) error {
	return apperr.ErrUnsupported
}

func (p *DemoProvider) UpdateProfile(ctx context.Context, u store.User) (store.User, error) {
	if u.ID != DemoUserID {
		return store.User{}, fmt.Errorf("user %q: %w", u.ID, apperr.ErrNotFound)
	}
	u.Email = DemoEmail
	u.UpdatedAt = time.Now()
	if err := kv.SetJSON(ctx, p.kv, store.KeyUser, u); err != nil {
		return store.User{}, fmt.Errorf("saving demo profile: %w", err)
	}
	return u, nil
}

// current returns the remembered profile, falling back to DemoUser.
func (p *DemoProvider) current(ctx context.Context) store.User {
	if u, err := p.Restore(ctx); err == nil && u != nil {
		return *u
	}
	return DemoUser()
}
