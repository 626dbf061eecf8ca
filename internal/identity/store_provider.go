package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/platform/validation"
	"github.com/spbe-academy/devops-academy/internal/store"
)

// StoreProvider authenticates against the users table of the remote store.
type StoreProvider struct {
	users store.UserStore
	cost  int
}

// NewStoreProvider creates a provider backed by users.
func NewStoreProvider(users store.UserStore) *StoreProvider {
	return &StoreProvider{users: users, cost: bcrypt.DefaultCost}
}

func (p *StoreProvider) Name() string { return "store" }

// Restore always returns nil: remote sessions are resumed from tokens.
func (p *StoreProvider) Restore(context.Context) (*store.User, error) {
	return nil, nil
}

func (p *StoreProvider) SignUp(ctx context.Context, req SignUpRequest) (store.User, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validation.Struct(req); err != nil {
		return store.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), p.cost)
	if err != nil {
		return store.User{}, fmt.Errorf("hashing password: %w", err)
	}

	fullName := req.FullName
	if fullName == "" {
		fullName = localPart(req.Email)
	}

	return p.users.CreateUser(ctx, store.User{
		Email:     req.Email,
		FullName:  fullName,
		NIP:       req.NIP,
		Jabatan:   req.Jabatan,
		UnitKerja: req.UnitKerja,
	}, string(hash))
}

func (p *StoreProvider) SignIn(ctx context.Context, email, password string) (store.User, error) {
	u, hash, err := p.users.UserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, apperr.ErrNotFound) {
		return store.User{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return store.User{}, apperr.ErrInvalidCredentials
	}
	return u, nil
}

func (p *StoreProvider) SignOut(context.Context, store.User) error {
	return nil
}

func (p *StoreProvider) UserByID(ctx context.Context, id string) (store.User, error) {
	return p.users.UserByID(ctx, id)
}

func (p *StoreProvider) UserByEmail(ctx context.Context, email string) (store.User, error) {
	u, _, err := p.users.UserByEmail(ctx, normalizeEmail(email))
	return u, err
}

func (p *StoreProvider) SetPassword(ctx context.Context, userID, password string) error {
	if err := validation.Struct(passwordRule{Password: password}); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return p.users.UpdatePassword(ctx, userID, string(hash))
}

func (p *StoreProvider) UpdateProfile(ctx context.Context, u store.User) (store.User, error) {
	return p.users.UpdateUser(ctx, u)
}

func localPart(email string) string {
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return email
}
