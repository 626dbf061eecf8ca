package identity

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spbe-academy/devops-academy/internal/store"
)

// Provider authenticates learners against a backing user directory.
type Provider interface {
	// Name identifies the provider in tokens, logs and metrics.
	Name() string
	// Restore returns a remembered identity, or nil when there is none.
	Restore(ctx context.Context) (*store.User, error)
	SignUp(ctx context.Context, req SignUpRequest) (store.User, error)
	SignIn(ctx context.Context, email, password string) (store.User, error)
	SignOut(ctx context.Context, u store.User) error
	UserByID(ctx context.Context, id string) (store.User, error)
	// UserByEmail is used to address password reset requests.
	UserByEmail(ctx context.Context, email string) (store.User, error)
	SetPassword(ctx context.Context, userID, password string) error
	UpdateProfile(ctx context.Context, u store.User) (store.User, error)
}

// SignUpRequest carries registration data.
type SignUpRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FullName  string `json:"full_name" validate:"max=200"`
	NIP       string `json:"nip" validate:"omitempty,numeric,max=30"`
	Jabatan   string `json:"jabatan" validate:"max=200"`
	UnitKerja string `json:"unit_kerja" validate:"max=200"`
}

// ProfileUpdate is a partial profile change. Nil fields are left as is.
type ProfileUpdate struct {
	FullName  *string `json:"full_name" validate:"omitempty,min=1,max=200"`
	NIP       *string `json:"nip" validate:"omitempty,numeric,max=30"`
	Jabatan   *string `json:"jabatan" validate:"omitempty,max=200"`
	UnitKerja *string `json:"unit_kerja" validate:"omitempty,max=200"`
}

func (p ProfileUpdate) apply(u *store.User) {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.NIP != nil {
		u.NIP = *p.NIP
	}
	if p.Jabatan != nil {
		u.Jabatan = *p.Jabatan
	}
	if p.UnitKerja != nil {
		u.UnitKerja = *p.UnitKerja
	}
}

type passwordRule struct {
	Password string `json:"password" validate:"required,min=6"`
}

// Notifier delivers password reset tokens to learners.
type Notifier interface {
	SendPasswordReset(ctx context.Context, u store.User, token string) error
}

// LogNotifier writes reset tokens to the log. It stands in for email delivery.
type LogNotifier struct{}

func (LogNotifier) SendPasswordReset(_ context.Context, u store.User, token string) error {
	slog.Info("password reset requested", "user_id", u.ID, "email", u.Email, "reset_token", token)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
