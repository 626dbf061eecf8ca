package i18n_test

import (
	"fmt"
	"testing"

	"golang.org/x/text/language"

	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/platform/i18n"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		locale string
		want   language.Tag
	}{
		{"id", language.Indonesian},
		{"id-ID", language.Indonesian},
		{"en", language.English},
		{"en-US", language.English},
		{"fr", language.Indonesian},
		{"", language.Indonesian},
		{"!!", language.Indonesian},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			if got := i18n.Match(tt.locale); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.locale, got, tt.want)
			}
		})
	}
}

func TestPrinter_Indonesian(t *testing.T) {
	p := i18n.NewPrinter("id")

	got := p.Sprintf(i18n.MsgModulesIncomplete, 2, 3)
	if got != "Anda harus menyelesaikan semua modul (2/3)" {
		t.Errorf("Sprintf() = %q", got)
	}
}

func TestPrinter_English(t *testing.T) {
	p := i18n.NewPrinter("en")

	got := p.Sprintf(i18n.MsgQuizzesNotPassed, 1, 3)
	if got != "You must pass all quizzes (1/3)" {
		t.Errorf("Sprintf() = %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	p := i18n.NewPrinter("id")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not authenticated", fmt.Errorf("x: %w", apperr.ErrNotAuthenticated), "Pengguna belum login"},
		{"not eligible uses reason", &apperr.NotEligibleError{Reason: "alasan"}, "alasan"},
		{"validation", apperr.NewValidation("score", "lte"), "Validasi gagal"},
		{"unsupported", apperr.ErrUnsupported, "Tidak tersedia dalam mode fallback"},
		{"unknown", fmt.Errorf("boom"), "Terjadi kesalahan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := i18n.ErrorMessage(p, tt.err); got != tt.want {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
