// Package i18n provides localized user-facing messages. Indonesian is the
// default language; English is available for API clients that ask for it.
package i18n

import (
	"errors"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
)

// Message keys. The key doubles as the English text.
const (
	MsgModulesIncomplete    = "You must complete all modules (%d/%d)"
	MsgQuizzesNotPassed     = "You must pass all quizzes (%d/%d)"
	MsgCertificateNotFound  = "Certificate not found or invalid"
	MsgInvalidLevel         = "Invalid curriculum or level"
	MsgNotAuthenticated     = "User not authenticated"
	MsgInvalidCredentials   = "Invalid email or password. Use demo@spbe.academy / demo123"
	MsgEmailRegistered      = "Email already registered"
	MsgValidationFailed     = "Validation failed"
	MsgUnsupported          = "Not available in fallback mode"
	MsgNotFound             = "Data not found"
	MsgInternal             = "Something went wrong"
	MsgModuleProgress       = "Module progress %s"
	MsgQuizCompleted        = "Quiz completed for module %s"
	MsgCertificateEarned    = "Certificate earned: %s"
	MsgVideoCompleted       = "Video completed for module %s"
	MsgUserSignedIn         = "User signed in"
	MsgUserSignedOut        = "User signed out"
	MsgPasswordResetRequest = "Password reset requested"
)

var indonesian = map[string]string{
	MsgModulesIncomplete:    "Anda harus menyelesaikan semua modul (%d/%d)",
	MsgQuizzesNotPassed:     "Anda harus lulus semua quiz (%d/%d)",
	MsgCertificateNotFound:  "Sertifikat tidak ditemukan atau tidak valid",
	MsgInvalidLevel:         "Kurikulum atau level tidak valid",
	MsgNotAuthenticated:     "Pengguna belum login",
	MsgInvalidCredentials:   "Email atau password salah. Gunakan demo@spbe.academy / demo123",
	MsgEmailRegistered:      "Email sudah terdaftar",
	MsgValidationFailed:     "Validasi gagal",
	MsgUnsupported:          "Tidak tersedia dalam mode fallback",
	MsgNotFound:             "Data tidak ditemukan",
	MsgInternal:             "Terjadi kesalahan",
	MsgModuleProgress:       "Progress modul %s",
	MsgQuizCompleted:        "Quiz selesai untuk modul %s",
	MsgCertificateEarned:    "Sertifikat diterima: %s",
	MsgVideoCompleted:       "Video selesai untuk modul %s",
	MsgUserSignedIn:         "User berhasil login",
	MsgUserSignedOut:        "User berhasil logout",
	MsgPasswordResetRequest: "Permintaan reset password",
}

func init() {
	for key, text := range indonesian {
		_ = message.SetString(language.Indonesian, key, text)
		_ = message.SetString(language.English, key, key)
	}
}

// NewPrinter returns a printer for the given locale ("id", "en", "en-US", ...).
// Unknown locales fall back to Indonesian.
func NewPrinter(locale string) *message.Printer {
	return message.NewPrinter(Match(locale))
}

// Match resolves a locale string to one of the supported languages.
func Match(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.Indonesian
	}
	base, _ := tag.Base()
	if base.String() == "en" {
		return language.English
	}
	return language.Indonesian
}

// ErrorMessage renders a short localized message for err.
func ErrorMessage(p *message.Printer, err error) string {
	var ne *apperr.NotEligibleError
	switch {
	case errors.As(err, &ne):
		return ne.Reason
	case apperr.IsValidation(err):
		return p.Sprintf(MsgValidationFailed)
	case errors.Is(err, apperr.ErrNotAuthenticated):
		return p.Sprintf(MsgNotAuthenticated)
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return p.Sprintf(MsgInvalidCredentials)
	case errors.Is(err, apperr.ErrConflict):
		return p.Sprintf(MsgEmailRegistered)
	case errors.Is(err, apperr.ErrUnsupported):
		return p.Sprintf(MsgUnsupported)
	case errors.Is(err, apperr.ErrNotFound):
		return p.Sprintf(MsgNotFound)
	default:
		return p.Sprintf(MsgInternal)
	}
}
