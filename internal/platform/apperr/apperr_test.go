package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
)

func TestValidationError_Message(t *testing.T) {
	err := &apperr.ValidationError{Fields: map[string]string{
		"score":           "lte",
		"correct_answers": "ltefield",
	}}

	want := "validation failed: correct_answers: ltefield, score: lte"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsValidation_Wrapped(t *testing.T) {
	err := fmt.Errorf("saving quiz: %w", apperr.NewValidation("score", "lte"))
	if !apperr.IsValidation(err) {
		t.Error("IsValidation() = false for wrapped ValidationError")
	}
	if apperr.IsValidation(errors.New("plain")) {
		t.Error("IsValidation() = true for plain error")
	}
}

func TestIsNotEligible_Wrapped(t *testing.T) {
	err := fmt.Errorf("issue: %w", &apperr.NotEligibleError{Reason: "2/3", Completed: 2, Total: 3})
	if !apperr.IsNotEligible(err) {
		t.Error("IsNotEligible() = false for wrapped NotEligibleError")
	}

	var ne *apperr.NotEligibleError
	if !errors.As(err, &ne) || ne.Completed != 2 {
		t.Errorf("errors.As() did not recover counts: %+v", ne)
	}
}
