package validation_test

import (
	"errors"
	"testing"

	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/platform/validation"
)

type attempt struct {
	Score   int `json:"score" validate:"gte=0,lte=100"`
	Total   int `json:"total_questions" validate:"gte=1"`
	Correct int `json:"correct_answers" validate:"gte=0,ltefield=Total"`
	Skipped int `json:"-" validate:"gte=0"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name   string
		in     attempt
		fields map[string]string
	}{
		{"valid", attempt{Score: 80, Total: 5, Correct: 4}, nil},
		{"score too high", attempt{Score: 101, Total: 5, Correct: 4}, map[string]string{"score": "lte=100"}},
		{"correct above total", attempt{Score: 80, Total: 2, Correct: 3}, map[string]string{"correct_answers": "ltefield=Total"}},
		{"several", attempt{Score: -1, Total: 0}, map[string]string{"score": "gte=0", "total_questions": "gte=1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Struct(tt.in)
			if tt.fields == nil {
				if err != nil {
					t.Fatalf("Struct() error = %v", err)
				}
				return
			}

			var ve *apperr.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Struct() error = %v, want ValidationError", err)
			}
			if len(ve.Fields) != len(tt.fields) {
				t.Errorf("Fields = %v, want %v", ve.Fields, tt.fields)
			}
			for k, v := range tt.fields {
				if ve.Fields[k] != v {
					t.Errorf("Fields[%q] = %q, want %q", k, ve.Fields[k], v)
				}
			}
		})
	}
}
