package report_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spbe-academy/devops-academy/internal/curriculum"
	"github.com/spbe-academy/devops-academy/internal/identity"
	"github.com/spbe-academy/devops-academy/internal/report"
	"github.com/spbe-academy/devops-academy/internal/store"
)

func sampleData() report.Data {
	done := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	return report.Data{
		User: identity.DemoUser(),
		Progress: []store.ProgressRecord{
			{CurriculumID: "devops", LevelID: "basic", ModuleID: "dp-b-1", Completed: true, CompletionDate: &done, UpdatedAt: done},
			{CurriculumID: "devops", LevelID: "basic", ModuleID: "dp-b-2", UpdatedAt: done},
		},
		Quizzes: []store.QuizResult{
			{ModuleID: "dp-b-1", Score: 100, TotalQuestions: 2, CorrectAnswers: 2, CompletionDate: done},
			{ModuleID: "dp-b-2", Score: 0, TotalQuestions: 1, CorrectAnswers: 0, CompletionDate: done},
		},
		Certificates: []store.Certificate{
			{
				CurriculumID:     "devops",
				LevelID:          "basic",
				CertificateType:  "completion",
				VerificationCode: "SPBE-ABC-12345",
				IssuedAt:         done,
				Snapshot: store.CertificateSnapshot{
					CurriculumName:    "DevOps Engineer",
					LevelName:         "Basic",
					CertificateNumber: "CERT-1-ABCDEFGHI",
				},
			},
		},
		GeneratedAt: done,
	}
}

func TestWrite(t *testing.T) {
	catalog, err := curriculum.Default()
	if err != nil {
		t.Fatalf("curriculum.Default() error = %v", err)
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, catalog, sampleData()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	wantSheets := []string{report.SheetSummary, report.SheetProgress, report.SheetQuizResults, report.SheetCertificates}
	sheets := f.GetSheetList()
	if len(sheets) != len(wantSheets) {
		t.Fatalf("sheets = %v, want %v", sheets, wantSheets)
	}
	for i, name := range wantSheets {
		if sheets[i] != name {
			t.Errorf("sheet[%d] = %q, want %q", i, sheets[i], name)
		}
	}

	tests := []struct {
		sheet string
		rows  int
		cell  string
		want  string
	}{
		{report.SheetSummary, 11, "B2", "Demo User"},
		{report.SheetProgress, 3, "E2", "Yes"},
		{report.SheetProgress, 3, "E3", "No"},
		{report.SheetQuizResults, 3, "C2", "100"},
		{report.SheetQuizResults, 3, "F3", "No"},
		{report.SheetCertificates, 2, "A2", "SPBE-ABC-12345"},
		{report.SheetCertificates, 2, "G2", "2026-03-02 09:30"},
	}
	for _, tt := range tests {
		t.Run(tt.sheet+"/"+tt.cell, func(t *testing.T) {
			rows, err := f.GetRows(tt.sheet)
			if err != nil {
				t.Fatalf("GetRows() error = %v", err)
			}
			if len(rows) != tt.rows {
				t.Errorf("rows = %d, want %d", len(rows), tt.rows)
			}
			got, err := f.GetCellValue(tt.sheet, tt.cell)
			if err != nil {
				t.Fatalf("GetCellValue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("%s!%s = %q, want %q", tt.sheet, tt.cell, got, tt.want)
			}
		})
	}

	title, err := f.GetCellValue(report.SheetProgress, "D2")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	ref, _ := catalog.GetModule("dp-b-1")
	if title != ref.Module.Title {
		t.Errorf("module title = %q, want %q", title, ref.Module.Title)
	}
}

type stubSource struct {
	data report.Data
}

func (s stubSource) AllProgress(context.Context) ([]store.ProgressRecord, error) {
	return s.data.Progress, nil
}

func (s stubSource) QuizResults(context.Context, string) ([]store.QuizResult, error) {
	return s.data.Quizzes, nil
}

func (s stubSource) UserCertificates(context.Context) ([]store.Certificate, error) {
	return s.data.Certificates, nil
}

func TestCollect(t *testing.T) {
	src := stubSource{data: sampleData()}

	d, err := report.Collect(context.Background(), identity.DemoUser(), src, src)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(d.Progress) != 2 || len(d.Quizzes) != 2 || len(d.Certificates) != 1 {
		t.Errorf("Collect() = %d progress, %d quizzes, %d certificates", len(d.Progress), len(d.Quizzes), len(d.Certificates))
	}
	if d.User.ID != identity.DemoUserID || d.GeneratedAt.IsZero() {
		t.Errorf("Collect() user = %+v, generated %v", d.User, d.GeneratedAt)
	}
}
