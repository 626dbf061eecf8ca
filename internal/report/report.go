// Package report exports a learner's records as an xlsx workbook.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spbe-academy/devops-academy/internal/curriculum"
	"github.com/spbe-academy/devops-academy/internal/store"
)

// Sheet names, in workbook order.
const (
	SheetSummary      = "Summary"
	SheetProgress     = "Progress"
	SheetQuizResults  = "Quiz Results"
	SheetCertificates = "Certificates"
)

const timeLayout = "2006-01-02 15:04"

// ContentType is the media type of the workbook Write produces.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ProgressSource supplies the signed-in learner's progress and quiz attempts.
type ProgressSource interface {
	AllProgress(ctx context.Context) ([]store.ProgressRecord, error)
	QuizResults(ctx context.Context, moduleID string) ([]store.QuizResult, error)
}

// CertificateSource supplies the signed-in learner's certificates.
type CertificateSource interface {
	UserCertificates(ctx context.Context) ([]store.Certificate, error)
}

// Data is everything written to one workbook.
type Data struct {
	User         store.User
	Progress     []store.ProgressRecord
	Quizzes      []store.QuizResult
	Certificates []store.Certificate
	GeneratedAt  time.Time
}

// Collect reads the learner's records from the progress and certificate sources.
func Collect(ctx context.Context, user store.User, progress ProgressSource, certificates CertificateSource) (Data, error) {
	d := Data{User: user, GeneratedAt: time.Now()}
	var err error
	if d.Progress, err = progress.AllProgress(ctx); err != nil {
		return Data{}, fmt.Errorf("collecting progress: %w", err)
	}
	if d.Quizzes, err = progress.QuizResults(ctx, ""); err != nil {
		return Data{}, fmt.Errorf("collecting quiz results: %w", err)
	}
	if d.Certificates, err = certificates.UserCertificates(ctx); err != nil {
		return Data{}, fmt.Errorf("collecting certificates: %w", err)
	}
	return d, nil
}

// Workbook builds the export. The caller closes the returned file.
func Workbook(catalog *curriculum.Loader, d Data) (*excelize.File, error) {
	f := excelize.NewFile()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F4E79"}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("renaming default sheet: %w", err)
	}
	for _, name := range []string{SheetProgress, SheetQuizResults, SheetCertificates} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	w := &sheetWriter{f: f, header: header}
	w.summary(d)
	w.progress(catalog, d.Progress)
	w.quizzes(catalog, d.Quizzes)
	w.certificates(d.Certificates)
	if w.err != nil {
		f.Close()
		return nil, w.err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Write builds the export and writes it to out.
func Write(out io.Writer, catalog *curriculum.Loader, d Data) error {
	f, err := Workbook(catalog, d)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// sheetWriter keeps the first error so rows can be written without checks.
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) row(sheet string, n int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("writing %s row %d: %w", sheet, n, err)
	}
}

func (w *sheetWriter) headerRow(sheet string, titles ...any) {
	w.row(sheet, 1, titles...)
	if w.err != nil {
		return
	}
	if err := w.f.SetRowStyle(sheet, 1, 1, w.header); err != nil {
		w.err = fmt.Errorf("styling %s header: %w", sheet, err)
		return
	}
	last, err := excelize.ColumnNumberToName(len(titles))
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetColWidth(sheet, "A", last, 22); err != nil {
		w.err = fmt.Errorf("sizing %s columns: %w", sheet, err)
	}
}

func (w *sheetWriter) summary(d Data) {
	completed := 0
	for _, p := range d.Progress {
		if p.Completed {
			completed++
		}
	}
	passed := 0
	for _, q := range d.Quizzes {
		if q.Score >= curriculum.PassingScore {
			passed++
		}
	}

	w.headerRow(SheetSummary, "Field", "Value")
	rows := [][]any{
		{"Name", d.User.FullName},
		{"Email", d.User.Email},
		{"NIP", d.User.NIP},
		{"Jabatan", d.User.Jabatan},
		{"Unit Kerja", d.User.UnitKerja},
		{"Completed Modules", completed},
		{"Quiz Attempts", len(d.Quizzes)},
		{"Passed Attempts", passed},
		{"Certificates", len(d.Certificates)},
		{"Generated At", formatTime(d.GeneratedAt)},
	}
	for i, r := range rows {
		w.row(SheetSummary, i+2, r...)
	}
}

func (w *sheetWriter) progress(catalog *curriculum.Loader, records []store.ProgressRecord) {
	w.headerRow(SheetProgress, "Curriculum", "Level", "Module", "Title", "Completed", "Completion Date", "Updated At")
	for i, p := range records {
		completion := ""
		if p.CompletionDate != nil {
			completion = formatTime(*p.CompletionDate)
		}
		w.row(SheetProgress, i+2,
			p.CurriculumID, p.LevelID, p.ModuleID, moduleTitle(catalog, p.ModuleID),
			yesNo(p.Completed), completion, formatTime(p.UpdatedAt))
	}
}

func (w *sheetWriter) quizzes(catalog *curriculum.Loader, results []store.QuizResult) {
	w.headerRow(SheetQuizResults, "Module", "Title", "Score", "Correct", "Total", "Passed", "Completed At")
	for i, q := range results {
		w.row(SheetQuizResults, i+2,
			q.ModuleID, moduleTitle(catalog, q.ModuleID), q.Score, q.CorrectAnswers, q.TotalQuestions,
			yesNo(q.Score >= curriculum.PassingScore), formatTime(q.CompletionDate))
	}
}

func (w *sheetWriter) certificates(certs []store.Certificate) {
	w.headerRow(SheetCertificates, "Verification Code", "Certificate Number", "Curriculum", "Level", "Title", "Type", "Issued At")
	for i, c := range certs {
		w.row(SheetCertificates, i+2,
			c.VerificationCode, c.Snapshot.CertificateNumber, c.Snapshot.CurriculumName, c.Snapshot.LevelName,
			c.Snapshot.CertificateTitle, c.CertificateType, formatTime(c.IssuedAt))
	}
}

func moduleTitle(catalog *curriculum.Loader, id string) string {
	if catalog == nil {
		return ""
	}
	if ref, ok := catalog.GetModule(id); ok {
		return ref.Module.Title
	}
	return ""
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
