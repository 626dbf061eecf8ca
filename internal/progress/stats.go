package progress

import (
	"context"
	"time"

	"github.com/spbe-academy/devops-academy/internal/curriculum"
	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/store"
)

// StudyMinutesPerModule is the study time credited for each completed module.
const StudyMinutesPerModule = 30

// DefaultRecommendations is how many modules Recommendations suggests by default.
const DefaultRecommendations = 3

// Kinds of LastActivity.
const (
	KindProgress = "progress"
	KindQuiz     = "quiz"
)

// LastActivity is the most recent progress update or quiz attempt.
type LastActivity struct {
	At       time.Time `json:"date"`
	Kind     string    `json:"type"`
	ModuleID string    `json:"module_id"`
}

// OverallStats aggregates a learner's activity across the whole catalog.
type OverallStats struct {
	TrackedModules   int           `json:"tracked_modules"`
	CompletedModules int           `json:"completed_modules"`
	QuizAttempts     int           `json:"total_quizzes"`
	AverageScore     int           `json:"average_score"`
	StudyMinutes     int           `json:"study_time_minutes"`
	StreakDays       int           `json:"streak_days"`
	LastActivity     *LastActivity `json:"last_activity"`
}

// LevelStat is the completion state of one level.
type LevelStat struct {
	LevelID            string `json:"level_id"`
	Name               string `json:"name"`
	TotalModules       int    `json:"total_modules"`
	CompletedModules   int    `json:"completed_modules"`
	ProgressPercentage int    `json:"progress_percentage"`
	IsCompleted        bool   `json:"is_completed"`
}

// CurriculumStats is the completion state of one curriculum.
type CurriculumStats struct {
	CurriculumID       string      `json:"curriculum_id"`
	TotalModules       int         `json:"total_modules"`
	CompletedModules   int         `json:"completed_modules"`
	ProgressPercentage int         `json:"progress_percentage"`
	QuizAttempts       int         `json:"total_quizzes"`
	AverageScore       int         `json:"average_score"`
	Levels             []LevelStat `json:"levels"`
}

// Recommendation is a module the learner has not completed yet.
type Recommendation struct {
	CurriculumID string `json:"curriculum_id"`
	LevelID      string `json:"level_id"`
	ModuleID     string `json:"module_id"`
	Title        string `json:"title"`
	Duration     string `json:"duration"`
}

// OverallStats summarizes every record and attempt of the learner.
func (t *Tracker) OverallStats(ctx context.Context) (OverallStats, error) {
	records, err := t.AllProgress(ctx)
	if err != nil {
		return OverallStats{}, err
	}
	results, err := t.QuizResults(ctx, "")
	if err != nil {
		return OverallStats{}, err
	}

	stats := OverallStats{
		TrackedModules: len(records),
		QuizAttempts:   len(results),
		AverageScore:   meanScore(results),
	}
	for _, r := range records {
		if r.Completed {
			stats.CompletedModules++
		}
	}
	stats.StudyMinutes = stats.CompletedModules * StudyMinutesPerModule
	stats.LastActivity = lastActivity(records, results)
	stats.StreakDays = streak(records, results, t.now())
	return stats, nil
}

// LevelStats reports completion per level of a curriculum, in catalog order.
func (t *Tracker) LevelStats(ctx context.Context, curriculumID string) ([]LevelStat, error) {
	c, ok := t.catalog.GetCurriculum(curriculumID)
	if !ok {
		return nil, apperr.NewValidation("curriculum_id", "unknown curriculum")
	}
	records, err := t.CurriculumProgress(ctx, curriculumID)
	if err != nil {
		return nil, err
	}
	return levelStats(c, completedSet(records)), nil
}

// CurriculumStats reports completion and quiz performance for a curriculum.
// Quiz figures cover attempts on the curriculum's own modules.
func (t *Tracker) CurriculumStats(ctx context.Context, curriculumID string) (CurriculumStats, error) {
	c, ok := t.catalog.GetCurriculum(curriculumID)
	if !ok {
		return CurriculumStats{}, apperr.NewValidation("curriculum_id", "unknown curriculum")
	}
	records, err := t.CurriculumProgress(ctx, curriculumID)
	if err != nil {
		return CurriculumStats{}, err
	}
	results, err := t.QuizResults(ctx, "")
	if err != nil {
		return CurriculumStats{}, err
	}

	stats := CurriculumStats{
		CurriculumID: curriculumID,
		Levels:       levelStats(c, completedSet(records)),
	}
	for _, lv := range stats.Levels {
		stats.TotalModules += lv.TotalModules
		stats.CompletedModules += lv.CompletedModules
	}
	stats.ProgressPercentage = curriculum.Percent(stats.CompletedModules, stats.TotalModules)

	var own []store.QuizResult
	for _, r := range results {
		if ref, ok := t.catalog.GetModule(r.ModuleID); ok && ref.CurriculumID == curriculumID {
			own = append(own, r)
		}
	}
	stats.QuizAttempts = len(own)
	stats.AverageScore = meanScore(own)
	return stats, nil
}

// Recommendations returns up to limit incomplete modules in catalog order.
func (t *Tracker) Recommendations(ctx context.Context, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = DefaultRecommendations
	}
	records, err := t.AllProgress(ctx)
	if err != nil {
		return nil, err
	}
	done := completedSet(records)

	recs := []Recommendation{}
	for _, ref := range t.catalog.AllModules() {
		if len(recs) == limit {
			break
		}
		if done[ref.Module.ID] {
			continue
		}
		recs = append(recs, Recommendation{
			CurriculumID: ref.CurriculumID,
			LevelID:      ref.LevelID,
			ModuleID:     ref.Module.ID,
			Title:        ref.Module.Title,
			Duration:     ref.Module.Duration,
		})
	}
	return recs, nil
}

func levelStats(c curriculum.Curriculum, done map[string]bool) []LevelStat {
	stats := make([]LevelStat, 0, len(c.Levels))
	for _, lv := range c.Levels {
		s := LevelStat{LevelID: lv.ID, Name: lv.Name, TotalModules: len(lv.Modules)}
		for _, m := range lv.Modules {
			if done[m.ID] {
				s.CompletedModules++
			}
		}
		s.ProgressPercentage = curriculum.Percent(s.CompletedModules, s.TotalModules)
		s.IsCompleted = s.TotalModules > 0 && s.CompletedModules == s.TotalModules
		stats = append(stats, s)
	}
	return stats
}

func completedSet(records []store.ProgressRecord) map[string]bool {
	done := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Completed {
			done[r.ModuleID] = true
		}
	}
	return done
}

// meanScore is the half-up rounded mean score, 0 without attempts.
func meanScore(results []store.QuizResult) int {
	if len(results) == 0 {
		return 0
	}
	sum := 0
	for _, r := range results {
		sum += r.Score
	}
	n := len(results)
	return (2*sum + n) / (2 * n)
}

func lastActivity(records []store.ProgressRecord, results []store.QuizResult) *LastActivity {
	var last *LastActivity
	for _, r := range records {
		if last == nil || r.UpdatedAt.After(last.At) {
			last = &LastActivity{At: r.UpdatedAt, Kind: KindProgress, ModuleID: r.ModuleID}
		}
	}
	for _, r := range results {
		if last == nil || r.CompletionDate.After(last.At) {
			last = &LastActivity{At: r.CompletionDate, Kind: KindQuiz, ModuleID: r.ModuleID}
		}
	}
	return last
}

// streak counts consecutive calendar days with activity, ending today or
// yesterday in now's location.
func streak(records []store.ProgressRecord, results []store.QuizResult, now time.Time) int {
	const layout = "2006-01-02"
	loc := now.Location()

	days := make(map[string]bool)
	for _, r := range records {
		days[r.UpdatedAt.In(loc).Format(layout)] = true
	}
	for _, r := range results {
		days[r.CompletionDate.In(loc).Format(layout)] = true
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, loc)
	if !days[day.Format(layout)] {
		day = day.AddDate(0, 0, -1)
	}
	n := 0
	for days[day.Format(layout)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}
