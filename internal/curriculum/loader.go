package curriculum

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
)

//go:embed catalog/*.yaml
var embedded embed.FS

// Loader loads and caches the curriculum catalog. Curricula keep the order in
// which their documents were read (lexical by file name).
type Loader struct {
	curricula []Curriculum
	byID      map[string]int
	modules   map[string]ModuleRef
	mu        sync.RWMutex
}

// Default loads the catalog compiled into the binary.
func Default() (*Loader, error) {
	return LoadFS(embedded, "catalog")
}

// NewLoader loads every curriculum document under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	if _, err := os.Stat(rootDir); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}
	return LoadFS(os.DirFS(rootDir), ".")
}

// LoadFS loads every *.yaml / *.yml document under root in fsys.
func LoadFS(fsys fs.FS, root string) (*Loader, error) {
	l := &Loader{
		byID:    make(map[string]int),
		modules: make(map[string]ModuleRef),
	}

	if err := l.loadAll(fsys, root); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}
	if len(l.curricula) == 0 {
		return nil, fmt.Errorf("loading curriculum: no documents under %q", root)
	}

	slog.Info("curriculum loaded", "curricula", len(l.curricula), "modules", len(l.modules))
	return l, nil
}

func (l *Loader) loadAll(fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch path.Ext(p) {
		case ".yaml", ".yml":
			return l.loadDocument(fsys, p)
		}
		return nil
	})
}

func (l *Loader) loadDocument(fsys fs.FS, p string) error {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return err
	}

	if err := ValidateDocument(data); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}

	var c Curriculum
	if err := yaml.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.byID[c.ID]; dup {
		return fmt.Errorf("%s: duplicate curriculum %q", p, c.ID)
	}
	for _, lv := range c.Levels {
		for _, m := range lv.Modules {
			if prev, dup := l.modules[m.ID]; dup {
				return fmt.Errorf("%s: module %q already defined in %s/%s", p, m.ID, prev.CurriculumID, prev.LevelID)
			}
			l.modules[m.ID] = ModuleRef{CurriculumID: c.ID, LevelID: lv.ID, Module: m}
		}
	}

	l.byID[c.ID] = len(l.curricula)
	l.curricula = append(l.curricula, c)
	return nil
}

// Curricula returns all curricula in catalog order.
func (l *Loader) Curricula() []Curriculum {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Curriculum, len(l.curricula))
	copy(out, l.curricula)
	return out
}

// GetCurriculum returns a curriculum by ID.
func (l *Loader) GetCurriculum(id string) (Curriculum, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byID[id]
	if !ok {
		return Curriculum{}, false
	}
	return l.curricula[i], true
}

// GetLevel returns a level of a curriculum.
func (l *Loader) GetLevel(curriculumID, levelID string) (Level, bool) {
	c, ok := l.GetCurriculum(curriculumID)
	if !ok {
		return Level{}, false
	}
	for _, lv := range c.Levels {
		if lv.ID == levelID {
			return lv, true
		}
	}
	return Level{}, false
}

// GetModule returns a module and its location by module ID.
func (l *Loader) GetModule(id string) (ModuleRef, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.modules[id]
	return m, ok
}

// ModuleIDs returns the module IDs of a level in catalog order.
func (l *Loader) ModuleIDs(curriculumID, levelID string) []string {
	lv, ok := l.GetLevel(curriculumID, levelID)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(lv.Modules))
	for _, m := range lv.Modules {
		ids = append(ids, m.ID)
	}
	return ids
}

// AllModules returns every module in catalog order.
func (l *Loader) AllModules() []ModuleRef {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var refs []ModuleRef
	for _, c := range l.curricula {
		for _, lv := range c.Levels {
			for _, m := range lv.Modules {
				refs = append(refs, ModuleRef{CurriculumID: c.ID, LevelID: lv.ID, Module: m})
			}
		}
	}
	return refs
}

// Locate checks that module belongs to curriculum/level.
func (l *Loader) Locate(curriculumID, levelID, moduleID string) error {
	if _, ok := l.GetLevel(curriculumID, levelID); !ok {
		return apperr.NewValidation("level", "unknown curriculum or level")
	}
	ref, ok := l.GetModule(moduleID)
	if !ok || ref.CurriculumID != curriculumID || ref.LevelID != levelID {
		return apperr.NewValidation("module_id", "unknown module for level")
	}
	return nil
}

// Badges returns one badge per level in catalog order.
func (l *Loader) Badges() []Badge {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var badges []Badge
	for _, c := range l.curricula {
		for _, lv := range c.Levels {
			badges = append(badges, badgeFor(c, lv))
		}
	}
	return badges
}

// GetBadge returns the badge awarded for a curriculum level.
func (l *Loader) GetBadge(curriculumID, levelID string) (Badge, bool) {
	c, ok := l.GetCurriculum(curriculumID)
	if !ok {
		return Badge{}, false
	}
	for _, lv := range c.Levels {
		if lv.ID == levelID {
			return badgeFor(c, lv), true
		}
	}
	return Badge{}, false
}

func badgeFor(c Curriculum, lv Level) Badge {
	title := lv.Badge.Title
	if title == "" {
		title = c.Name + " - " + lv.Name
	}
	return Badge{
		ID:               BadgeID(c.ID, lv.ID),
		CurriculumID:     c.ID,
		LevelID:          lv.ID,
		Name:             lv.Badge.Name,
		Icon:             lv.Badge.Icon,
		Description:      lv.Badge.Description,
		CertificateTitle: title,
	}
}

// Grade holds the outcome of grading one quiz submission.
type Grade struct {
	ModuleID string
	Total    int
	Correct  int
	Score    int
	Answers  []int
}

// Passed reports whether the score reaches PassingScore.
func (g Grade) Passed() bool {
	return g.Score >= PassingScore
}

// GradeQuiz grades answers (selected option index per question) against the
// module's quiz. score = round(100*correct/total), rounding half up.
func (l *Loader) GradeQuiz(moduleID string, answers []int) (Grade, error) {
	ref, ok := l.GetModule(moduleID)
	if !ok {
		return Grade{}, fmt.Errorf("grading %s: %w", moduleID, apperr.ErrNotFound)
	}
	quiz := ref.Module.Quiz
	if len(answers) != len(quiz) {
		return Grade{}, apperr.NewValidation("answers", fmt.Sprintf("expected %d answers, got %d", len(quiz), len(answers)))
	}

	correct := 0
	for i, q := range quiz {
		if answers[i] == q.Correct {
			correct++
		}
	}

	return Grade{
		ModuleID: moduleID,
		Total:    len(quiz),
		Correct:  correct,
		Score:    Percent(correct, len(quiz)),
		Answers:  append([]int(nil), answers...),
	}, nil
}

// Percent returns round(100*part/total) with half-up rounding, 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}

// String formats the location as curriculum/level/module.
func (r ModuleRef) String() string {
	return strings.Join([]string{r.CurriculumID, r.LevelID, r.Module.ID}, "/")
}
