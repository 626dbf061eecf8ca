package curriculum

// PassingScore is the minimum quiz score that counts as a pass.
const PassingScore = 70

// Curriculum represents a career track loaded from YAML (e.g., DevOps Engineer).
type Curriculum struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Color       string  `yaml:"color" json:"color,omitempty"`
	Levels      []Level `yaml:"levels" json:"levels"`
}

// Level represents a stage within a curriculum. Modules keep catalog order.
type Level struct {
	ID       string      `yaml:"id" json:"id"`
	Name     string      `yaml:"name" json:"name"`
	Duration string      `yaml:"duration" json:"duration"`
	Badge    BadgeSource `yaml:"badge" json:"badge"`
	Modules  []Module    `yaml:"modules" json:"modules"`
}

// BadgeSource is the badge definition as written in a level document.
type BadgeSource struct {
	Name        string `yaml:"name" json:"name"`
	Icon        string `yaml:"icon" json:"icon"`
	Description string `yaml:"description" json:"description"`
	Title       string `yaml:"title" json:"title"`
}

// Module represents a unit of study. IDs are unique across the catalog.
type Module struct {
	ID          string         `yaml:"id" json:"id"`
	Title       string         `yaml:"title" json:"title"`
	Description string         `yaml:"description" json:"description"`
	Tools       []string       `yaml:"tools" json:"tools"`
	Project     string         `yaml:"project" json:"project"`
	Duration    string         `yaml:"duration" json:"duration"`
	Quiz        []QuizQuestion `yaml:"quiz" json:"quiz"`
	Videos      []Video        `yaml:"videos" json:"videos,omitempty"`
}

// QuizQuestion is a multiple-choice question with exactly four options.
type QuizQuestion struct {
	Question    string   `yaml:"question" json:"question"`
	Options     []string `yaml:"options" json:"options"`
	Correct     int      `yaml:"correct" json:"correct"`
	Explanation string   `yaml:"explanation" json:"explanation"`
}

// Video is an optional learning video attached to a module.
type Video struct {
	Title    string `yaml:"title" json:"title"`
	URL      string `yaml:"url" json:"url"`
	Duration string `yaml:"duration" json:"duration,omitempty"`
}

// Badge is the award granted on completing a level. ID is "<curriculum>_<level>".
type Badge struct {
	ID               string `json:"id"`
	CurriculumID     string `json:"curriculum_id"`
	LevelID          string `json:"level_id"`
	Name             string `json:"name"`
	Icon             string `json:"icon"`
	Description      string `json:"description"`
	CertificateTitle string `json:"certificate_title"`
}

// ModuleRef locates a module inside the catalog tree.
type ModuleRef struct {
	CurriculumID string
	LevelID      string
	Module       Module
}

// BadgeID builds the badge identifier for a curriculum level.
func BadgeID(curriculumID, levelID string) string {
	return curriculumID + "_" + levelID
}
