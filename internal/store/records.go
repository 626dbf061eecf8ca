package store

import "time"

// ProgressKey identifies one learner's progress on one module.
type ProgressKey struct {
	UserID       string
	CurriculumID string
	LevelID      string
	ModuleID     string
}

// CacheKey is the session-local cache key "curriculum-level-module".
func (k ProgressKey) CacheKey() string {
	return k.CurriculumID + "-" + k.LevelID + "-" + k.ModuleID
}

// ProgressRecord is a learner's completion state for a module.
type ProgressRecord struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	CurriculumID   string     `json:"curriculum_id"`
	LevelID        string     `json:"level_id"`
	ModuleID       string     `json:"module_id"`
	Completed      bool       `json:"completed"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Key returns the record's unique key.
func (r ProgressRecord) Key() ProgressKey {
	return ProgressKey{UserID: r.UserID, CurriculumID: r.CurriculumID, LevelID: r.LevelID, ModuleID: r.ModuleID}
}

// Patch is a partial progress update. Nil fields keep the stored value.
type Patch struct {
	Completed      *bool      `json:"completed,omitempty"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
}

// Apply merges p over r.
func (p Patch) Apply(r *ProgressRecord) {
	if p.Completed != nil {
		r.Completed = *p.Completed
	}
	if p.CompletionDate != nil {
		d := *p.CompletionDate
		r.CompletionDate = &d
	}
}

// ProgressFilter narrows ListProgress. Empty fields match everything.
type ProgressFilter struct {
	CurriculumID string
	LevelID      string
}

func (f ProgressFilter) match(r ProgressRecord) bool {
	return (f.CurriculumID == "" || f.CurriculumID == r.CurriculumID) &&
		(f.LevelID == "" || f.LevelID == r.LevelID)
}

// QuizResult is one quiz attempt. Attempts are never overwritten.
type QuizResult struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ModuleID       string    `json:"module_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	CorrectAnswers int       `json:"correct_answers"`
	Answers        []int     `json:"answers"`
	CompletionDate time.Time `json:"completion_date"`
	CreatedAt      time.Time `json:"created_at"`
}

// CertificateSnapshot freezes learner and catalog data at issue time.
type CertificateSnapshot struct {
	UserName          string    `json:"user_name"`
	NIP               string    `json:"nip"`
	Jabatan           string    `json:"jabatan"`
	UnitKerja         string    `json:"unit_kerja"`
	CurriculumName    string    `json:"curriculum_name"`
	LevelName         string    `json:"level_name"`
	CertificateTitle  string    `json:"certificate_title"`
	CompletionDate    time.Time `json:"completion_date"`
	CertificateNumber string    `json:"certificate_number"`
}

// Certificate is an issued, verifiable credential for a completed level.
type Certificate struct {
	ID               string              `json:"id"`
	UserID           string              `json:"user_id"`
	CurriculumID     string              `json:"curriculum_id"`
	LevelID          string              `json:"level_id"`
	CertificateType  string              `json:"certificate_type"`
	VerificationCode string              `json:"verification_code"`
	IssuedAt         time.Time           `json:"issued_at"`
	Snapshot         CertificateSnapshot `json:"metadata"`
}

// ActivityEntry is one line of a learner's audit trail.
type ActivityEntry struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Type        string         `json:"activity_type"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// User is a learner profile. Password hashes never leave the UserStore.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	NIP       string    `json:"nip"`
	Jabatan   string    `json:"jabatan"`
	UnitKerja string    `json:"unit_kerja"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VideoProgress tracks playback of one video of a module.
type VideoProgress struct {
	UserID          string     `json:"user_id"`
	ModuleID        string     `json:"module_id"`
	VideoIndex      int        `json:"video_index"`
	PositionSeconds float64    `json:"position_seconds"`
	ProgressPercent float64    `json:"progress_percent"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	LastWatched     time.Time  `json:"last_watched"`
}
