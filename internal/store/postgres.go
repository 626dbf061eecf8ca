package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
)

const uniqueViolation = "23505"

// PostgresStore is the PostgreSQL-backed Store and UserStore.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a record store on an open pool. The schema is
// expected to be migrated already.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Mode() string { return ModeRemote }

func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return s.pool.Ping(ctx)
}

const progressColumns = `id::text, user_id, curriculum_id, level_id, module_id, completed, completion_date, created_at, updated_at`

func scanProgress(row pgx.Row) (ProgressRecord, error) {
	var r ProgressRecord
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.CurriculumID,
		&r.LevelID,
		&r.ModuleID,
		&r.Completed,
		&r.CompletionDate,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

func (s *PostgresStore) UpsertProgress(ctx context.Context, key ProgressKey, patch Patch) (ProgressRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rec, err := scanProgress(s.pool.QueryRow(ctx,
		`INSERT INTO user_progress (user_id, curriculum_id, level_id, module_id, completed, completion_date)
		 VALUES ($1, $2, $3, $4, COALESCE($5::boolean, FALSE), $6::timestamptz)
		 ON CONFLICT (user_id, curriculum_id, level_id, module_id) DO UPDATE SET
		   completed = COALESCE($5::boolean, user_progress.completed),
		   completion_date = COALESCE($6::timestamptz, user_progress.completion_date),
		   updated_at = NOW()
		 RETURNING `+progressColumns,
		key.UserID,
		key.CurriculumID,
		key.LevelID,
		key.ModuleID,
		patch.Completed,
		patch.CompletionDate,
	))
	if err != nil {
		return ProgressRecord{}, fmt.Errorf("upsert progress: %w", err)
	}

	slog.Debug("progress saved",
		"user_id", key.UserID,
		"module_id", key.ModuleID,
		"completed", rec.Completed,
	)
	return rec, nil
}

func (s *PostgresStore) GetProgress(ctx context.Context, key ProgressKey) (*ProgressRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rec, err := scanProgress(s.pool.QueryRow(ctx,
		`SELECT `+progressColumns+`
		 FROM user_progress
		 WHERE user_id = $1 AND curriculum_id = $2 AND level_id = $3 AND module_id = $4`,
		key.UserID, key.CurriculumID, key.LevelID, key.ModuleID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) ListProgress(ctx context.Context, userID string, filter ProgressFilter) ([]ProgressRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+progressColumns+`
		 FROM user_progress
		 WHERE user_id = $1
		   AND ($2 = '' OR curriculum_id = $2)
		   AND ($3 = '' OR level_id = $3)
		 ORDER BY updated_at DESC`,
		userID, filter.CurriculumID, filter.LevelID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	records := []ProgressRecord{}
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) InsertQuizResult(ctx context.Context, r QuizResult) (QuizResult, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	answers, err := json.Marshal(nonNilInts(r.Answers))
	if err != nil {
		return QuizResult{}, fmt.Errorf("marshal answers: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO quiz_results (user_id, module_id, score, total_questions, correct_answers, answers, completion_date)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, COALESCE($7::timestamptz, NOW()))
		 RETURNING id::text, completion_date, created_at`,
		r.UserID,
		r.ModuleID,
		r.Score,
		r.TotalQuestions,
		r.CorrectAnswers,
		string(answers),
		nullIfZeroTime(r.CompletionDate),
	).Scan(&r.ID, &r.CompletionDate, &r.CreatedAt)
	if err != nil {
		return QuizResult{}, fmt.Errorf("insert quiz result: %w", err)
	}

	slog.Debug("quiz result saved", "user_id", r.UserID, "module_id", r.ModuleID, "score", r.Score)
	return r, nil
}

func (s *PostgresStore) ListQuizResults(ctx context.Context, userID, moduleID string) ([]QuizResult, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, user_id, module_id, score, total_questions, correct_answers, answers, completion_date, created_at
		 FROM quiz_results
		 WHERE user_id = $1 AND ($2 = '' OR module_id = $2)
		 ORDER BY completion_date DESC, created_at DESC`,
		userID, moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("query quiz results: %w", err)
	}
	defer rows.Close()

	results := []QuizResult{}
	for rows.Next() {
		var r QuizResult
		var answers []byte
		if err := rows.Scan(
			&r.ID,
			&r.UserID,
			&r.ModuleID,
			&r.Score,
			&r.TotalQuestions,
			&r.CorrectAnswers,
			&answers,
			&r.CompletionDate,
			&r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan quiz result: %w", err)
		}
		if len(answers) > 0 {
			if err := json.Unmarshal(answers, &r.Answers); err != nil {
				slog.Warn("ignoring malformed quiz answers", "id", r.ID, "error", err)
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PostgresStore) InsertCertificate(ctx context.Context, c Certificate) (Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	metadata, err := json.Marshal(c.Snapshot)
	if err != nil {
		return Certificate{}, fmt.Errorf("marshal certificate metadata: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO certificates (user_id, curriculum_id, level_id, certificate_type, verification_code, metadata, issued_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, COALESCE($7::timestamptz, NOW()))
		 RETURNING id::text, issued_at`,
		c.UserID,
		c.CurriculumID,
		c.LevelID,
		c.CertificateType,
		c.VerificationCode,
		string(metadata),
		nullIfZeroTime(c.IssuedAt),
	).Scan(&c.ID, &c.IssuedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Certificate{}, fmt.Errorf("insert certificate %s: %w", c.VerificationCode, apperr.ErrConflict)
		}
		return Certificate{}, fmt.Errorf("insert certificate: %w", err)
	}
	return c, nil
}

const certificateColumns = `id::text, user_id, curriculum_id, level_id, certificate_type, verification_code, metadata, issued_at`

func scanCertificate(row pgx.Row) (Certificate, error) {
	var c Certificate
	var metadata []byte
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.CurriculumID,
		&c.LevelID,
		&c.CertificateType,
		&c.VerificationCode,
		&metadata,
		&c.IssuedAt,
	); err != nil {
		return Certificate{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Snapshot); err != nil {
			return Certificate{}, fmt.Errorf("decode certificate metadata: %w", err)
		}
	}
	return c, nil
}

func (s *PostgresStore) ListCertificates(ctx context.Context, userID string) ([]Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+certificateColumns+`
		 FROM certificates
		 WHERE user_id = $1
		 ORDER BY issued_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query certificates: %w", err)
	}
	defer rows.Close()

	certs := []Certificate{}
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		certs = append(certs, c)
	}
	return certs, rows.Err()
}

func (s *PostgresStore) CertificateByCode(ctx context.Context, code string) (*Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	c, err := scanCertificate(s.pool.QueryRow(ctx,
		`SELECT `+certificateColumns+`
		 FROM certificates
		 WHERE verification_code = $1`,
		code,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) InsertActivity(ctx context.Context, e ActivityEntry) (ActivityEntry, error) {
	if e.Type == "" {
		return ActivityEntry{}, fmt.Errorf("activity_type is required")
	}

	payload := e.Metadata
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ActivityEntry{}, fmt.Errorf("marshal activity metadata: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err = s.pool.QueryRow(ctx,
		`INSERT INTO activity_logs (user_id, activity_type, description, metadata, created_at)
		 VALUES ($1, $2, $3, $4::jsonb, COALESCE($5::timestamptz, NOW()))
		 RETURNING id::text, created_at`,
		e.UserID,
		e.Type,
		e.Description,
		string(data),
		nullIfZeroTime(e.CreatedAt),
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return ActivityEntry{}, fmt.Errorf("insert activity: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ListActivities(ctx context.Context, userID string, limit int) ([]ActivityEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, user_id, activity_type, description, metadata, created_at
		 FROM activity_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	entries := []ActivityEntry{}
	for rows.Next() {
		var e ActivityEntry
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Description, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				slog.Warn("ignoring malformed activity metadata", "id", e.ID, "error", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) UpsertVideoProgress(ctx context.Context, v VideoProgress) (VideoProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := s.pool.QueryRow(ctx,
		`INSERT INTO video_progress (user_id, module_id, video_index, position_seconds, progress_percent, completed_at, last_watched)
		 VALUES ($1, $2, $3, $4, $5, $6::timestamptz, NOW())
		 ON CONFLICT (user_id, module_id, video_index) DO UPDATE SET
		   position_seconds = EXCLUDED.position_seconds,
		   progress_percent = EXCLUDED.progress_percent,
		   completed_at = COALESCE(EXCLUDED.completed_at, video_progress.completed_at),
		   last_watched = NOW()
		 RETURNING completed_at, last_watched`,
		v.UserID,
		v.ModuleID,
		v.VideoIndex,
		v.PositionSeconds,
		v.ProgressPercent,
		v.CompletedAt,
	).Scan(&v.CompletedAt, &v.LastWatched)
	if err != nil {
		return VideoProgress{}, fmt.Errorf("upsert video progress: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) GetVideoProgress(ctx context.Context, userID, moduleID string, videoIndex int) (*VideoProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	v := VideoProgress{UserID: userID, ModuleID: moduleID, VideoIndex: videoIndex}
	err := s.pool.QueryRow(ctx,
		`SELECT position_seconds, progress_percent, completed_at, last_watched
		 FROM video_progress
		 WHERE user_id = $1 AND module_id = $2 AND video_index = $3`,
		userID, moduleID, videoIndex,
	).Scan(&v.PositionSeconds, &v.ProgressPercent, &v.CompletedAt, &v.LastWatched)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video progress: %w", err)
	}
	return &v, nil
}

const userColumns = `id::text, email, full_name, nip, jabatan, unit_kerja, created_at, updated_at`

func scanUser(row pgx.Row, extra ...any) (User, error) {
	var u User
	dest := append([]any{
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.NIP,
		&u.Jabatan,
		&u.UnitKerja,
		&u.CreatedAt,
		&u.UpdatedAt,
	}, extra...)
	err := row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.ErrNotFound
	}
	return u, err
}

func (s *PostgresStore) CreateUser(ctx context.Context, u User, passwordHash string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	created, err := scanUser(s.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, full_name, nip, jabatan, unit_kerja)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userColumns,
		strings.ToLower(u.Email),
		passwordHash,
		u.FullName,
		u.NIP,
		u.Jabatan,
		u.UnitKerja,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, fmt.Errorf("create user %s: %w", u.Email, apperr.ErrConflict)
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (User, string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var hash string
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash
		 FROM users
		 WHERE email = $1`,
		strings.ToLower(email),
	), &hash)
	if err != nil {
		return User{}, "", fmt.Errorf("get user by email: %w", err)
	}
	return u, hash, nil
}

func (s *PostgresStore) UserByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, fmt.Errorf("get user %q: %w", id, apperr.ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1::uuid`,
		id,
	))
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u User) (User, error) {
	if _, err := uuid.Parse(u.ID); err != nil {
		return User{}, fmt.Errorf("update user %q: %w", u.ID, apperr.ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	updated, err := scanUser(s.pool.QueryRow(ctx,
		`UPDATE users
		 SET full_name = $2, nip = $3, jabatan = $4, unit_kerja = $5, updated_at = NOW()
		 WHERE id = $1::uuid
		 RETURNING `+userColumns,
		u.ID, u.FullName, u.NIP, u.Jabatan, u.UnitKerja,
	))
	if err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("update password %q: %w", id, apperr.ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1::uuid`,
		id, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update password %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullIfZeroTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}
