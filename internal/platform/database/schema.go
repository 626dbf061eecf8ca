package database

// schema is applied in order by Migrate. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID DEFAULT gen_random_uuid() PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		full_name TEXT NOT NULL DEFAULT '',
		nip TEXT NOT NULL DEFAULT '',
		jabatan TEXT NOT NULL DEFAULT '',
		unit_kerja TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_progress (
		id UUID DEFAULT gen_random_uuid() PRIMARY KEY,
		user_id TEXT NOT NULL,
		curriculum_id TEXT NOT NULL,
		level_id TEXT NOT NULL,
		module_id TEXT NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		completion_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, curriculum_id, level_id, module_id)
	)`,
	`CREATE TABLE IF NOT EXISTS quiz_results (
		id UUID DEFAULT gen_random_uuid() PRIMARY KEY,
		user_id TEXT NOT NULL,
		module_id TEXT NOT NULL,
		score INTEGER NOT NULL CHECK (score >= 0 AND score <= 100),
		total_questions INTEGER NOT NULL,
		correct_answers INTEGER NOT NULL,
		answers JSONB,
		completion_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS quiz_results_user_idx ON quiz_results (user_id, completion_date DESC)`,
	`CREATE TABLE IF NOT EXISTS certificates (
		id UUID DEFAULT gen_random_uuid() PRIMARY KEY,
		user_id TEXT NOT NULL,
		curriculum_id TEXT NOT NULL,
		level_id TEXT NOT NULL,
		certificate_type TEXT NOT NULL,
		verification_code TEXT UNIQUE NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		issued_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS activity_logs (
		id UUID DEFAULT gen_random_uuid() PRIMARY KEY,
		user_id TEXT NOT NULL,
		activity_type TEXT NOT NULL,
		description TEXT NOT NULL,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS activity_logs_user_idx ON activity_logs (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS video_progress (
		user_id TEXT NOT NULL,
		module_id TEXT NOT NULL,
		video_index INTEGER NOT NULL,
		position_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
		progress_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		completed_at TIMESTAMPTZ,
		last_watched TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, module_id, video_index)
	)`,
}
