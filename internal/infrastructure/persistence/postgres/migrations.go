package postgres

// Embedded schema migrations. Versions are append-only: never edit an
// applied migration, add a new one.

// GetMigrations returns all embedded migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_students",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_project_records",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_matching_indexes",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_cursus_enrollments",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}

const migration001Up = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE students (
    id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    intra_id        BIGINT NOT NULL UNIQUE,
    login           TEXT NOT NULL UNIQUE,
    display_name    TEXT NOT NULL DEFAULT '',
    email           TEXT NOT NULL DEFAULT '',
    image_url       TEXT NOT NULL DEFAULT '',
    campus          TEXT NOT NULL DEFAULT '',
    -- tri-state: NULL = the student has not chosen yet
    ready_to_help   BOOLEAN,
    vibe_text       TEXT NOT NULL DEFAULT '',
    last_synced_at  TIMESTAMP WITH TIME ZONE,
    created_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX idx_students_login ON students (login);
`

const migration001Down = `
DROP TABLE IF EXISTS students;
`

const migration002Up = `
CREATE TABLE project_records (
    -- projects_users id from Intra
    id               BIGINT PRIMARY KEY,
    student_id       UUID NOT NULL REFERENCES students (id) ON DELETE CASCADE,
    -- stable project id, shared across students
    project_id       BIGINT NOT NULL,
    name             TEXT NOT NULL DEFAULT '',
    slug             TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL DEFAULT '',
    final_mark       INTEGER,
    validated        BOOLEAN,
    progress_percent INTEGER,
    synced_at        TIMESTAMP WITH TIME ZONE,
    marked_at        TIMESTAMP WITH TIME ZONE,
    finished_at      TIMESTAMP WITH TIME ZONE
);

CREATE INDEX idx_project_records_student ON project_records (student_id);
`

const migration002Down = `
DROP TABLE IF EXISTS project_records;
`

const migration003Up = `
-- Helper pool: finished records per project, only opted-in students land in
-- the pool, so the partial indexes match the pool queries exactly.
CREATE INDEX idx_project_records_finished
    ON project_records (project_id)
    WHERE status = 'finished';

CREATE INDEX idx_students_ready_to_help
    ON students (id)
    WHERE ready_to_help = TRUE;

CREATE INDEX idx_students_with_vibe
    ON students (id)
    WHERE vibe_text <> '';
`

const migration003Down = `
DROP INDEX IF EXISTS idx_students_with_vibe;
DROP INDEX IF EXISTS idx_students_ready_to_help;
DROP INDEX IF EXISTS idx_project_records_finished;
`

const migration004Up = `
CREATE TABLE cursus_enrollments (
    -- cursus_users id from Intra
    id          BIGINT PRIMARY KEY,
    student_id  UUID NOT NULL REFERENCES students (id) ON DELETE CASCADE,
    -- stable cursus id, shared across students
    cursus_id   BIGINT NOT NULL,
    name        TEXT NOT NULL DEFAULT '',
    slug        TEXT NOT NULL DEFAULT '',
    grade       TEXT NOT NULL DEFAULT '',
    level       DOUBLE PRECISION NOT NULL DEFAULT 0,
    began_at    TIMESTAMP WITH TIME ZONE,
    ended_at    TIMESTAMP WITH TIME ZONE,
    synced_at   TIMESTAMP WITH TIME ZONE
);

CREATE INDEX idx_cursus_enrollments_student ON cursus_enrollments (student_id);
`

const migration004Down = `
DROP TABLE IF EXISTS cursus_enrollments;
`
