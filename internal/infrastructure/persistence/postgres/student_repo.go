package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Grihladin/42Connect/internal/domain/shared"
	"github.com/Grihladin/42Connect/internal/domain/student"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `
	id, intra_id, login, display_name, email, image_url, campus,
	ready_to_help, vibe_text, last_synced_at, created_at, updated_at
`

// Upsert creates a student or refreshes their profile by Intra ID.
// Preference fields (ready_to_help, vibe_text) are owned by 42Connect and
// are never overwritten by a sync.
func (r *StudentRepository) Upsert(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (
			intra_id, login, display_name, email, image_url, campus, last_synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (intra_id) DO UPDATE SET
			login          = EXCLUDED.login,
			display_name   = EXCLUDED.display_name,
			email          = EXCLUDED.email,
			image_url      = EXCLUDED.image_url,
			campus         = EXCLUDED.campus,
			last_synced_at = EXCLUDED.last_synced_at,
			updated_at     = NOW()
		RETURNING ` + studentColumns

	row := r.conn.QueryRow(ctx, query,
		s.IntraID,
		string(s.Login),
		s.DisplayName,
		s.Email,
		s.ImageURL,
		s.Campus,
		s.LastSyncedAt,
	)

	saved, err := scanStudent(row)
	if err != nil {
		return fmt.Errorf("failed to upsert student %s: %w", s.Login, err)
	}

	*s = *saved
	return nil
}

// GetByLogin returns a student by login.
func (r *StudentRepository) GetByLogin(ctx context.Context, login student.Login) (*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE login = $1`

	s, err := scanStudent(r.conn.QueryRow(ctx, query, string(login)))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student by login: %w", err)
	}

	return s, nil
}

// GetByIntraID returns a student by their Intra platform id.
func (r *StudentRepository) GetByIntraID(ctx context.Context, intraID int64) (*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE intra_id = $1`

	s, err := scanStudent(r.conn.QueryRow(ctx, query, intraID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student by intra id: %w", err)
	}

	return s, nil
}

// ListLogins returns the logins of all known students, for background resync.
func (r *StudentRepository) ListLogins(ctx context.Context) ([]student.Login, error) {
	rows, err := r.conn.Query(ctx, `SELECT login FROM students ORDER BY login`)
	if err != nil {
		return nil, fmt.Errorf("failed to list logins: %w", err)
	}
	defer rows.Close()

	var logins []student.Login
	for rows.Next() {
		var login string
		if err := rows.Scan(&login); err != nil {
			return nil, fmt.Errorf("failed to scan login: %w", err)
		}
		logins = append(logins, student.Login(login))
	}

	return logins, rows.Err()
}

// UpdatePreferences stores the help opt-in flag and vibe text.
// nil fields are left unchanged.
func (r *StudentRepository) UpdatePreferences(ctx context.Context, login student.Login, p student.PreferenceUpdate) (*student.Student, error) {
	if p.IsEmpty() {
		return r.GetByLogin(ctx, login)
	}

	sets := []string{"updated_at = NOW()"}
	args := []interface{}{string(login)}

	if p.ReadyToHelp != nil {
		args = append(args, *p.ReadyToHelp)
		sets = append(sets, "ready_to_help = $"+strconv.Itoa(len(args)))
	}
	if p.VibeText != nil {
		args = append(args, strings.TrimSpace(*p.VibeText))
		sets = append(sets, "vibe_text = $"+strconv.Itoa(len(args)))
	}

	query := `
		UPDATE students SET ` + strings.Join(sets, ", ") + `
		WHERE login = $1
		RETURNING ` + studentColumns

	s, err := scanStudent(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to update preferences for %s: %w", login, err)
	}

	return s, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Cursus enrollments
// ─────────────────────────────────────────────────────────────────────────────

const cursusColumns = `
	ce.id, ce.cursus_id, ce.name, ce.slug, ce.grade, ce.level,
	ce.began_at, ce.ended_at, ce.synced_at
`

// ReplaceCursus atomically replaces a student's cursus enrollments with a
// fresh sync snapshot.
func (r *StudentRepository) ReplaceCursus(ctx context.Context, login student.Login, enrollments []student.CursusEnrollment) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		var studentID string
		err := tx.QueryRow(ctx, `SELECT id FROM students WHERE login = $1`, string(login)).Scan(&studentID)
		if err != nil {
			if IsNoRows(err) {
				return shared.ErrStudentNotFound
			}
			return fmt.Errorf("failed to resolve student %s: %w", login, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM cursus_enrollments WHERE student_id = $1`, studentID); err != nil {
			return fmt.Errorf("failed to clear cursus for %s: %w", login, err)
		}

		batch := &pgx.Batch{}
		for _, e := range enrollments {
			batch.Queue(`
				INSERT INTO cursus_enrollments (
					id, student_id, cursus_id, name, slug, grade, level,
					began_at, ended_at, synced_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`,
				e.ID,
				studentID,
				e.CursusID,
				e.Name,
				e.Slug,
				e.Grade,
				e.Level,
				e.BeganAt,
				e.EndedAt,
				e.SyncedAt,
			)
		}

		results := tx.SendBatch(ctx, batch)
		defer results.Close()

		for range enrollments {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("failed to insert cursus for %s: %w", login, err)
			}
		}

		return nil
	})
}

// ListCursus returns a student's cursus enrollments, active ones first,
// then by begin date, newest first.
func (r *StudentRepository) ListCursus(ctx context.Context, login student.Login) ([]student.CursusEnrollment, error) {
	query := `
		SELECT ` + cursusColumns + `
		FROM cursus_enrollments ce
		JOIN students s ON s.id = ce.student_id
		WHERE s.login = $1
		ORDER BY ce.ended_at IS NOT NULL, ce.began_at DESC NULLS LAST
	`

	rows, err := r.conn.Query(ctx, query, string(login))
	if err != nil {
		return nil, fmt.Errorf("failed to list cursus for %s: %w", login, err)
	}
	defer rows.Close()

	var enrollments []student.CursusEnrollment
	for rows.Next() {
		e, err := scanCursus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cursus: %w", err)
		}
		enrollments = append(enrollments, e)
	}

	return enrollments, rows.Err()
}

// scanCursus scans a single cursus enrollment row.
func scanCursus(row pgx.Row) (student.CursusEnrollment, error) {
	var e student.CursusEnrollment

	err := row.Scan(
		&e.ID,
		&e.CursusID,
		&e.Name,
		&e.Slug,
		&e.Grade,
		&e.Level,
		&e.BeganAt,
		&e.EndedAt,
		&e.SyncedAt,
	)
	if err != nil {
		return student.CursusEnrollment{}, err
	}

	return e, nil
}

// scanStudent scans a single student row.
func scanStudent(row pgx.Row) (*student.Student, error) {
	var (
		s            student.Student
		login        string
		readyToHelp  *bool
		lastSyncedAt *time.Time
	)

	err := row.Scan(
		&s.ID,
		&s.IntraID,
		&login,
		&s.DisplayName,
		&s.Email,
		&s.ImageURL,
		&s.Campus,
		&readyToHelp,
		&s.VibeText,
		&lastSyncedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Login = student.Login(login)
	s.ReadyToHelp = student.OptInFromBool(readyToHelp)
	if lastSyncedAt != nil {
		s.LastSyncedAt = lastSyncedAt.UTC()
	}

	return &s, nil
}
