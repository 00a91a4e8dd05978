package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Grihladin/42Connect/internal/domain/matching"
	"github.com/Grihladin/42Connect/internal/domain/project"
	"github.com/Grihladin/42Connect/internal/domain/shared"
	"github.com/Grihladin/42Connect/internal/domain/student"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROJECT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProjectRepository implements project.Repository and matching.PoolRepository
// for PostgreSQL.
type ProjectRepository struct {
	conn *Connection
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(conn *Connection) *ProjectRepository {
	return &ProjectRepository{conn: conn}
}

const recordColumns = `
	pr.id, pr.project_id, pr.name, pr.slug, pr.status, pr.final_mark,
	pr.validated, pr.progress_percent, pr.synced_at, pr.marked_at, pr.finished_at
`

// ─────────────────────────────────────────────────────────────────────────────
// project.Repository
// ─────────────────────────────────────────────────────────────────────────────

// ReplaceForStudent atomically replaces a student's records with a fresh
// sync snapshot. Records gone from the platform are gone from the table.
func (r *ProjectRepository) ReplaceForStudent(ctx context.Context, login student.Login, records []project.Record) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		var studentID string
		err := tx.QueryRow(ctx, `SELECT id FROM students WHERE login = $1`, string(login)).Scan(&studentID)
		if err != nil {
			if IsNoRows(err) {
				return shared.ErrStudentNotFound
			}
			return fmt.Errorf("failed to resolve student %s: %w", login, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM project_records WHERE student_id = $1`, studentID); err != nil {
			return fmt.Errorf("failed to clear records for %s: %w", login, err)
		}

		batch := &pgx.Batch{}
		for _, rec := range records {
			batch.Queue(`
				INSERT INTO project_records (
					id, student_id, project_id, name, slug, status, final_mark,
					validated, progress_percent, synced_at, marked_at, finished_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			`,
				int64(rec.ID),
				studentID,
				int64(rec.ProjectID),
				rec.Name,
				rec.Slug,
				string(rec.Status),
				rec.FinalMark,
				rec.Validated,
				rec.ProgressPercent,
				rec.SyncedAt,
				rec.MarkedAt,
				rec.FinishedAt,
			)
		}

		results := tx.SendBatch(ctx, batch)
		defer results.Close()

		for range records {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("failed to insert record for %s: %w", login, err)
			}
		}

		return nil
	})
}

// ListForStudent returns all records for a student, unordered.
func (r *ProjectRepository) ListForStudent(ctx context.Context, login student.Login) ([]project.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM project_records pr
		JOIN students s ON s.id = pr.student_id
		WHERE s.login = $1
	`

	rows, err := r.conn.Query(ctx, query, string(login))
	if err != nil {
		return nil, fmt.Errorf("failed to list records for %s: %w", login, err)
	}
	defer rows.Close()

	var records []project.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// matching.PoolRepository
// ─────────────────────────────────────────────────────────────────────────────

// FinishedPool returns other students' finished records for the given
// projects. The opt-in filter lives in this query: only students with
// ready_to_help = TRUE appear in the pool.
func (r *ProjectRepository) FinishedPool(ctx context.Context, projectIDs []project.ID, exclude student.Login) ([]matching.FinishedRecord, error) {
	if len(projectIDs) == 0 {
		return []matching.FinishedRecord{}, nil
	}

	ids := make([]int64, 0, len(projectIDs))
	for _, id := range projectIDs {
		ids = append(ids, int64(id))
	}

	query := `
		SELECT
			s.login, s.display_name, s.campus, s.ready_to_help, s.vibe_text,
			` + recordColumns + `
		FROM project_records pr
		JOIN students s ON s.id = pr.student_id
		WHERE pr.status = 'finished'
		  AND pr.project_id = ANY($1)
		  AND s.ready_to_help = TRUE
		  AND s.login <> $2
		ORDER BY pr.finished_at DESC NULLS LAST
	`

	rows, err := r.conn.Query(ctx, query, ids, string(exclude))
	if err != nil {
		return nil, fmt.Errorf("failed to query finished pool: %w", err)
	}
	defer rows.Close()

	pool := []matching.FinishedRecord{}
	for rows.Next() {
		var (
			summary     student.Summary
			login       string
			readyToHelp *bool
		)

		rec := project.Record{}
		err := rows.Scan(
			&login,
			&summary.DisplayName,
			&summary.Campus,
			&readyToHelp,
			&summary.VibeText,
			&rec.ID,
			&rec.ProjectID,
			&rec.Name,
			&rec.Slug,
			&rec.Status,
			&rec.FinalMark,
			&rec.Validated,
			&rec.ProgressPercent,
			&rec.SyncedAt,
			&rec.MarkedAt,
			&rec.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finished pool row: %w", err)
		}

		summary.Login = student.Login(login)
		summary.ReadyToHelp = student.OptInFromBool(readyToHelp)

		pool = append(pool, matching.FinishedRecord{Student: summary, Record: rec})
	}

	return pool, rows.Err()
}

// VibePool returns members with a non-empty vibe text together with their
// project records. No opt-in filter here: sharing a vibe is its own consent.
func (r *ProjectRepository) VibePool(ctx context.Context, exclude student.Login) ([]matching.VibePoolMember, error) {
	query := `
		SELECT
			s.login, s.display_name, s.campus, s.ready_to_help, s.vibe_text,
			` + recordColumns + `
		FROM students s
		LEFT JOIN project_records pr ON pr.student_id = s.id
		WHERE s.vibe_text <> ''
		  AND s.login <> $1
		ORDER BY s.login
	`

	rows, err := r.conn.Query(ctx, query, string(exclude))
	if err != nil {
		return nil, fmt.Errorf("failed to query vibe pool: %w", err)
	}
	defer rows.Close()

	members := []matching.VibePoolMember{}
	index := map[student.Login]int{}

	for rows.Next() {
		var (
			summary     student.Summary
			login       string
			readyToHelp *bool

			recID       *int64
			projID      *int64
			name        *string
			slug        *string
			status      *string
			finalMark   *int
			validated   *bool
			progress    *int
			syncedAt    *time.Time
			markedAt    *time.Time
			finishedAt  *time.Time
		)

		err := rows.Scan(
			&login,
			&summary.DisplayName,
			&summary.Campus,
			&readyToHelp,
			&summary.VibeText,
			&recID,
			&projID,
			&name,
			&slug,
			&status,
			&finalMark,
			&validated,
			&progress,
			&syncedAt,
			&markedAt,
			&finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vibe pool row: %w", err)
		}

		summary.Login = student.Login(login)
		summary.ReadyToHelp = student.OptInFromBool(readyToHelp)

		i, seen := index[summary.Login]
		if !seen {
			members = append(members, matching.VibePoolMember{
				Student:  summary,
				VibeText: summary.VibeText,
			})
			i = len(members) - 1
			index[summary.Login] = i
		}

		// LEFT JOIN: a member without records has a NULL record id
		if recID == nil {
			continue
		}

		rec := project.Record{
			ID:              project.RecordID(*recID),
			ProjectID:       project.ID(*projID),
			FinalMark:       finalMark,
			Validated:       validated,
			ProgressPercent: progress,
			SyncedAt:        syncedAt,
			MarkedAt:        markedAt,
			FinishedAt:      finishedAt,
		}
		if name != nil {
			rec.Name = *name
		}
		if slug != nil {
			rec.Slug = *slug
		}
		if status != nil {
			rec.Status = project.Status(*status)
		}

		members[i].Projects = append(members[i].Projects, rec)
	}

	return members, rows.Err()
}

// scanRecord scans a single project record row.
func scanRecord(rows pgx.Rows) (project.Record, error) {
	var rec project.Record

	err := rows.Scan(
		&rec.ID,
		&rec.ProjectID,
		&rec.Name,
		&rec.Slug,
		&rec.Status,
		&rec.FinalMark,
		&rec.Validated,
		&rec.ProgressPercent,
		&rec.SyncedAt,
		&rec.MarkedAt,
		&rec.FinishedAt,
	)
	if err != nil {
		return project.Record{}, err
	}

	return rec, nil
}
