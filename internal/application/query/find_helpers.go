package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Grihladin/42Connect/internal/domain/matching"
	"github.com/Grihladin/42Connect/internal/domain/project"
	"github.com/Grihladin/42Connect/internal/domain/shared"
	"github.com/Grihladin/42Connect/internal/domain/student"
	"github.com/Grihladin/42Connect/pkg/logger"
	"github.com/Grihladin/42Connect/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIND HELPERS QUERY
// Для каждого активного проекта студента находит однокампусников, которые
// этот проект уже завершили и согласились помогать. Лидерборд кампуса
// превращается в "телефонную книгу помощников".
// ══════════════════════════════════════════════════════════════════════════════

// FindHelpersQuery содержит параметры поиска помощников.
type FindHelpersQuery struct {
	// Login - логин запрашивающего студента.
	Login string

	// Limit - максимум кандидатов на проект (по умолчанию 5, максимум 20).
	Limit int
}

// Validate проверяет корректность параметров и проставляет умолчания.
func (q *FindHelpersQuery) Validate() error {
	if q.Login == "" {
		return errors.New("login is required")
	}
	if q.Limit <= 0 {
		q.Limit = 5
	}
	if q.Limit > 20 {
		q.Limit = 20
	}
	return nil
}

// HelperDTO - кандидат в помощники по конкретному проекту.
type HelperDTO struct {
	// Student - профиль кандидата.
	Student StudentDTO `json:"student"`

	// FinishedAt - момент завершения проекта кандидатом (пусто при Epoch).
	FinishedAt string `json:"finished_at,omitempty"`

	// FinishedAgo - относительное время завершения.
	FinishedAgo string `json:"finished_ago,omitempty"`

	// FinalMark - оценка кандидата за этот проект.
	FinalMark *int `json:"final_mark"`
}

// ProjectHelpersDTO - помощники по одному активному проекту.
type ProjectHelpersDTO struct {
	// ProjectID - стабильный идентификатор проекта.
	ProjectID int64 `json:"project_id"`

	// Name - нормализованное имя проекта.
	Name string `json:"name"`

	// Slug - машинный идентификатор.
	Slug string `json:"slug"`

	// Helpers - кандидаты, самые свежие по завершению первыми.
	// Пустой список - проект отслеживается, но его ещё никто не завершил.
	Helpers []HelperDTO `json:"helpers"`

	// TotalFound - сколько всего кандидатов до применения лимита.
	TotalFound int `json:"total_found"`
}

// FindHelpersResult содержит результат поиска по всем активным проектам.
type FindHelpersResult struct {
	// Projects - активные проекты с кандидатами, в порядке активности
	// запрашивающего (самые свежие первыми).
	Projects []ProjectHelpersDTO `json:"projects"`

	// GeneratedAt - момент генерации.
	GeneratedAt string `json:"generated_at"`
}

// FindHelpersHandler обрабатывает поиск помощников.
type FindHelpersHandler struct {
	studentRepo student.Repository
	projectRepo project.Repository
	poolRepo    matching.PoolRepository
	log         *logger.Logger
}

// NewFindHelpersHandler создаёт новый обработчик.
func NewFindHelpersHandler(
	studentRepo student.Repository,
	projectRepo project.Repository,
	poolRepo matching.PoolRepository,
	log *logger.Logger,
) *FindHelpersHandler {
	if log == nil {
		log = logger.Default()
	}

	return &FindHelpersHandler{
		studentRepo: studentRepo,
		projectRepo: projectRepo,
		poolRepo:    poolRepo,
		log:         log.With(logger.Component("find_helpers")),
	}
}

// Handle выполняет поиск помощников.
func (h *FindHelpersHandler) Handle(ctx context.Context, q FindHelpersQuery) (*FindHelpersResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "FindHelpers", shared.ErrValidation, err.Error(), err)
	}

	login := student.Login(q.Login)

	// Существование запрашивающего проверяем явно, чтобы вернуть
	// ErrStudentNotFound вместо пустого результата.
	if _, err := h.studentRepo.GetByLogin(ctx, login); err != nil {
		return nil, fmt.Errorf("find_helpers: %w", err)
	}

	records, err := h.projectRepo.ListForStudent(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("find_helpers: load records: %w", err)
	}

	// Активные проекты запрашивающего, самые свежие по активности первыми.
	active := activeProjects(records)
	if len(active) == 0 {
		return &FindHelpersResult{
			Projects:    []ProjectHelpersDTO{},
			GeneratedAt: timeutil.FormatInstant(timeutil.UTCNow()),
		}, nil
	}

	activeIDs := make([]project.ID, 0, len(active))
	for _, r := range active {
		activeIDs = append(activeIDs, r.ProjectID)
	}

	// Пул приходит уже отфильтрованным по ready_to_help и без самого
	// запрашивающего.
	pool, err := h.poolRepo.FinishedPool(ctx, activeIDs, login)
	if err != nil {
		return nil, fmt.Errorf("find_helpers: load pool: %w", err)
	}

	byProject := matching.FindHelpers(activeIDs, pool)
	now := timeutil.UTCNow()

	projects := make([]ProjectHelpersDTO, 0, len(active))
	for _, r := range active {
		candidates := byProject[r.ProjectID]

		dto := ProjectHelpersDTO{
			ProjectID:  int64(r.ProjectID),
			Name:       r.Name,
			Slug:       r.Slug,
			Helpers:    make([]HelperDTO, 0, min(len(candidates), q.Limit)),
			TotalFound: len(candidates),
		}

		for i, c := range candidates {
			if i >= q.Limit {
				break
			}
			dto.Helpers = append(dto.Helpers, toHelperDTO(c, now))
		}

		projects = append(projects, dto)
	}

	return &FindHelpersResult{
		Projects:    projects,
		GeneratedAt: timeutil.FormatInstant(now),
	}, nil
}

// activeProjects возвращает незавершённые записи, самые свежие по
// активности первыми. Дубликаты ProjectID схлопываются (пересдачи дают
// несколько записей одного проекта).
func activeProjects(records []project.Record) []project.Record {
	sorted := project.SortByActivity(project.Normalize(records))

	seen := make(map[project.ID]bool, len(sorted))
	active := make([]project.Record, 0, len(sorted))
	for _, r := range sorted {
		if r.IsFinished() || seen[r.ProjectID] {
			continue
		}
		seen[r.ProjectID] = true
		active = append(active, r)
	}

	return active
}

// toHelperDTO превращает кандидата в презентационный вид.
func toHelperDTO(c matching.HelperCandidate, now time.Time) HelperDTO {
	dto := HelperDTO{
		Student:   summaryDTO(c.Student),
		FinalMark: c.FinalMark,
	}

	if !c.FinishedAt.Equal(project.Epoch) {
		dto.FinishedAt = timeutil.FormatInstant(c.FinishedAt)
		dto.FinishedAgo = timeutil.FormatRelative(c.FinishedAt, now)
	}

	return dto
}
