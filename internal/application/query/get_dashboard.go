package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Grihladin/42Connect/internal/domain/project"
	"github.com/Grihladin/42Connect/internal/domain/shared"
	"github.com/Grihladin/42Connect/internal/domain/student"
	"github.com/Grihladin/42Connect/pkg/logger"
	"github.com/Grihladin/42Connect/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD QUERY
// Собирает dashboard студента: профиль, cursus-записи и три списка
// проектов из нормализованных записей. Результат кэшируется в Redis с TTL;
// кэш сбрасывается при синке и смене предпочтений.
// ══════════════════════════════════════════════════════════════════════════════

// GetDashboardQuery содержит параметры запроса dashboard.
type GetDashboardQuery struct {
	// Login - логин студента.
	Login string

	// SkipCache обходит кэш и собирает dashboard заново.
	SkipCache bool
}

// Validate проверяет корректность параметров.
func (q GetDashboardQuery) Validate() error {
	if q.Login == "" {
		return errors.New("login is required")
	}
	return nil
}

// DashboardDTO - собранный dashboard студента.
type DashboardDTO struct {
	// Student - профиль студента.
	Student StudentDTO `json:"student"`

	// Cursus - cursus-записи студента, активные первыми.
	Cursus []CursusDTO `json:"cursus"`

	// Finished - завершённые проекты, самые свежие по завершению первыми.
	Finished []ProjectDTO `json:"finished"`

	// InProgress - незавершённые проекты, самые свежие по активности первыми.
	InProgress []ProjectDTO `json:"in_progress"`

	// All - все проекты, самые свежие по активности первыми.
	All []ProjectDTO `json:"all"`

	// GeneratedAt - момент сборки.
	GeneratedAt string `json:"generated_at"`

	// FromCache - true, если dashboard пришёл из кэша.
	FromCache bool `json:"from_cache"`
}

// DashboardCache - порт кэша собранных dashboard-ов.
type DashboardCache interface {
	Get(ctx context.Context, login string, dest interface{}) error
	Set(ctx context.Context, login string, view interface{}) error
}

// GetDashboardHandler обрабатывает запросы dashboard.
type GetDashboardHandler struct {
	studentRepo student.Repository
	projectRepo project.Repository
	cache       DashboardCache
	log         *logger.Logger
}

// NewGetDashboardHandler создаёт новый обработчик.
// cache опционален: nil означает сборку на каждый запрос.
func NewGetDashboardHandler(
	studentRepo student.Repository,
	projectRepo project.Repository,
	cache DashboardCache,
	log *logger.Logger,
) *GetDashboardHandler {
	if log == nil {
		log = logger.Default()
	}

	return &GetDashboardHandler{
		studentRepo: studentRepo,
		projectRepo: projectRepo,
		cache:       cache,
		log:         log.With(logger.Component("get_dashboard")),
	}
}

// Handle собирает dashboard студента.
func (h *GetDashboardHandler) Handle(ctx context.Context, q GetDashboardQuery) (*DashboardDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetDashboard", shared.ErrValidation, err.Error(), err)
	}

	if h.cache != nil && !q.SkipCache {
		var cached DashboardDTO
		if err := h.cache.Get(ctx, q.Login, &cached); err == nil {
			cached.FromCache = true
			return &cached, nil
		}
	}

	login := student.Login(q.Login)

	stud, err := h.studentRepo.GetByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("get_dashboard: %w", err)
	}

	records, err := h.projectRepo.ListForStudent(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("get_dashboard: load records: %w", err)
	}

	enrollments, err := h.studentRepo.ListCursus(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("get_dashboard: load cursus: %w", err)
	}

	dto := buildDashboard(stud, records, enrollments, timeutil.UTCNow())

	if h.cache != nil {
		if err := h.cache.Set(ctx, q.Login, dto); err != nil {
			h.log.Warn("dashboard cache write failed",
				logger.Login(q.Login), logger.Err(err))
		}
	}

	return dto, nil
}

// buildDashboard собирает DTO из доменных данных. Чистая функция,
// тестируется без репозиториев.
func buildDashboard(stud *student.Student, records []project.Record, enrollments []student.CursusEnrollment, now time.Time) *DashboardDTO {
	// Записи в хранилище уже нормализованы при синке; повторная
	// нормализация - защита от данных, записанных до миграции.
	normalized := project.Normalize(records)

	finished := make([]project.Record, 0, len(normalized))
	inProgress := make([]project.Record, 0, len(normalized))
	for _, r := range normalized {
		if r.IsFinished() {
			finished = append(finished, r)
		} else {
			inProgress = append(inProgress, r)
		}
	}

	return &DashboardDTO{
		Student:     toStudentDTO(stud),
		Cursus:      toCursusDTOs(enrollments),
		Finished:    toProjectDTOs(project.SortByCompletion(finished), now),
		InProgress:  toProjectDTOs(project.SortByActivity(inProgress), now),
		All:         toProjectDTOs(project.SortByActivity(normalized), now),
		GeneratedAt: timeutil.FormatInstant(now),
	}
}
