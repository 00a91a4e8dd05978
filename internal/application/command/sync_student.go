// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system.
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Grihladin/42Connect/internal/domain/project"
	"github.com/Grihladin/42Connect/internal/domain/student"
	"github.com/Grihladin/42Connect/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC STUDENT COMMAND
// Синхронизирует профиль, проекты и cursus-записи студента с Intra API.
// Это основная команда, поддерживающая локальные данные в актуальном
// состоянии относительно источника истины.
// ══════════════════════════════════════════════════════════════════════════════

// SyncStudentCommand содержит параметры синхронизации одного студента.
type SyncStudentCommand struct {
	// Login - логин студента на платформе.
	Login string

	// ForceSync обходит проверку минимального интервала между синками.
	ForceSync bool

	// CorrelationID для трассировки.
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c SyncStudentCommand) Validate() error {
	if c.Login == "" {
		return errors.New("sync_student: login is required")
	}
	return nil
}

// SyncStudentResult содержит результат синхронизации.
type SyncStudentResult struct {
	// Login - логин синхронизированного студента.
	Login string

	// WasSynced - false, если синк пропущен (интервал или чужая блокировка).
	WasSynced bool

	// SkipReason - причина пропуска ("interval", "locked"), пустая при синке.
	SkipReason string

	// RecordCount - количество сохранённых записей о проектах.
	RecordCount int

	// CursusCount - количество сохранённых cursus-записей.
	CursusCount int

	// SyncedAt - момент синхронизации.
	SyncedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// IntraGateway - порт к Intra API. Возвращает доменные типы,
// инфраструктурные DTO сюда не протекают.
type IntraGateway interface {
	// FetchStudent загружает профиль студента по логину.
	FetchStudent(ctx context.Context, login string) (*student.Student, error)

	// FetchProjects загружает все записи о проектах по Intra ID.
	FetchProjects(ctx context.Context, intraID int64) ([]project.Record, error)

	// FetchCursus загружает все cursus-записи по Intra ID.
	FetchCursus(ctx context.Context, intraID int64) ([]student.CursusEnrollment, error)
}

// DashboardInvalidator сбрасывает закэшированный dashboard после записи.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, login string) error
}

// SyncLocker - распределённая блокировка "один синк на студента".
type SyncLocker interface {
	Acquire(ctx context.Context, login string) (bool, error)
	Release(ctx context.Context, login string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SyncStudentHandler обрабатывает SyncStudentCommand.
type SyncStudentHandler struct {
	studentRepo student.Repository
	projectRepo project.Repository
	gateway     IntraGateway
	cache       DashboardInvalidator
	lock        SyncLocker
	log         *logger.Logger

	// minSyncInterval - минимальный интервал между синками одного студента.
	minSyncInterval time.Duration
}

// SyncStudentHandlerConfig содержит настройки обработчика.
type SyncStudentHandlerConfig struct {
	MinSyncInterval time.Duration
}

// DefaultSyncStudentHandlerConfig возвращает настройки по умолчанию.
func DefaultSyncStudentHandlerConfig() SyncStudentHandlerConfig {
	return SyncStudentHandlerConfig{
		MinSyncInterval: 5 * time.Minute,
	}
}

// NewSyncStudentHandler создаёт новый SyncStudentHandler.
// cache и lock опциональны: nil отключает инвалидацию и блокировку.
func NewSyncStudentHandler(
	studentRepo student.Repository,
	projectRepo project.Repository,
	gateway IntraGateway,
	cache DashboardInvalidator,
	lock SyncLocker,
	log *logger.Logger,
	config SyncStudentHandlerConfig,
) *SyncStudentHandler {
	if config.MinSyncInterval == 0 {
		config = DefaultSyncStudentHandlerConfig()
	}
	if log == nil {
		log = logger.Default()
	}

	return &SyncStudentHandler{
		studentRepo:     studentRepo,
		projectRepo:     projectRepo,
		gateway:         gateway,
		cache:           cache,
		lock:            lock,
		log:             log.With(logger.Component("sync_student")),
		minSyncInterval: config.MinSyncInterval,
	}
}

// Handle выполняет синхронизацию студента.
func (h *SyncStudentHandler) Handle(ctx context.Context, cmd SyncStudentCommand) (*SyncStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("sync_student: validation failed: %w", err)
	}

	login := student.Login(cmd.Login)

	// Интервал проверяем по локальной записи; нового студента синкаем всегда.
	if !cmd.ForceSync {
		if existing, err := h.studentRepo.GetByLogin(ctx, login); err == nil {
			if !h.shouldSync(existing) {
				return &SyncStudentResult{
					Login:      cmd.Login,
					WasSynced:  false,
					SkipReason: "interval",
					SyncedAt:   existing.LastSyncedAt,
				}, nil
			}
		}
	}

	// Блокировка от параллельного синка того же студента
	// (фоновый воркер против синка при логине).
	if h.lock != nil {
		acquired, err := h.lock.Acquire(ctx, cmd.Login)
		if err != nil {
			h.log.Warn("sync lock unavailable, proceeding without it",
				logger.Login(cmd.Login), logger.Err(err))
		} else if !acquired {
			return &SyncStudentResult{
				Login:      cmd.Login,
				WasSynced:  false,
				SkipReason: "locked",
			}, nil
		} else {
			defer func() { _ = h.lock.Release(ctx, cmd.Login) }()
		}
	}

	fetched, err := h.gateway.FetchStudent(ctx, cmd.Login)
	if err != nil {
		return nil, fmt.Errorf("sync_student: fetch profile: %w", err)
	}

	records, err := h.gateway.FetchProjects(ctx, fetched.IntraID)
	if err != nil {
		return nil, fmt.Errorf("sync_student: fetch projects: %w", err)
	}

	enrollments, err := h.gateway.FetchCursus(ctx, fetched.IntraID)
	if err != nil {
		return nil, fmt.Errorf("sync_student: fetch cursus: %w", err)
	}

	// Piscine-записи отбрасываются до сохранения, хвостовые числа в именах
	// разрешаются там же.
	normalized := project.Normalize(records)

	if err := h.studentRepo.Upsert(ctx, fetched); err != nil {
		return nil, fmt.Errorf("sync_student: save student: %w", err)
	}

	if err := h.projectRepo.ReplaceForStudent(ctx, login, normalized); err != nil {
		return nil, fmt.Errorf("sync_student: save records: %w", err)
	}

	if err := h.studentRepo.ReplaceCursus(ctx, login, enrollments); err != nil {
		return nil, fmt.Errorf("sync_student: save cursus: %w", err)
	}

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, cmd.Login); err != nil {
			h.log.Warn("dashboard cache invalidation failed",
				logger.Login(cmd.Login), logger.Err(err))
		}
	}

	h.log.Info("student synced",
		logger.Login(cmd.Login),
		logger.RecordCount(len(normalized)),
		logger.Int("cursus_count", len(enrollments)),
		logger.String("correlation_id", cmd.CorrelationID))

	return &SyncStudentResult{
		Login:       cmd.Login,
		WasSynced:   true,
		RecordCount: len(normalized),
		CursusCount: len(enrollments),
		SyncedAt:    fetched.LastSyncedAt,
	}, nil
}

// shouldSync проверяет, истёк ли минимальный интервал.
func (h *SyncStudentHandler) shouldSync(s *student.Student) bool {
	if s.LastSyncedAt.IsZero() {
		return true
	}
	return time.Since(s.LastSyncedAt) >= h.minSyncInterval
}

// ══════════════════════════════════════════════════════════════════════════════
// BULK SYNC COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// SyncAllStudentsCommand запускает ресинхронизацию всех известных студентов.
type SyncAllStudentsCommand struct {
	// ForceSync обходит проверку интервала для всех студентов.
	ForceSync bool

	// Concurrency - сколько студентов синкать параллельно.
	Concurrency int

	// CorrelationID для трассировки.
	CorrelationID string
}

// SyncAllStudentsResult содержит результат массовой синхронизации.
type SyncAllStudentsResult struct {
	// TotalStudents - сколько студентов обработано.
	TotalStudents int

	// SyncedCount - сколько реально синхронизировано.
	SyncedCount int

	// SkippedCount - сколько пропущено (интервал или блокировка).
	SkippedCount int

	// FailedCount - сколько завершилось ошибкой.
	FailedCount int

	// Errors - ошибки по логинам.
	Errors map[string]error

	// Duration - общая длительность.
	Duration time.Duration

	// StartedAt / CompletedAt - границы прогона.
	StartedAt   time.Time
	CompletedAt time.Time
}

// SyncAllStudentsHandler обрабатывает массовую синхронизацию.
type SyncAllStudentsHandler struct {
	studentRepo student.Repository
	syncHandler *SyncStudentHandler
	log         *logger.Logger
}

// NewSyncAllStudentsHandler создаёт обработчик массовой синхронизации.
func NewSyncAllStudentsHandler(
	studentRepo student.Repository,
	syncHandler *SyncStudentHandler,
	log *logger.Logger,
) *SyncAllStudentsHandler {
	if log == nil {
		log = logger.Default()
	}

	return &SyncAllStudentsHandler{
		studentRepo: studentRepo,
		syncHandler: syncHandler,
		log:         log.With(logger.Component("sync_all")),
	}
}

// Handle выполняет массовую синхронизацию.
func (h *SyncAllStudentsHandler) Handle(ctx context.Context, cmd SyncAllStudentsCommand) (*SyncAllStudentsResult, error) {
	startedAt := time.Now()
	result := &SyncAllStudentsResult{
		Errors:    make(map[string]error),
		StartedAt: startedAt,
	}

	logins, err := h.studentRepo.ListLogins(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync_all: failed to list students: %w", err)
	}

	result.TotalStudents = len(logins)

	concurrency := cmd.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}

	sem := make(chan struct{}, concurrency)

	type syncResultItem struct {
		login  string
		synced bool
		err    error
	}
	results := make(chan syncResultItem, len(logins))

	for _, login := range logins {
		sem <- struct{}{}

		go func(lg student.Login) {
			defer func() { <-sem }()

			syncCmd := SyncStudentCommand{
				Login:         string(lg),
				ForceSync:     cmd.ForceSync,
				CorrelationID: cmd.CorrelationID,
			}

			syncRes, syncErr := h.syncHandler.Handle(ctx, syncCmd)
			if syncErr != nil {
				results <- syncResultItem{string(lg), false, syncErr}
				return
			}

			results <- syncResultItem{string(lg), syncRes.WasSynced, nil}
		}(login)
	}

	for i := 0; i < len(logins); i++ {
		r := <-results
		switch {
		case r.err != nil:
			result.FailedCount++
			result.Errors[r.login] = r.err
		case r.synced:
			result.SyncedCount++
		default:
			result.SkippedCount++
		}
	}

	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(startedAt)

	h.log.Info("bulk sync finished",
		logger.Int("total", result.TotalStudents),
		logger.Int("synced", result.SyncedCount),
		logger.Int("skipped", result.SkippedCount),
		logger.Int("failed", result.FailedCount),
		logger.Latency(result.Duration))

	return result, nil
}
