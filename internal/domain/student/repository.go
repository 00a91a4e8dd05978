package student

import (
	"context"
)

// Repository определяет контракт персистентности студентов.
// Реализация - internal/infrastructure/persistence/postgres.
type Repository interface {
	// Upsert создаёт студента или обновляет его профиль по IntraID.
	Upsert(ctx context.Context, s *Student) error

	// GetByLogin возвращает студента по логину.
	// Отсутствие - shared.ErrStudentNotFound.
	GetByLogin(ctx context.Context, login Login) (*Student, error)

	// GetByIntraID возвращает студента по идентификатору платформы.
	GetByIntraID(ctx context.Context, intraID int64) (*Student, error)

	// ListLogins возвращает логины всех известных студентов
	// (для фоновой ресинхронизации).
	ListLogins(ctx context.Context) ([]Login, error)

	// UpdatePreferences сохраняет флаг готовности помогать и vibe-текст.
	// nil-поля не меняются. Возвращает сохранённые значения.
	UpdatePreferences(ctx context.Context, login Login, p PreferenceUpdate) (*Student, error)

	// ReplaceCursus атомарно заменяет cursus-записи студента свежим
	// снимком синка. Записи, пропавшие с платформы, пропадают и отсюда.
	ReplaceCursus(ctx context.Context, login Login, enrollments []CursusEnrollment) error

	// ListCursus возвращает cursus-записи студента, активные первыми.
	ListCursus(ctx context.Context, login Login) ([]CursusEnrollment, error)
}

// PreferenceUpdate - частичное обновление предпочтений.
// nil означает "не менять".
type PreferenceUpdate struct {
	// ReadyToHelp - новый флаг готовности помогать.
	ReadyToHelp *bool

	// VibeText - новый vibe-текст.
	VibeText *string
}

// IsEmpty возвращает true, если менять нечего.
func (p PreferenceUpdate) IsEmpty() bool {
	return p.ReadyToHelp == nil && p.VibeText == nil
}
