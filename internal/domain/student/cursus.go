package student

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CURSUS ENROLLMENT
// Запись об обучении студента в cursus (учебной программе 42).
// У студента их может быть несколько: основной cursus, deep-dive и т.д.
// ══════════════════════════════════════════════════════════════════════════════

// CursusEnrollment - участие студента в одном cursus.
// Снимок данных платформы, обновляется при каждом синке.
type CursusEnrollment struct {
	// ID - идентификатор записи cursus_users на платформе.
	ID int64

	// CursusID - стабильный идентификатор cursus.
	CursusID int64

	// Name - название cursus ("42cursus", "C Piscine").
	Name string

	// Slug - машинный идентификатор cursus.
	Slug string

	// Grade - звание студента ("Member", "Cadet"). Пустое до присвоения.
	Grade string

	// Level - уровень студента в этом cursus.
	Level float64

	// BeganAt - начало обучения. nil, если платформа его не отдала.
	BeganAt *time.Time

	// EndedAt - конец обучения. nil, пока cursus активен.
	EndedAt *time.Time

	// SyncedAt - момент последней синхронизации с Intra.
	SyncedAt *time.Time
}

// IsActive возвращает true, пока обучение не завершено.
func (e CursusEnrollment) IsActive() bool {
	return e.EndedAt == nil
}
