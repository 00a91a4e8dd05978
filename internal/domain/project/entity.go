// Package project содержит доменную модель проекта студента 42.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package project

import (
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ID представляет стабильный идентификатор проекта на платформе Intra.
// Один и тот же проект у разных студентов имеет один ID.
type ID int64

// IsValid проверяет, что ID положительный.
func (id ID) IsValid() bool {
	return id > 0
}

// RecordID представляет идентификатор пары "студент-проект" (projects_users).
type RecordID int64

// IsValid проверяет, что RecordID положительный.
func (id RecordID) IsValid() bool {
	return id > 0
}

// Status представляет статус проекта, как его отдаёт Intra API.
type Status string

const (
	// StatusFinished - проект завершён.
	StatusFinished Status = "finished"

	// StatusInProgress - проект в работе.
	StatusInProgress Status = "in_progress"

	// StatusWaitingForCorrection - ожидает проверки.
	StatusWaitingForCorrection Status = "waiting_for_correction"

	// StatusSearchingGroup - студент ищет группу.
	StatusSearchingGroup Status = "searching_a_group"

	// StatusCreatingGroup - группа создаётся.
	StatusCreatingGroup Status = "creating_group"
)

// IsFinished возвращает true, если статус означает завершение.
func (s Status) IsFinished() bool {
	return s == StatusFinished
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record представляет снимок проекта одного студента.
// Записи неизменяемы: нормализация и сортировка всегда возвращают новые
// значения, а не меняют вход.
type Record struct {
	// ID - идентификатор записи projects_users. Неизменяемый.
	ID RecordID

	// ProjectID - стабильный идентификатор проекта (общий для всех студентов).
	ProjectID ID

	// Name - отображаемое имя с платформы. Может содержать "хвостовое" число:
	// процент прогресса или номер модуля.
	Name string

	// Slug - машинный идентификатор проекта. Стабильный, используется
	// для разрешения неоднозначности в имени.
	Slug string

	// Status - статус проекта (может отсутствовать).
	Status Status

	// FinalMark - итоговая оценка. nil, пока проект не проверен.
	FinalMark *int

	// Validated - тройственное состояние: true/false/неизвестно.
	// false означает, что работа проверена и отклонена (нужна пересдача).
	Validated *bool

	// ProgressPercent - прогресс 0-100. Может прийти структурированным
	// или быть извлечённым из Name нормализатором.
	ProgressPercent *int

	// SyncedAt - момент последней синхронизации с Intra.
	SyncedAt *time.Time

	// MarkedAt - момент выставления оценки.
	MarkedAt *time.Time

	// FinishedAt - момент завершения проекта.
	FinishedAt *time.Time
}

// IsFinished возвращает true, если проект завершён.
func (r Record) IsFinished() bool {
	return r.Status.IsFinished()
}

// NeedsRetake возвращает true, если работа проверена и отклонена.
func (r Record) NeedsRetake() bool {
	return r.Validated != nil && !*r.Validated
}

// IsPiscine возвращает true, если запись относится к piscine-треку.
// Проверяется Name, при его отсутствии - Slug (без учёта регистра).
func (r Record) IsPiscine() bool {
	subject := r.Name
	if subject == "" {
		subject = r.Slug
	}
	return strings.Contains(strings.ToLower(subject), piscineKeyword)
}
