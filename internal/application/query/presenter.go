// Package query contains read operations (CQRS - Queries).
package query

import (
	"fmt"
	"time"

	"github.com/Grihladin/42Connect/internal/domain/project"
	"github.com/Grihladin/42Connect/internal/domain/student"
	"github.com/Grihladin/42Connect/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENTATION DTOs
// Общие DTO чтения: проект и профиль студента в презентационном виде.
// Форматирование живёт здесь, а не в домене - доменные типы остаются чистыми.
// ══════════════════════════════════════════════════════════════════════════════

// ProjectDTO - презентационное представление записи о проекте.
type ProjectDTO struct {
	// RecordID - идентификатор записи projects_users.
	RecordID int64 `json:"record_id"`

	// ProjectID - стабильный идентификатор проекта.
	ProjectID int64 `json:"project_id"`

	// Name - нормализованное имя.
	Name string `json:"name"`

	// Slug - машинный идентификатор.
	Slug string `json:"slug"`

	// Status - статус, как его отдаёт платформа.
	Status string `json:"status"`

	// FinalMark - итоговая оценка (nil до проверки).
	FinalMark *int `json:"final_mark"`

	// ScoreBadge - бейдж оценки: "125 ✓", "0 ✗", "—".
	ScoreBadge string `json:"score_badge"`

	// NeedsRetake - работа проверена и отклонена.
	NeedsRetake bool `json:"needs_retake"`

	// ProgressPercent - прогресс 0-100 (nil, если неизвестен).
	ProgressPercent *int `json:"progress_percent"`

	// ProgressBarWidth - ширина прогресс-бара в процентах (0 при nil).
	ProgressBarWidth int `json:"progress_bar_width"`

	// LastActivityAt - момент последней активности (ISO 8601, пусто при Epoch).
	LastActivityAt string `json:"last_activity_at,omitempty"`

	// LastActivityAgo - относительное время ("3 дня назад").
	LastActivityAgo string `json:"last_activity_ago,omitempty"`
}

// StudentDTO - презентационное представление профиля.
type StudentDTO struct {
	// Login - логин студента.
	Login string `json:"login"`

	// DisplayName - отображаемое имя.
	DisplayName string `json:"display_name"`

	// ImageURL - ссылка на аватар.
	ImageURL string `json:"image_url,omitempty"`

	// Campus - название кампуса.
	Campus string `json:"campus,omitempty"`

	// ReadyToHelp - флаг готовности помогать (nil, если выбор не сделан).
	ReadyToHelp *bool `json:"ready_to_help"`

	// HasVibe - поделился ли студент vibe-текстом.
	HasVibe bool `json:"has_vibe"`

	// VibeText - vibe-текст студента.
	VibeText string `json:"vibe_text,omitempty"`

	// LastSyncedAt - момент последней синхронизации.
	LastSyncedAt string `json:"last_synced_at,omitempty"`
}

// CursusDTO - презентационное представление cursus-записи.
type CursusDTO struct {
	// CursusID - стабильный идентификатор cursus.
	CursusID int64 `json:"cursus_id"`

	// Name - название cursus.
	Name string `json:"name"`

	// Slug - машинный идентификатор.
	Slug string `json:"slug,omitempty"`

	// Grade - звание студента (пусто до присвоения).
	Grade string `json:"grade,omitempty"`

	// Level - уровень в этом cursus.
	Level float64 `json:"level"`

	// Active - true, пока обучение не завершено.
	Active bool `json:"active"`

	// BeganAt / EndedAt - границы обучения (ISO 8601, пусто при nil).
	BeganAt string `json:"began_at,omitempty"`
	EndedAt string `json:"ended_at,omitempty"`
}

// toProjectDTO превращает доменную запись в презентационную.
func toProjectDTO(r project.Record, now time.Time) ProjectDTO {
	dto := ProjectDTO{
		RecordID:        int64(r.ID),
		ProjectID:       int64(r.ProjectID),
		Name:            r.Name,
		Slug:            r.Slug,
		Status:          string(r.Status),
		FinalMark:       r.FinalMark,
		ScoreBadge:      scoreBadge(r),
		NeedsRetake:     r.NeedsRetake(),
		ProgressPercent: r.ProgressPercent,
	}

	if r.ProgressPercent != nil {
		dto.ProgressBarWidth = *r.ProgressPercent
	}

	if activity := project.ActivityTime(r); !activity.Equal(project.Epoch) {
		dto.LastActivityAt = timeutil.FormatInstant(activity)
		dto.LastActivityAgo = timeutil.FormatRelative(activity, now)
	}

	return dto
}

// toProjectDTOs превращает срез записей, сохраняя порядок.
func toProjectDTOs(records []project.Record, now time.Time) []ProjectDTO {
	dtos := make([]ProjectDTO, 0, len(records))
	for _, r := range records {
		dtos = append(dtos, toProjectDTO(r, now))
	}
	return dtos
}

// toStudentDTO превращает профиль в презентационный вид.
func toStudentDTO(s *student.Student) StudentDTO {
	dto := StudentDTO{
		Login:       string(s.Login),
		DisplayName: s.DisplayName,
		ImageURL:    s.ImageURL,
		Campus:      s.Campus,
		ReadyToHelp: s.ReadyToHelp.Bool(),
		HasVibe:     s.Summary().HasVibe(),
		VibeText:    s.VibeText,
	}

	if !s.LastSyncedAt.IsZero() {
		dto.LastSyncedAt = timeutil.FormatInstant(s.LastSyncedAt)
	}

	return dto
}

// toCursusDTO превращает cursus-запись в презентационный вид.
func toCursusDTO(e student.CursusEnrollment) CursusDTO {
	dto := CursusDTO{
		CursusID: e.CursusID,
		Name:     e.Name,
		Slug:     e.Slug,
		Grade:    e.Grade,
		Level:    e.Level,
		Active:   e.IsActive(),
	}

	if e.BeganAt != nil {
		dto.BeganAt = timeutil.FormatInstant(*e.BeganAt)
	}
	if e.EndedAt != nil {
		dto.EndedAt = timeutil.FormatInstant(*e.EndedAt)
	}

	return dto
}

// toCursusDTOs превращает срез cursus-записей, сохраняя порядок.
func toCursusDTOs(enrollments []student.CursusEnrollment) []CursusDTO {
	dtos := make([]CursusDTO, 0, len(enrollments))
	for _, e := range enrollments {
		dtos = append(dtos, toCursusDTO(e))
	}
	return dtos
}

// summaryDTO превращает компактный профиль в презентационный вид.
func summaryDTO(s student.Summary) StudentDTO {
	return StudentDTO{
		Login:       string(s.Login),
		DisplayName: s.DisplayName,
		Campus:      s.Campus,
		ReadyToHelp: s.ReadyToHelp.Bool(),
		HasVibe:     s.HasVibe(),
	}
}

// scoreBadge форматирует бейдж оценки.
func scoreBadge(r project.Record) string {
	if r.FinalMark == nil {
		return "—"
	}
	if r.NeedsRetake() {
		return fmt.Sprintf("%d ✗", *r.FinalMark)
	}
	if r.Validated != nil && *r.Validated {
		return fmt.Sprintf("%d ✓", *r.FinalMark)
	}
	return fmt.Sprintf("%d", *r.FinalMark)
}
