package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Grihladin/42Connect/internal/domain/shared"
	"github.com/Grihladin/42Connect/internal/domain/student"
	"github.com/Grihladin/42Connect/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE PREFERENCES COMMAND
// Сохраняет предпочтения матчинга: флаг готовности помогать и vibe-текст.
// Синхронизация эти поля никогда не трогает - они живут только локально.
// ══════════════════════════════════════════════════════════════════════════════

// maxVibeTextLength - максимальная длина vibe-текста в рунах.
const maxVibeTextLength = 500

// UpdatePreferencesCommand - частичное обновление предпочтений.
// nil-поле означает "не менять".
type UpdatePreferencesCommand struct {
	// Login - логин студента.
	Login string

	// ReadyToHelp - новый флаг готовности помогать.
	ReadyToHelp *bool

	// VibeText - новый vibe-текст. Пустая строка - валидный способ
	// убрать свой vibe из пула.
	VibeText *string
}

// Validate проверяет корректность команды.
func (c UpdatePreferencesCommand) Validate() error {
	if c.Login == "" {
		return errors.New("update_preferences: login is required")
	}
	if c.VibeText != nil && utf8.RuneCountInString(*c.VibeText) > maxVibeTextLength {
		return fmt.Errorf("update_preferences: vibe text exceeds %d characters", maxVibeTextLength)
	}
	return nil
}

// UpdatePreferencesResult эхо сохранённых значений.
type UpdatePreferencesResult struct {
	// Login - логин студента.
	Login string `json:"login"`

	// ReadyToHelp - сохранённый флаг (nil, если студент не выбирал).
	ReadyToHelp *bool `json:"ready_to_help"`

	// VibeText - сохранённый текст (после обрезки пробелов).
	VibeText string `json:"vibe_text"`
}

// UpdatePreferencesHandler обрабатывает UpdatePreferencesCommand.
type UpdatePreferencesHandler struct {
	studentRepo student.Repository
	cache       DashboardInvalidator
	log         *logger.Logger
}

// NewUpdatePreferencesHandler создаёт новый обработчик.
// cache опционален: nil отключает инвалидацию.
func NewUpdatePreferencesHandler(
	studentRepo student.Repository,
	cache DashboardInvalidator,
	log *logger.Logger,
) *UpdatePreferencesHandler {
	if log == nil {
		log = logger.Default()
	}

	return &UpdatePreferencesHandler{
		studentRepo: studentRepo,
		cache:       cache,
		log:         log.With(logger.Component("update_preferences")),
	}
}

// Handle сохраняет предпочтения и возвращает сохранённые значения.
func (h *UpdatePreferencesHandler) Handle(ctx context.Context, cmd UpdatePreferencesCommand) (*UpdatePreferencesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "UpdatePreferences", shared.ErrValidation, err.Error(), err)
	}

	update := student.PreferenceUpdate{
		ReadyToHelp: cmd.ReadyToHelp,
	}
	if cmd.VibeText != nil {
		trimmed := strings.TrimSpace(*cmd.VibeText)
		update.VibeText = &trimmed
	}

	saved, err := h.studentRepo.UpdatePreferences(ctx, student.Login(cmd.Login), update)
	if err != nil {
		return nil, fmt.Errorf("update_preferences: %w", err)
	}

	if h.cache != nil && !update.IsEmpty() {
		if err := h.cache.Invalidate(ctx, cmd.Login); err != nil {
			h.log.Warn("dashboard cache invalidation failed",
				logger.Login(cmd.Login), logger.Err(err))
		}
	}

	return &UpdatePreferencesResult{
		Login:       string(saved.Login),
		ReadyToHelp: saved.ReadyToHelp.Bool(),
		VibeText:    saved.VibeText,
	}, nil
}
