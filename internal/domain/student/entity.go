// Package student содержит доменную модель студента 42.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package student

import (
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Login представляет логин студента на платформе Intra.
// Стабильный уникальный идентификатор.
type Login string

// IsValid проверяет корректность логина.
func (l Login) IsValid() bool {
	s := string(l)
	return len(s) >= 2 && len(s) <= 64 && !strings.ContainsAny(s, " \t\n\r")
}

// String возвращает строковое представление логина.
func (l Login) String() string {
	return string(l)
}

// HelpOptIn - тройственный флаг готовности помогать: да/нет/не выбран.
type HelpOptIn string

const (
	// OptInYes - студент согласился помогать другим.
	OptInYes HelpOptIn = "yes"

	// OptInNo - студент отказался.
	OptInNo HelpOptIn = "no"

	// OptInUnknown - студент ещё не делал выбор.
	OptInUnknown HelpOptIn = "unknown"
)

// IsValid проверяет корректность значения.
func (o HelpOptIn) IsValid() bool {
	switch o {
	case OptInYes, OptInNo, OptInUnknown:
		return true
	default:
		return false
	}
}

// Opted возвращает true только при явном согласии.
func (o HelpOptIn) Opted() bool {
	return o == OptInYes
}

// OptInFromBool переводит указатель на bool в тройственный флаг.
// nil означает "выбор не сделан".
func OptInFromBool(b *bool) HelpOptIn {
	switch {
	case b == nil:
		return OptInUnknown
	case *b:
		return OptInYes
	default:
		return OptInNo
	}
}

// Bool возвращает указатель на bool для персистентности. nil для OptInUnknown.
func (o HelpOptIn) Bool() *bool {
	switch o {
	case OptInYes:
		v := true
		return &v
	case OptInNo:
		v := false
		return &v
	default:
		return nil
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// Summary - компактное представление студента для подбора и выдачи.
// Снимок, материализуется на запрос и не мутируется.
type Summary struct {
	// Login - стабильный уникальный логин.
	Login Login

	// DisplayName - отображаемое имя (может отсутствовать).
	DisplayName string

	// Campus - название кампуса (может отсутствовать).
	Campus string

	// ReadyToHelp - тройственный флаг готовности помогать.
	ReadyToHelp HelpOptIn

	// VibeText - свободный текст о стиле совместной работы.
	VibeText string
}

// HasVibe возвращает true, если студент поделился vibe-текстом.
func (s Summary) HasVibe() bool {
	return strings.TrimSpace(s.VibeText) != ""
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - полная модель студента для персистентности.
type Student struct {
	// ID - внутренний идентификатор (UUID).
	ID string

	// IntraID - идентификатор на платформе 42.
	IntraID int64

	// Login - логин на платформе.
	Login Login

	// DisplayName - отображаемое имя.
	DisplayName string

	// Email - адрес почты (может отсутствовать).
	Email string

	// ImageURL - ссылка на аватар.
	ImageURL string

	// Campus - название кампуса.
	Campus string

	// ReadyToHelp - флаг готовности помогать.
	ReadyToHelp HelpOptIn

	// VibeText - текст о стиле совместной работы.
	VibeText string

	// LastSyncedAt - момент последней синхронизации с Intra.
	LastSyncedAt time.Time

	// CreatedAt / UpdatedAt - служебные метки.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary возвращает компактное представление студента.
func (s *Student) Summary() Summary {
	return Summary{
		Login:       s.Login,
		DisplayName: s.DisplayName,
		Campus:      s.Campus,
		ReadyToHelp: s.ReadyToHelp,
		VibeText:    s.VibeText,
	}
}
