package matching

import (
	"context"

	"github.com/Grihladin/42Connect/internal/domain/project"
	"github.com/Grihladin/42Connect/internal/domain/student"
)

// PoolRepository собирает пулы кандидатов для матчеров.
// Реализация - internal/infrastructure/persistence/postgres.
type PoolRepository interface {
	// FinishedPool возвращает завершённые записи других студентов по
	// перечисленным проектам. Владелец opt-in фильтра - именно этот запрос:
	// в пул попадают только студенты с ready_to_help = true, сам матчер
	// кандидатов не отсеивает. exclude исключает запрашивающего.
	FinishedPool(ctx context.Context, projectIDs []project.ID, exclude student.Login) ([]FinishedRecord, error)

	// VibePool возвращает участников с непустым vibe-текстом и их проектами.
	// Фильтр по opt-in здесь не применяется: поделиться vibe-текстом -
	// самостоятельное согласие на участие в подборе.
	VibePool(ctx context.Context, exclude student.Login) ([]VibePoolMember, error)
}
