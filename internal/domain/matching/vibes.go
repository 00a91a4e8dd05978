package matching

import (
	"sort"
	"strings"

	"github.com/Grihladin/42Connect/internal/domain/project"
	"github.com/Grihladin/42Connect/internal/domain/shared"
	"github.com/Grihladin/42Connect/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// VIBE MATCHER
//
// Ранжирует однокампусников по близости vibe-текстов. Сама мера близости -
// внешняя способность: ядро принимает функцию, возвращающую сравнимый
// скаляр (больше = ближе), и только сортирует результат.
// ══════════════════════════════════════════════════════════════════════════════

// ErrVibeNotShared - предусловие не выполнено: у запрашивающего пустой
// vibe-текст. Это не "ноль совпадений", а отдельный сигнал для вызывающего
// ("сначала поделись своим vibe").
var ErrVibeNotShared = shared.NewDomainError(
	"matching", "RankVibeMatches", shared.ErrPreconditionFailed, "vibe text is empty")

// SimilarityFunc - внешняя мера близости двух текстов. Шкала непрозрачна,
// гарантируется только сравнимость: больше - ближе. Для детерминизма
// результата функция должна быть чистой.
type SimilarityFunc func(a, b string) float64

// VibePoolMember - участник пула: профиль, vibe-текст и его проекты
// (для выбора самого свежего).
type VibePoolMember struct {
	// Student - профиль участника.
	Student student.Summary

	// VibeText - текст участника. Участники с пустым текстом пропускаются.
	VibeText string

	// Projects - проекты участника; из них выбирается самый свежий.
	Projects []project.Record
}

// VibeCandidate - участник пула с оценкой близости.
type VibeCandidate struct {
	// Student - профиль кандидата.
	Student student.Summary

	// Similarity - оценка близости. Шкала задаётся внешним сервисом.
	Similarity float64

	// LatestProject - самый свежий проект кандидата или nil, если
	// проектов нет.
	LatestProject *project.Record
}

// RankVibeMatches ранжирует участников пула по близости к selfVibe.
//
// Пустой (после обрезки пробелов) selfVibe - это ErrVibeNotShared, а не
// пустой успех. Пустой пул или пул без vibe-текстов - валидный результат:
// пустой срез и nil-ошибка. Сортировка по убыванию Similarity стабильная:
// при равенстве сохраняется исходный порядок пула.
func RankVibeMatches(selfVibe string, pool []VibePoolMember, fn SimilarityFunc) ([]VibeCandidate, error) {
	if strings.TrimSpace(selfVibe) == "" {
		return nil, ErrVibeNotShared
	}

	candidates := make([]VibeCandidate, 0, len(pool))
	for _, member := range pool {
		if strings.TrimSpace(member.VibeText) == "" {
			continue
		}

		candidates = append(candidates, VibeCandidate{
			Student:       member.Student,
			Similarity:    fn(selfVibe, member.VibeText),
			LatestProject: project.MostRecent(member.Projects),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})

	return candidates, nil
}
