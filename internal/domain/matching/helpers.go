// Package matching содержит подбор однокампусников: кто может помочь с
// проектом и у кого совместимый стиль работы. Чистые синхронные функции
// над уже загруженными данными - ни I/O, ни общего состояния.
package matching

import (
	"sort"
	"time"

	"github.com/Grihladin/42Connect/internal/domain/project"
	"github.com/Grihladin/42Connect/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// HELPER MATCHER
//
// Для каждого активного проекта студента - упорядоченный список тех, кто
// этот проект уже завершил, самые свежие первыми. Пул приходит уже
// отфильтрованным по opt-in флагу ready_to_help: фильтрация - обязанность
// того, кто собирает пул (PoolRepository.FinishedPool), матчер сам
// кандидатов не отсеивает.
// ══════════════════════════════════════════════════════════════════════════════

// FinishedRecord - завершённый проект другого студента, помеченный его
// профилем. Элемент пула помощников.
type FinishedRecord struct {
	// Student - профиль завершившего.
	Student student.Summary

	// Record - запись о его завершённом проекте.
	Record project.Record
}

// HelperCandidate - кандидат в помощники по конкретному проекту.
type HelperCandidate struct {
	// Student - профиль кандидата.
	Student student.Summary

	// FinishedAt - момент завершения проекта кандидатом (по цепочке
	// фолбэков завершения; Epoch, если метки нет).
	FinishedAt time.Time

	// FinalMark - итоговая оценка кандидата за этот проект.
	FinalMark *int
}

// FindHelpers группирует пул по идентификатору проекта и возвращает для
// каждого активного проекта упорядоченный список кандидатов.
//
// Гарантии:
//   - каждый активный проект присутствует в результате, даже если его никто
//     не завершил - тогда список явно пустой (отличие "пока никого" от
//     "проект не отслеживается");
//   - кандидаты отсортированы по завершению по убыванию; при равенстве
//     сохраняется исходный порядок пула (стабильная сортировка, без
//     вторичного ключа);
//   - детерминизм: одинаковый вход даёт одинаковый порядок.
func FindHelpers(active []project.ID, pool []FinishedRecord) map[project.ID][]HelperCandidate {
	byProject := make(map[project.ID][]HelperCandidate, len(active))
	for _, id := range active {
		byProject[id] = []HelperCandidate{}
	}

	for _, fr := range pool {
		id := fr.Record.ProjectID
		candidates, tracked := byProject[id]
		if !tracked {
			continue
		}

		byProject[id] = append(candidates, HelperCandidate{
			Student:    fr.Student,
			FinishedAt: project.CompletionTime(fr.Record),
			FinalMark:  fr.Record.FinalMark,
		})
	}

	for id, candidates := range byProject {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].FinishedAt.After(candidates[j].FinishedAt)
		})
		byProject[id] = candidates
	}

	return byProject
}
