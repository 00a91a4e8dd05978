package project

import (
	"sort"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// РАЗРЕШЕНИЕ ВРЕМЕННЫХ МЕТОК
//
// У записи три необязательных метки разного происхождения: SyncedAt,
// MarkedAt, FinishedAt. Для сортировок нужна одна авторитетная. Обе функции
// тотальны: невалидный вход деградирует до сентинела Epoch, а не ошибки -
// стабильность сортировки важнее сырых данных с платформы.
// ══════════════════════════════════════════════════════════════════════════════

// Epoch - значение-сентинел для записей без единой пригодной метки.
// В убывающих сортировках такие записи оказываются последними.
var Epoch = time.Unix(0, 0).UTC()

// ActivityTime возвращает момент последней активности по записи:
// SyncedAt, иначе MarkedAt, иначе FinishedAt, иначе Epoch.
func ActivityTime(r Record) time.Time {
	return firstPresent(r.SyncedAt, r.MarkedAt, r.FinishedAt)
}

// CompletionTime возвращает момент завершения: FinishedAt, иначе
// цепочка ActivityTime.
func CompletionTime(r Record) time.Time {
	if t, ok := presentInstant(r.FinishedAt); ok {
		return t
	}
	return ActivityTime(r)
}

// firstPresent проходит упорядоченную цепочку "попробуй это поле" и
// возвращает первое пригодное значение.
func firstPresent(chain ...*time.Time) time.Time {
	for _, ts := range chain {
		if t, ok := presentInstant(ts); ok {
			return t
		}
	}
	return Epoch
}

// presentInstant проверяет, что метка присутствует и не нулевая.
// Непарсящиеся строки дат превращаются в отсутствующие значения ещё на
// границе (см. timeutil.ParseInstant), поэтому здесь достаточно nil-проверки.
func presentInstant(ts *time.Time) (time.Time, bool) {
	if ts == nil || ts.IsZero() {
		return time.Time{}, false
	}
	return *ts, true
}

// ══════════════════════════════════════════════════════════════════════════════
// СОРТИРОВКИ
// ══════════════════════════════════════════════════════════════════════════════

// SortByActivity сортирует записи по последней активности, самые свежие
// первыми. Сортировка стабильная: при равенстве сохраняется исходный порядок.
func SortByActivity(records []Record) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return ActivityTime(sorted[i]).After(ActivityTime(sorted[j]))
	})
	return sorted
}

// SortByCompletion сортирует записи по моменту завершения, самые свежие
// первыми. Сортировка стабильная.
func SortByCompletion(records []Record) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return CompletionTime(sorted[i]).After(CompletionTime(sorted[j]))
	})
	return sorted
}

// MostRecent возвращает самую свежую по завершению запись или nil для
// пустого списка.
func MostRecent(records []Record) *Record {
	if len(records) == 0 {
		return nil
	}

	best := records[0]
	bestTime := CompletionTime(best)
	for _, r := range records[1:] {
		if t := CompletionTime(r); t.After(bestTime) {
			best = r
			bestTime = t
		}
	}
	return &best
}
