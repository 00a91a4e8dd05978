package project

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// НОРМАЛИЗАЦИЯ ЗАПИСЕЙ
//
// Intra непоследовательно встраивает в имена проектов хвостовое число:
// иногда это процент прогресса ("ft_printf 80"), иногда номер модуля
// ("CPP Module 03"). Нормализатор разрешает эту неоднозначность по
// фиксированному приоритету, опираясь на Slug как на стабильный машинный
// сигнал:
//
//   структурированный процент > эвристический процент > идентификатор
//
// Порядок шагов для каждой записи:
//   1. фильтр piscine (жёсткое исключение);
//   2. извлечение хвостового процента из имени;
//   3. подавление процента, если хвост похож на номер модуля;
//   4. восстановление номера модуля, потерянного при очистке имени;
//   5. округление и ограничение процента диапазоном [0,100].
// ══════════════════════════════════════════════════════════════════════════════

const piscineKeyword = "piscine"

const (
	// maxProgressPercent - верхняя граница прогресса. Значения выше
	// обрезаются, а не считаются невалидными.
	maxProgressPercent = 100

	// identifierThreshold - хвостовое число не больше этого значения
	// может оказаться номером модуля, а не процентом.
	identifierThreshold = 9
)

var (
	// trailingNumberRe находит хвостовую группу из 1-3 цифр на границе слова,
	// с необязательными пробелами после.
	trailingNumberRe = regexp.MustCompile(`\b(\d{1,3})\s*$`)

	// moduleWordRe находит слово "module" без учёта регистра.
	moduleWordRe = regexp.MustCompile(`(?i)\bmodule\b`)

	// moduleAdjacentNumberRe находит слово "module", за которым уже стоит число.
	moduleAdjacentNumberRe = regexp.MustCompile(`(?i)\bmodule\s*\d`)

	// moduleSlugRe распознаёт slug вида "cpp-module-03": слово module
	// и хвост из 1-2 цифр.
	moduleSlugRe = regexp.MustCompile(`(?i)module-?(\d{1,2})$`)

	// numericSuffixRe находит числовой хвост slug-а.
	numericSuffixRe = regexp.MustCompile(`(\d+)$`)
)

// tentativePercent - предварительный результат извлечения процента из имени.
type tentativePercent struct {
	percent     int
	cleanedName string
}

// suppressionRule - именованное правило, подавляющее интерпретацию
// хвостового числа как процента. Правила проверяются по порядку; каждое
// тестируется независимо.
type suppressionRule struct {
	name    string
	applies func(t tentativePercent, r Record) bool
}

// identifierRules - упорядоченный список правил подавления. Применяются
// только когда предварительный процент не превышает identifierThreshold.
var identifierRules = []suppressionRule{
	{
		name: "cleaned_name_mentions_module",
		applies: func(t tentativePercent, r Record) bool {
			return moduleWordRe.MatchString(t.cleanedName)
		},
	},
	{
		name: "slug_mentions_module",
		applies: func(t tentativePercent, r Record) bool {
			return moduleWordRe.MatchString(r.Slug)
		},
	},
	{
		name: "slug_suffix_equals_number",
		applies: func(t tentativePercent, r Record) bool {
			m := numericSuffixRe.FindStringSubmatch(r.Slug)
			if m == nil {
				return false
			}
			suffix, err := strconv.Atoi(m[1])
			if err != nil {
				return false
			}
			return suffix == t.percent
		},
	},
}

// Normalize очищает список записей одного студента: отбрасывает piscine,
// извлекает процент из имени, разрешает неоднозначность "процент или номер
// модуля" и ограничивает прогресс диапазоном [0,100].
//
// Вход не изменяется; возвращается новый срез. Относительный порядок
// записей сохраняется.
func Normalize(records []Record) []Record {
	out := make([]Record, 0, len(records))

	for _, r := range records {
		if r.IsPiscine() {
			continue
		}
		out = append(out, normalizeRecord(r))
	}

	return out
}

// NormalizeOne нормализует одну запись той же логикой, что и Normalize.
// Отличие - мягкая деградация: если списочная нормализация отбросила бы
// запись (piscine), возвращается исходная запись с ограниченным прогрессом.
// Нужна для точечных запросов одного проекта, где "пустой ответ" хуже,
// чем сырое имя.
func NormalizeOne(r Record) Record {
	normalized := Normalize([]Record{r})
	if len(normalized) == 1 {
		return normalized[0]
	}

	r.ProgressPercent = clampPercent(r.ProgressPercent)
	return r
}

// normalizeRecord применяет шаги 2-5 к одной записи.
func normalizeRecord(r Record) Record {
	// Структурированный процент имеет высший приоритет: имя не трогаем.
	if r.ProgressPercent != nil {
		r.ProgressPercent = clampPercent(r.ProgressPercent)
		return r
	}

	tentative, ok := extractTrailingNumber(r.Name)
	if ok && !suppressedAsIdentifier(tentative, r) {
		percent := tentative.percent
		r.Name = tentative.cleanedName
		r.ProgressPercent = &percent
	}

	r.Name = restoreModuleNumber(r.Name, r.Slug)
	r.ProgressPercent = clampPercent(r.ProgressPercent)
	return r
}

// extractTrailingNumber ищет хвостовую группу из 1-3 цифр в конце имени.
func extractTrailingNumber(name string) (tentativePercent, bool) {
	if name == "" {
		return tentativePercent{}, false
	}

	loc := trailingNumberRe.FindStringSubmatchIndex(name)
	if loc == nil {
		return tentativePercent{}, false
	}

	percent, err := strconv.Atoi(name[loc[2]:loc[3]])
	if err != nil {
		return tentativePercent{}, false
	}

	return tentativePercent{
		percent:     percent,
		cleanedName: strings.TrimRight(name[:loc[2]], " \t"),
	}, true
}

// suppressedAsIdentifier проверяет правила подавления по порядку.
// Срабатывание любого правила означает: хвост - часть идентификатора,
// процент не извлекаем, имя не очищаем.
func suppressedAsIdentifier(t tentativePercent, r Record) bool {
	if t.percent > identifierThreshold {
		return false
	}

	for _, rule := range identifierRules {
		if rule.applies(t, r) {
			return true
		}
	}
	return false
}

// restoreModuleNumber восстанавливает номер модуля в имени, потерянный на
// предыдущих шагах: если имя содержит слово "module" без числа рядом, а slug
// соответствует шаблону "cpp-module-NN", номер вставляется сразу после слова
// "module" в двузначном виде с ведущим нулём.
func restoreModuleNumber(name, slug string) string {
	if name == "" || slug == "" {
		return name
	}

	if moduleAdjacentNumberRe.MatchString(name) {
		return name
	}

	wordLoc := moduleWordRe.FindStringIndex(name)
	if wordLoc == nil {
		return name
	}

	m := moduleSlugRe.FindStringSubmatch(slug)
	if m == nil {
		return name
	}

	number, err := strconv.Atoi(m[1])
	if err != nil {
		return name
	}

	return name[:wordLoc[1]] + fmt.Sprintf(" %02d", number) + name[wordLoc[1]:]
}

// clampPercent ограничивает прогресс диапазоном [0,100]. nil остаётся nil.
func clampPercent(p *int) *int {
	if p == nil {
		return nil
	}

	v := *p
	if v < 0 {
		v = 0
	}
	if v > maxProgressPercent {
		v = maxProgressPercent
	}
	return &v
}
