package query

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Grihladin/42Connect/internal/domain/matching"
	"github.com/Grihladin/42Connect/internal/domain/shared"
	"github.com/Grihladin/42Connect/internal/domain/student"
	"github.com/Grihladin/42Connect/pkg/logger"
	"github.com/Grihladin/42Connect/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MATCH VIBES QUERY
// Ранжирует однокампусников по близости vibe-текстов. Предусловие: у
// запрашивающего должен быть свой vibe-текст, иначе ErrVibeNotShared
// пробрасывается вызывающему ("сначала поделись своим vibe").
// ══════════════════════════════════════════════════════════════════════════════

// MatchVibesQuery содержит параметры поиска по vibe.
type MatchVibesQuery struct {
	// Login - логин запрашивающего студента.
	Login string

	// Limit - максимум кандидатов (по умолчанию 10, максимум 50).
	Limit int
}

// Validate проверяет корректность параметров и проставляет умолчания.
func (q *MatchVibesQuery) Validate() error {
	if q.Login == "" {
		return errors.New("login is required")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 50 {
		q.Limit = 50
	}
	return nil
}

// VibeCandidateDTO - кандидат с оценкой близости.
type VibeCandidateDTO struct {
	// Student - профиль кандидата.
	Student StudentDTO `json:"student"`

	// Similarity - оценка близости, округлённая до трёх знаков.
	Similarity float64 `json:"similarity"`

	// SimilarityPercent - та же оценка в процентах для отображения.
	// Шкала провайдера не нормирована, поэтому значение зажато в [0, 100].
	SimilarityPercent int `json:"similarity_percent"`

	// LatestProject - самый свежий проект кандидата (nil, если проектов нет).
	LatestProject *ProjectDTO `json:"latest_project,omitempty"`
}

// MatchVibesResult содержит результат ранжирования.
type MatchVibesResult struct {
	// Candidates - кандидаты по убыванию близости.
	Candidates []VibeCandidateDTO `json:"candidates"`

	// TotalFound - сколько всего кандидатов до применения лимита.
	TotalFound int `json:"total_found"`

	// GeneratedAt - момент генерации.
	GeneratedAt string `json:"generated_at"`
}

// SimilarityScorer выдаёт функцию близости, привязанную к контексту
// запроса. Реализация - infrastructure/external/similarity.
type SimilarityScorer interface {
	Func(ctx context.Context) matching.SimilarityFunc
}

// MatchVibesHandler обрабатывает поиск по vibe.
type MatchVibesHandler struct {
	studentRepo student.Repository
	poolRepo    matching.PoolRepository
	scorer      SimilarityScorer
	log         *logger.Logger
}

// NewMatchVibesHandler создаёт новый обработчик.
func NewMatchVibesHandler(
	studentRepo student.Repository,
	poolRepo matching.PoolRepository,
	scorer SimilarityScorer,
	log *logger.Logger,
) *MatchVibesHandler {
	if log == nil {
		log = logger.Default()
	}

	return &MatchVibesHandler{
		studentRepo: studentRepo,
		poolRepo:    poolRepo,
		scorer:      scorer,
		log:         log.With(logger.Component("match_vibes")),
	}
}

// Handle выполняет ранжирование по vibe.
func (h *MatchVibesHandler) Handle(ctx context.Context, q MatchVibesQuery) (*MatchVibesResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "MatchVibes", shared.ErrValidation, err.Error(), err)
	}

	login := student.Login(q.Login)

	self, err := h.studentRepo.GetByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("match_vibes: %w", err)
	}

	// Участие в пуле - само по себе согласие: фильтра по ready_to_help нет.
	pool, err := h.poolRepo.VibePool(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("match_vibes: load pool: %w", err)
	}

	ranked, err := matching.RankVibeMatches(self.VibeText, pool, h.scorer.Func(ctx))
	if err != nil {
		// ErrVibeNotShared уходит вызывающему как есть.
		return nil, err
	}

	now := timeutil.UTCNow()
	totalFound := len(ranked)

	if len(ranked) > q.Limit {
		ranked = ranked[:q.Limit]
	}

	candidates := make([]VibeCandidateDTO, 0, len(ranked))
	for _, c := range ranked {
		dto := VibeCandidateDTO{
			Student:           summaryDTO(c.Student),
			Similarity:        math.Round(c.Similarity*1000) / 1000,
			SimilarityPercent: similarityPercent(c.Similarity),
		}

		if c.LatestProject != nil {
			p := toProjectDTO(*c.LatestProject, now)
			dto.LatestProject = &p
		}

		candidates = append(candidates, dto)
	}

	return &MatchVibesResult{
		Candidates:  candidates,
		TotalFound:  totalFound,
		GeneratedAt: timeutil.FormatInstant(now),
	}, nil
}

// similarityPercent переводит оценку провайдера в проценты для
// отображения. Провайдеры обычно отдают [0, 1], но шкала не нормирована,
// поэтому результат зажимается в [0, 100].
func similarityPercent(score float64) int {
	percent := int(math.Round(score * 100))
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
