package similarity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grihladin/42Connect/internal/domain/shared"
)

func TestLocal_Compare(t *testing.T) {
	local := NewLocal()
	ctx := context.Background()

	t.Run("identical texts score 1", func(t *testing.T) {
		score, err := local.Compare(ctx, "night owl, loves pair programming", "night owl, loves pair programming")
		require.NoError(t, err)
		assert.Equal(t, 1.0, score)
	})

	t.Run("case and whitespace do not count", func(t *testing.T) {
		score, err := local.Compare(ctx, "Night  Owl", "night owl")
		require.NoError(t, err)
		assert.Equal(t, 1.0, score)
	})

	t.Run("similar beats dissimilar", func(t *testing.T) {
		similar, err := local.Compare(ctx, "early bird, quiet focus", "early bird, deep focus")
		require.NoError(t, err)
		dissimilar, err := local.Compare(ctx, "early bird, quiet focus", "late night gaming marathons")
		require.NoError(t, err)
		assert.Greater(t, similar, dissimilar)
	})

	t.Run("score never negative", func(t *testing.T) {
		score, err := local.Compare(ctx, "a", "completely different and much longer text")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score, 0.0)
	})
}

func TestClient_Compare(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/similarity", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"similarity": 0.82}`)
	}))
	defer server.Close()

	client := NewClient(DefaultClientConfig(server.URL))

	score, err := client.Compare(context.Background(), "night owl", "evening person")
	require.NoError(t, err)
	assert.Equal(t, 0.82, score)
}

func TestClient_Compare_ServiceErrorIsExternal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(DefaultClientConfig(server.URL))

	_, err := client.Compare(context.Background(), "a", "b")
	require.Error(t, err)
	assert.True(t, shared.IsExternalService(err))
}

type stubProvider struct {
	score float64
	err   error
	calls int
}

func (s *stubProvider) Compare(_ context.Context, _, _ string) (float64, error) {
	s.calls++
	return s.score, s.err
}

func TestScorer_PrimaryWins(t *testing.T) {
	primary := &stubProvider{score: 0.9}
	fallback := &stubProvider{score: 0.1}

	fn := NewScorer(primary, fallback, nil).Func(context.Background())

	assert.Equal(t, 0.9, fn("a", "b"))
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestScorer_FallsBackOnPrimaryError(t *testing.T) {
	primary := &stubProvider{err: errors.New("service down")}
	fallback := &stubProvider{score: 0.4}

	fn := NewScorer(primary, fallback, nil).Func(context.Background())

	assert.Equal(t, 0.4, fn("a", "b"))
	assert.Equal(t, 1, fallback.calls)
}

func TestScorer_NilPrimaryUsesFallback(t *testing.T) {
	fallback := &stubProvider{score: 0.4}

	fn := NewScorer(nil, fallback, nil).Func(context.Background())

	assert.Equal(t, 0.4, fn("a", "b"))
}

func TestScorer_FallbackErrorScoresZero(t *testing.T) {
	fallback := &stubProvider{err: errors.New("broken")}

	fn := NewScorer(nil, fallback, nil).Func(context.Background())

	assert.Equal(t, 0.0, fn("a", "b"))
}
