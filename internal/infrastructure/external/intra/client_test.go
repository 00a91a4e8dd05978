package intra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectUserDTO_Parsing(t *testing.T) {
	jsonData := `{
    "id": 3210599,
    "final_mark": 114,
    "status": "finished",
    "validated?": true,
    "marked_at": "2023-10-05T12:30:00.000Z",
    "project": {
        "id": 1314,
        "name": "ft_printf",
        "slug": "42cursus-ft-printf"
    },
    "teams": [
        {
            "id": 4815162,
            "closed_at": "2023-10-04T18:00:00.000Z",
            "final_mark": 114,
            "validated?": true
        }
    ]
}`

	var entry ProjectUserDTO
	err := json.Unmarshal([]byte(jsonData), &entry)
	assert.NoError(t, err)

	assert.Equal(t, int64(3210599), entry.ID)
	assert.Equal(t, "finished", entry.Status)
	require.NotNil(t, entry.Validated)
	assert.True(t, *entry.Validated)
	require.NotNil(t, entry.FinalMark)
	assert.Equal(t, 114, *entry.FinalMark)

	assert.Equal(t, int64(1314), entry.Project.ID)
	assert.Equal(t, "ft_printf", entry.Project.Name)
	assert.Equal(t, "42cursus-ft-printf", entry.Project.Slug)

	require.Len(t, entry.Teams, 1)
	assert.Equal(t, "2023-10-04T18:00:00.000Z", entry.Teams[0].ClosedAt)
}

func TestProjectUserDTO_NullsUntilGraded(t *testing.T) {
	jsonData := `{
    "id": 1,
    "final_mark": null,
    "status": "in_progress",
    "validated?": null,
    "marked_at": null,
    "project": {"id": 2, "name": "minishell", "slug": "42cursus-minishell"}
}`

	var entry ProjectUserDTO
	err := json.Unmarshal([]byte(jsonData), &entry)
	assert.NoError(t, err)

	assert.Nil(t, entry.Validated)
	assert.Nil(t, entry.FinalMark)
	assert.Empty(t, entry.MarkedAt)
}

func TestProfileDTO_BestDisplayName(t *testing.T) {
	profile := &ProfileDTO{Login: "jdoe"}
	assert.Equal(t, "jdoe", profile.BestDisplayName())

	profile.UsualFullName = "John Doe"
	assert.Equal(t, "John Doe", profile.BestDisplayName())

	profile.DisplayName = "Johnny"
	assert.Equal(t, "Johnny", profile.BestDisplayName())
}

func TestProfileDTO_PrimaryCampus(t *testing.T) {
	profile := &ProfileDTO{}
	assert.Empty(t, profile.PrimaryCampus())

	profile.Campus = []CampusDTO{{ID: 1, Name: "Paris"}, {ID: 2, Name: "Lyon"}}
	assert.Equal(t, "Paris", profile.PrimaryCampus())
}

// newTestServer serves an OAuth token endpoint plus the given handler.
func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"test-token","token_type":"bearer","expires_in":7200}`)
	})
	mux.HandleFunc("/v2/", handler)

	return httptest.NewServer(mux)
}

func TestClient_GetUser(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/users/jdoe", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 42, "login": "jdoe", "displayname": "John Doe", "campus": [{"id": 1, "name": "Paris"}]}`)
	})
	defer server.Close()

	client := NewClient(DefaultClientConfig(server.URL, "uid", "secret"))

	profile, err := client.GetUser(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.Equal(t, int64(42), profile.ID)
	assert.Equal(t, "jdoe", profile.Login)
	assert.Equal(t, "Paris", profile.PrimaryCampus())
}

func TestClient_GetUserProjects_Pagination(t *testing.T) {
	config := DefaultClientConfig("", "uid", "secret")
	config.PageSize = 2
	config.RateLimit = 1000 // keep the test fast

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/projects_users", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("filter[user_id]"))
		assert.Equal(t, "2", r.URL.Query().Get("page[size]"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page[number]") {
		case "1":
			fmt.Fprint(w, `[
                {"id": 1, "status": "finished", "project": {"id": 10, "name": "libft", "slug": "42cursus-libft"}},
                {"id": 2, "status": "finished", "project": {"id": 11, "name": "get_next_line", "slug": "42cursus-get-next-line"}}
            ]`)
		case "2":
			fmt.Fprint(w, `[
                {"id": 3, "status": "in_progress", "project": {"id": 12, "name": "minishell", "slug": "42cursus-minishell"}}
            ]`)
		default:
			t.Fatalf("unexpected page %s", r.URL.Query().Get("page[number]"))
		}
	})
	defer server.Close()

	config.BaseURL = server.URL
	client := NewClient(config)

	entries, err := client.GetUserProjects(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(1), entries[0].ID)
	assert.Equal(t, "minishell", entries[2].Project.Name)
}

func TestClient_GetUserProjects_EmptyFirstPage(t *testing.T) {
	config := DefaultClientConfig("", "uid", "secret")
	config.RateLimit = 1000

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	})
	defer server.Close()

	config.BaseURL = server.URL
	client := NewClient(config)

	entries, err := client.GetUserProjects(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClient_PermanentErrorNotRetried(t *testing.T) {
	config := DefaultClientConfig("", "uid", "secret")
	config.RateLimit = 1000

	calls := 0
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": "not found"}`)
	})
	defer server.Close()

	config.BaseURL = server.URL
	client := NewClient(config)

	_, err := client.GetUser(context.Background(), "nobody")
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var apiErr *APIErrorDTO
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClient_ServerErrorRetried(t *testing.T) {
	config := DefaultClientConfig("", "uid", "secret")
	config.RateLimit = 1000
	config.MaxRetries = 2
	config.RetryBaseDelay = 1 // effectively no backoff in tests

	calls := 0
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 42, "login": "jdoe"}`)
	})
	defer server.Close()

	config.BaseURL = server.URL
	client := NewClient(config)

	profile, err := client.GetUser(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "jdoe", profile.Login)
}

func TestClient_GetUserCursus(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/cursus_users", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("filter[user_id]"))
		assert.Equal(t, "cursus", r.URL.Query().Get("include"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
            {"id": 501, "grade": "Member", "level": 8.43, "begin_at": "2023-09-01T00:00:00.000Z",
             "cursus": {"id": 21, "name": "42cursus", "slug": "42cursus"}},
            {"id": 502, "grade": null, "level": 9.11, "end_at": "2023-08-25T00:00:00.000Z",
             "cursus": {"id": 9, "name": "C Piscine", "slug": "c-piscine"}}
        ]`)
	})
	defer server.Close()

	client := NewClient(DefaultClientConfig(server.URL, "uid", "secret"))

	entries, err := client.GetUserCursus(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(501), entries[0].ID)
	require.NotNil(t, entries[0].Grade)
	assert.Equal(t, "Member", *entries[0].Grade)
	assert.Equal(t, int64(21), entries[0].Cursus.ID)

	assert.Nil(t, entries[1].Grade)
	assert.Equal(t, 9.11, entries[1].Level)
}
