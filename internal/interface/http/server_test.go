package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Grihladin/42Connect/config"
	"github.com/Grihladin/42Connect/internal/application/command"
	"github.com/Grihladin/42Connect/internal/application/query"
	"github.com/Grihladin/42Connect/internal/domain/matching"
	"github.com/Grihladin/42Connect/internal/domain/project"
	"github.com/Grihladin/42Connect/internal/domain/shared"
	"github.com/Grihladin/42Connect/internal/domain/student"
	"github.com/Grihladin/42Connect/internal/infrastructure/external/intra"
	"github.com/Grihladin/42Connect/internal/infrastructure/external/similarity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type stubStudents struct {
	students map[student.Login]*student.Student
	cursus   map[student.Login][]student.CursusEnrollment
}

func newStubStudents(ss ...*student.Student) *stubStudents {
	repo := &stubStudents{
		students: make(map[student.Login]*student.Student),
		cursus:   make(map[student.Login][]student.CursusEnrollment),
	}
	for _, s := range ss {
		repo.students[s.Login] = s
	}
	return repo
}

func (r *stubStudents) Upsert(_ context.Context, s *student.Student) error {
	r.students[s.Login] = s
	return nil
}

func (r *stubStudents) GetByLogin(_ context.Context, login student.Login) (*student.Student, error) {
	s, ok := r.students[login]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return s, nil
}

func (r *stubStudents) GetByIntraID(_ context.Context, intraID int64) (*student.Student, error) {
	for _, s := range r.students {
		if s.IntraID == intraID {
			return s, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (r *stubStudents) ListLogins(_ context.Context) ([]student.Login, error) {
	logins := make([]student.Login, 0, len(r.students))
	for login := range r.students {
		logins = append(logins, login)
	}
	return logins, nil
}

func (r *stubStudents) UpdatePreferences(_ context.Context, login student.Login, p student.PreferenceUpdate) (*student.Student, error) {
	s, ok := r.students[login]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	if p.ReadyToHelp != nil {
		s.ReadyToHelp = student.OptInFromBool(p.ReadyToHelp)
	}
	if p.VibeText != nil {
		s.VibeText = *p.VibeText
	}
	return s, nil
}

func (r *stubStudents) ReplaceCursus(_ context.Context, login student.Login, enrollments []student.CursusEnrollment) error {
	r.cursus[login] = enrollments
	return nil
}

func (r *stubStudents) ListCursus(_ context.Context, login student.Login) ([]student.CursusEnrollment, error) {
	return r.cursus[login], nil
}

type stubProjects struct {
	records map[student.Login][]project.Record
}

func newStubProjects() *stubProjects {
	return &stubProjects{records: make(map[student.Login][]project.Record)}
}

func (r *stubProjects) ReplaceForStudent(_ context.Context, login student.Login, records []project.Record) error {
	r.records[login] = records
	return nil
}

func (r *stubProjects) ListForStudent(_ context.Context, login student.Login) ([]project.Record, error) {
	return r.records[login], nil
}

func (r *stubProjects) FinishedPool(_ context.Context, _ []project.ID, _ student.Login) ([]matching.FinishedRecord, error) {
	return nil, nil
}

func (r *stubProjects) VibePool(_ context.Context, _ student.Login) ([]matching.VibePoolMember, error) {
	return nil, nil
}

type stubGateway struct {
	profile     *student.Student
	records     []project.Record
	enrollments []student.CursusEnrollment
}

func (g *stubGateway) FetchStudent(_ context.Context, login string) (*student.Student, error) {
	if g.profile == nil {
		return nil, fmt.Errorf("no profile for %s", login)
	}
	return g.profile, nil
}

func (g *stubGateway) FetchProjects(_ context.Context, _ int64) ([]project.Record, error) {
	return g.records, nil
}

func (g *stubGateway) FetchCursus(_ context.Context, _ int64) ([]student.CursusEnrollment, error) {
	return g.enrollments, nil
}

type stubProfile struct {
	profile *intra.ProfileDTO
	err     error
}

func (p *stubProfile) GetCurrentUser(_ context.Context, _ *oauth2.Token) (*intra.ProfileDTO, error) {
	return p.profile, p.err
}

// ─────────────────────────────────────────────────────────────────────────────
// Test harness
// ─────────────────────────────────────────────────────────────────────────────

type testEnv struct {
	server   *Server
	students *stubStudents
	projects *stubProjects
	gateway  *stubGateway
	profile  *stubProfile
	sessions *SessionStore
	features *config.FeatureFlags
}

func newTestEnv(t *testing.T, tokenURL string) *testEnv {
	t.Helper()

	sessions, err := NewSessionStore(SessionConfig{
		Secret: "0123456789abcdef0123456789abcdef",
	})
	require.NoError(t, err)

	students := newStubStudents()
	projects := newStubProjects()
	gateway := &stubGateway{}
	profile := &stubProfile{}
	features := config.LoadFeatureFlags()

	cfg := DefaultConfig()
	cfg.RateLimitPerSecond = 0 // disabled in tests

	server := NewServer(cfg, Dependencies{
		GetDashboard:      query.NewGetDashboardHandler(students, projects, nil, nil),
		FindHelpers:       query.NewFindHelpersHandler(students, projects, projects, nil),
		MatchVibes:        query.NewMatchVibesHandler(students, projects, similarity.NewScorer(nil, similarity.NewLocal(), nil), nil),
		SyncStudent:       command.NewSyncStudentHandler(students, projects, gateway, nil, nil, nil, command.SyncStudentHandlerConfig{}),
		UpdatePreferences: command.NewUpdatePreferencesHandler(students, nil, nil),
		Sessions:          sessions,
		OAuth: NewOAuthFlow(OAuthConfig{
			BaseURL:      tokenURL,
			ClientID:     "uid",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost:8080/auth/callback",
		}),
		Profile:  profile,
		Features: features,
	})

	return &testEnv{
		server:   server,
		students: students,
		projects: projects,
		gateway:  gateway,
		profile:  profile,
		sessions: sessions,
		features: features,
	}
}

// signedInCookies issues a session cookie for the given login without going
// through the OAuth flow.
func (e *testEnv) signedInCookies(t *testing.T, login string) []*http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, e.sessions.SignIn(rec, req, login, login))

	return rec.Result().Cookies()
}

func (e *testEnv) do(method, target string, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, target, reader)
	// Like a browser's cookie jar, keep only the last Set-Cookie per name;
	// replaying duplicates would make the server read the stale first value.
	latest := make(map[string]*http.Cookie)
	var order []string
	for _, c := range cookies {
		if _, seen := latest[c.Name]; !seen {
			order = append(order, c.Name)
		}
		latest[c.Name] = c
	}
	for _, name := range order {
		req.AddCookie(latest[name])
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()

	var resp JSONResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func seededStudent(login string) *student.Student {
	return &student.Student{
		ID:           "00000000-0000-0000-0000-000000000001",
		IntraID:      100,
		Login:        student.Login(login),
		DisplayName:  "Test Student",
		Campus:       "Astana",
		LastSyncedAt: time.Now().UTC(),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Health and status
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")

	rec := env.do(http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestServer_Ready_ProbeFailure(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")
	env.server.deps.HealthProbes = map[string]func(ctx context.Context) error{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return fmt.Errorf("connection refused") },
	}

	rec := env.do(http.MethodGet, "/ready", "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_UnknownEndpoint(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")

	rec := env.do(http.MethodGet, "/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Authentication
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_APIRequiresSession(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")

	for _, target := range []string{
		"/api/v1/dashboard",
		"/api/v1/matching/helpers",
		"/api/v1/matching/vibes",
	} {
		rec := env.do(http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestServer_AuthLogin_RedirectsToIntra(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")

	rec := env.do(http.MethodGet, "/auth/login", "", nil)

	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "intra.example", location.Host)
	assert.Equal(t, "/oauth/authorize", location.Path)
	assert.NotEmpty(t, location.Query().Get("state"))
	assert.NotEmpty(t, rec.Result().Cookies(), "state must be stored in the session cookie")
}

func TestServer_AuthCallback_StateMismatch(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")

	login := env.do(http.MethodGet, "/auth/login", "", nil)
	cookies := login.Result().Cookies()

	rec := env.do(http.MethodGet, "/auth/callback?code=abc&state=forged", "", cookies)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "state_mismatch", resp.Error.Code)
}

func TestServer_AuthCallback_FullFlow(t *testing.T) {
	// Fake Intra token endpoint.
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/token", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok-123","token_type":"bearer","expires_in":7200}`)
	}))
	defer tokenSrv.Close()

	env := newTestEnv(t, tokenSrv.URL)
	env.profile.profile = &intra.ProfileDTO{
		ID:          100,
		Login:       "jdoe",
		DisplayName: "John Doe",
	}
	env.gateway.profile = seededStudent("jdoe")

	// Start the flow to get a state nonce bound to the session.
	loginRec := env.do(http.MethodGet, "/auth/login", "", nil)
	require.Equal(t, http.StatusFound, loginRec.Code)

	location, err := url.Parse(loginRec.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	cookies := loginRec.Result().Cookies()

	// Complete the callback.
	callbackRec := env.do(http.MethodGet, "/auth/callback?code=abc&state="+state, "", cookies)
	require.Equal(t, http.StatusFound, callbackRec.Code, callbackRec.Body.String())
	assert.Equal(t, "/", callbackRec.Header().Get("Location"))

	// On-login sync has stored the student.
	_, err = env.students.GetByLogin(context.Background(), "jdoe")
	assert.NoError(t, err)

	// The issued cookie authenticates API calls.
	sessionRec := env.do(http.MethodGet, "/auth/session", "", callbackRec.Result().Cookies())
	resp := decodeResponse(t, sessionRec)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["authenticated"])
	assert.Equal(t, "jdoe", data["login"])
}

func TestServer_AuthSession_Anonymous(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")

	rec := env.do(http.MethodGet, "/auth/session", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, data["authenticated"])
}

func TestServer_Logout_ClearsSession(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")
	env.students.students["jdoe"] = seededStudent("jdoe")
	cookies := env.signedInCookies(t, "jdoe")

	logoutRec := env.do(http.MethodPost, "/auth/logout", "", cookies)
	require.Equal(t, http.StatusOK, logoutRec.Code)

	// The cleared cookie no longer authenticates.
	rec := env.do(http.MethodGet, "/api/v1/dashboard", "", logoutRec.Result().Cookies())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// API endpoints
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_Dashboard(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")
	env.students.students["jdoe"] = seededStudent("jdoe")
	env.students.cursus["jdoe"] = []student.CursusEnrollment{
		{ID: 501, CursusID: 21, Name: "42cursus", Slug: "42cursus", Grade: "Member", Level: 8.43},
	}
	cookies := env.signedInCookies(t, "jdoe")

	rec := env.do(http.MethodGet, "/api/v1/dashboard", "", cookies)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)

	dashboard, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	cursus, ok := dashboard["cursus"].([]interface{})
	require.True(t, ok)
	require.Len(t, cursus, 1)
	entry := cursus[0].(map[string]interface{})
	assert.Equal(t, "42cursus", entry["name"])
	assert.Equal(t, "Member", entry["grade"])
}

func TestServer_Dashboard_UnknownStudent(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")
	cookies := env.signedInCookies(t, "ghost")

	rec := env.do(http.MethodGet, "/api/v1/dashboard", "", cookies)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_FindHelpers_FeatureDisabled(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")
	env.students.students["jdoe"] = seededStudent("jdoe")
	require.NoError(t, env.features.DisableFeature(config.FeatureMatchingHelpers))
	cookies := env.signedInCookies(t, "jdoe")

	rec := env.do(http.MethodGet, "/api/v1/matching/helpers", "", cookies)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "feature_disabled", resp.Error.Code)
}

func TestServer_MatchVibes_VibeNotShared(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")
	env.students.students["jdoe"] = seededStudent("jdoe") // no vibe text
	cookies := env.signedInCookies(t, "jdoe")

	rec := env.do(http.MethodGet, "/api/v1/matching/vibes", "", cookies)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "vibe_not_shared", resp.Error.Code)
}

func TestServer_UpdatePreferences(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")
	env.students.students["jdoe"] = seededStudent("jdoe")
	cookies := env.signedInCookies(t, "jdoe")

	rec := env.do(http.MethodPatch, "/api/v1/preferences",
		`{"ready_to_help":true,"vibe_text":"ночные дедлайны и много кофе"}`, cookies)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	saved := env.students.students["jdoe"]
	assert.Equal(t, student.OptInYes, saved.ReadyToHelp)
	assert.Equal(t, "ночные дедлайны и много кофе", saved.VibeText)
}

func TestServer_UpdatePreferences_InvalidBody(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")
	env.students.students["jdoe"] = seededStudent("jdoe")
	cookies := env.signedInCookies(t, "jdoe")

	rec := env.do(http.MethodPatch, "/api/v1/preferences", `not json`, cookies)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SyncNow(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")
	env.students.students["jdoe"] = seededStudent("jdoe")
	env.gateway.profile = seededStudent("jdoe")
	cookies := env.signedInCookies(t, "jdoe")

	rec := env.do(http.MethodPost, "/api/v1/sync?force=true", "", cookies)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_RequestIDPropagated(t *testing.T) {
	env := newTestEnv(t, "https://intra.example")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestServer_CORS(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerSecond = 0
	cfg.AllowedOrigin = "http://localhost:5173"

	sessions, err := NewSessionStore(SessionConfig{Secret: "0123456789abcdef0123456789abcdef"})
	require.NoError(t, err)

	server := NewServer(cfg, Dependencies{Sessions: sessions})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/dashboard", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestIPRateLimiter(t *testing.T) {
	rl := newIPRateLimiter(1, 2)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.Allow("10.0.0.2"), "separate bucket per IP")
}

func TestIPRateLimiter_Stop(t *testing.T) {
	rl := newIPRateLimiter(1, 1)

	rl.Stop()
	rl.Stop()

	select {
	case <-rl.done:
	default:
		t.Fatal("done channel not closed")
	}

	// Existing buckets keep limiting after the evictor is gone.
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
}
