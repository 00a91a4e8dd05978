package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Grihladin/42Connect/config"
	"github.com/Grihladin/42Connect/internal/application/command"
	"github.com/Grihladin/42Connect/internal/application/query"
	"github.com/Grihladin/42Connect/internal/domain/matching"
	"github.com/Grihladin/42Connect/internal/domain/shared"
	"github.com/Grihladin/42Connect/internal/infrastructure/external/intra"
	"github.com/Grihladin/42Connect/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// ProfileFetcher loads the profile of the token owner after code exchange.
// Satisfied by *intra.Client.
type ProfileFetcher interface {
	GetCurrentUser(ctx context.Context, token *oauth2.Token) (*intra.ProfileDTO, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Unknown endpoint")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"service": "42connect",
		"status":  "ok",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": s.Uptime().String(),
	})
}

// handleReady runs all registered probes. Any failure makes the service
// not ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.deps.HealthProbes))
	ready := true

	for name, probe := range s.deps.HealthProbes {
		if err := probe(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]interface{}{
		"ready":  ready,
		"checks": checks,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// OAUTH LOGIN FLOW
// ══════════════════════════════════════════════════════════════════════════════

// handleAuthLogin issues a state nonce and redirects to the Intra
// authorization page.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	if err := s.deps.Sessions.SetOAuthState(w, r, state); err != nil {
		s.logger.Error("failed to store oauth state", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "session_error", "Could not start the login flow")
		return
	}

	http.Redirect(w, r, s.deps.OAuth.AuthCodeURL(state), http.StatusFound)
}

// handleAuthCallback exchanges the authorization code, fetches the profile,
// triggers an on-login sync and issues the session cookie.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_callback", "Missing code or state")
		return
	}

	stored, err := s.deps.Sessions.ConsumeOAuthState(w, r)
	if err != nil || stored != state {
		writeJSONError(w, http.StatusBadRequest, "state_mismatch", "OAuth state does not match, restart the login flow")
		return
	}

	token, err := s.deps.OAuth.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("oauth code exchange failed", logger.Err(err))
		writeJSONError(w, http.StatusBadGateway, "exchange_failed", "Could not exchange the authorization code")
		return
	}

	profile, err := s.deps.Profile.GetCurrentUser(ctx, token)
	if err != nil {
		s.logger.Error("profile fetch failed", logger.Err(err))
		writeJSONError(w, http.StatusBadGateway, "profile_failed", "Could not load your Intra profile")
		return
	}

	if s.featureEnabled(config.FeatureSyncOnLogin, profile.ID) {
		_, err = s.deps.SyncStudent.Handle(ctx, command.SyncStudentCommand{
			Login:         profile.Login,
			ForceSync:     true,
			CorrelationID: getRequestID(ctx),
		})
		if err != nil {
			s.logger.Error("on-login sync failed",
				logger.Login(profile.Login), logger.Err(err))
			writeJSONError(w, http.StatusBadGateway, "sync_failed", "Could not sync your projects from Intra")
			return
		}
	}

	if err := s.deps.Sessions.SignIn(w, r, profile.Login, profile.BestDisplayName()); err != nil {
		s.logger.Error("session issuance failed", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "session_error", "Could not create the session")
		return
	}

	http.Redirect(w, r, s.config.PostLoginRedirect, http.StatusFound)
}

func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.SignOut(w, r); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "session_error", "Could not clear the session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"signed_out": true})
}

// handleAuthSession echoes the current session, if any.
func (s *Server) handleAuthSession(w http.ResponseWriter, r *http.Request) {
	login, err := s.deps.Sessions.CurrentLogin(r)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"login":         login,
		"display_name":  s.deps.Sessions.DisplayName(r),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// API HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetDashboard.Handle(r.Context(), query.GetDashboardQuery{
		Login:     sessionLogin(r.Context()),
		SkipCache: getQueryParamBool(r, "refresh"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFindHelpers(w http.ResponseWriter, r *http.Request) {
	if !s.featureEnabled(config.FeatureMatchingHelpers, 0) {
		writeJSONError(w, http.StatusForbidden, "feature_disabled", "Helper matching is not available")
		return
	}

	result, err := s.deps.FindHelpers.Handle(r.Context(), query.FindHelpersQuery{
		Login: sessionLogin(r.Context()),
		Limit: getQueryParamInt(r, "limit", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMatchVibes(w http.ResponseWriter, r *http.Request) {
	if !s.featureEnabled(config.FeatureMatchingVibes, 0) {
		writeJSONError(w, http.StatusForbidden, "feature_disabled", "Vibe matching is not available")
		return
	}

	result, err := s.deps.MatchVibes.Handle(r.Context(), query.MatchVibesQuery{
		Login: sessionLogin(r.Context()),
		Limit: getQueryParamInt(r, "limit", 0),
	})
	if err != nil {
		if errors.Is(err, matching.ErrVibeNotShared) {
			writeJSONError(w, http.StatusConflict, "vibe_not_shared", "Share your own vibe first")
			return
		}
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// preferencesRequest is the PATCH /api/v1/preferences body.
// Absent fields stay unchanged.
type preferencesRequest struct {
	ReadyToHelp *bool   `json:"ready_to_help"`
	VibeText    *string `json:"vibe_text"`
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Body must be a JSON object")
		return
	}

	result, err := s.deps.UpdatePreferences.Handle(r.Context(), command.UpdatePreferencesCommand{
		Login:       sessionLogin(r.Context()),
		ReadyToHelp: req.ReadyToHelp,
		VibeText:    req.VibeText,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.SyncStudent.Handle(r.Context(), command.SyncStudentCommand{
		Login:         sessionLogin(r.Context()),
		ForceSync:     getQueryParamBool(r, "force"),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain error kinds onto HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", "Student or resource not found")
	case errors.Is(err, shared.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case shared.IsPreconditionFailed(err):
		writeJSONError(w, http.StatusConflict, "precondition_failed", err.Error())
	case shared.IsExternalService(err):
		s.logger.Error("upstream failure",
			logger.String("path", r.URL.Path), logger.Err(err))
		writeJSONError(w, http.StatusBadGateway, "upstream_error", "An upstream service is unavailable")
	default:
		s.logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Something went wrong")
	}
}

// featureEnabled checks a toggle. A nil flag set means everything is on.
func (s *Server) featureEnabled(name string, intraID int64) bool {
	if s.deps.Features == nil {
		return true
	}

	var fctx *config.FeatureContext
	if intraID != 0 {
		fctx = &config.FeatureContext{UserID: intraID}
	}
	return s.deps.Features.IsEnabled(name, fctx)
}
