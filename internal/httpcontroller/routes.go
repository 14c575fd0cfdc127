package httpcontroller

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
	"github.com/masvision/shelfsync/internal/trigger"
)

// Response bodies of the trigger endpoint.
const (
	LivenessMessage     = "shelfsync is running"
	UpdateSucceeded     = "Update successful!"
	UpdateFailed        = "Update failed"
	UpdateInProgress    = "Update already in progress"
	UpdateUnknownScopes = "Unknown scope"
)

func (s *Server) initRoutes() {
	s.Echo.GET("/", s.handleLiveness)
	s.Echo.POST("/update", s.handleUpdate, s.updateRateLimiter())
	s.Echo.GET("/status", s.handleStatus)
	if s.metrics != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(s.metrics))
	}
}

func (s *Server) handleLiveness(c echo.Context) error {
	return c.String(http.StatusOK, LivenessMessage)
}

// handleUpdate runs a sync for the scopes named by repeated "scope" query
// parameters, or for all scopes. Failures are reported without detail.
func (s *Server) handleUpdate(c echo.Context) error {
	scopes := c.QueryParams()["scope"]

	// a client hanging up must not abort a half-written run
	ctx := context.WithoutCancel(c.Request().Context())

	_, err := s.runner.RunFrom(ctx, trigger.SourceHTTP, scopes)
	switch {
	case err == nil:
		return c.String(http.StatusOK, UpdateSucceeded)
	case errors.Is(err, trigger.ErrRunInProgress):
		return c.String(http.StatusConflict, UpdateInProgress)
	case errors.Is(err, trigger.ErrUnknownScope):
		return c.String(http.StatusBadRequest, UpdateUnknownScopes)
	default:
		s.log.Error("update request failed", logger.Strings("scopes", scopes), logger.Error(err))
		return c.String(http.StatusInternalServerError, UpdateFailed)
	}
}

// ScopeStatus is one scope's entry in the status response.
type ScopeStatus struct {
	Scope         string `json:"scope"`
	State         string `json:"state"`
	FailedIn      string `json:"failed_in,omitempty"`
	ErrorCategory string `json:"error_category,omitempty"`
	Products      int    `json:"products"`
	Planograms    int    `json:"planograms"`
	Skipped       int    `json:"skipped_files"`
	DurationMs    int64  `json:"duration_ms"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Running    bool          `json:"running"`
	LastRunID  string        `json:"last_run_id,omitempty"`
	Source     string        `json:"source,omitempty"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Scopes     []ScopeStatus `json:"scopes"`
}

// errorCategory is the only failure detail /status exposes; the error text
// carries paths and driver messages and stays in the logs.
func errorCategory(err error) errors.ErrorCategory {
	var ce errors.CategorizedError
	if errors.As(err, &ce) && ce.ErrorCategory() != "" {
		return ce.ErrorCategory()
	}
	return errors.CategoryGeneric
}

func (s *Server) handleStatus(c echo.Context) error {
	resp := StatusResponse{Running: s.runner.Running(), Scopes: []ScopeStatus{}}

	if last := s.runner.LastRun(); last != nil {
		resp.LastRunID = last.ID
		resp.Source = last.Source
		resp.StartedAt = &last.StartedAt
		resp.FinishedAt = &last.FinishedAt
		for i := range last.Results {
			r := &last.Results[i]
			st := ScopeStatus{
				Scope:      r.Scope,
				State:      r.State.String(),
				Products:   r.Products,
				Planograms: r.Planograms,
				Skipped:    len(r.Skipped),
				DurationMs: r.Duration.Milliseconds(),
			}
			if r.Err != nil {
				st.FailedIn = r.FailedIn.String()
				st.ErrorCategory = string(errorCategory(r.Err))
			}
			resp.Scopes = append(resp.Scopes, st)
		}
	}
	return c.JSON(http.StatusOK, resp)
}
