package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/couchcryptid/risk-asset-explorer/internal/control"
	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	"github.com/couchcryptid/risk-asset-explorer/internal/pipeline"
	"github.com/couchcryptid/risk-asset-explorer/internal/session"
	"github.com/couchcryptid/risk-asset-explorer/internal/store"
	"github.com/go-chi/chi/v5"
)

// Session is the control surface the API drives.
type Session interface {
	State() control.State
	SubmitDecade(input string) (control.State, error)
	OpenFilter() control.State
	CloseFilter() control.State
	ToggleFilter() control.State
	SetFactorRange(factor string, iv domain.Interval) (control.State, error)
	ClickSort(key domain.SortKey) control.State
	Table() (session.TableView, error)
	Map() (session.MapView, error)
}

// Reloader re-fetches the configured CSV sources.
type Reloader interface {
	Reload(ctx context.Context) ([]pipeline.SourceReport, error)
}

// LoadStatus reports what has been loaded so far.
type LoadStatus interface {
	LastError() error
	Batches() []store.Batch
}

type stateResponse struct {
	Controls  control.State `json:"controls"`
	LoadError string        `json:"load_error,omitempty"`
	Batches   []store.Batch `json:"batches,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	resp := stateResponse{Controls: s.session.State()}
	if s.status != nil {
		if err := s.status.LastError(); err != nil {
			resp.LoadError = err.Error()
		}
		resp.Batches = s.status.Batches()
	}
	writeJSON(w, http.StatusOK, resp)
}

type factorsResponse struct {
	Factors []string `json:"factors"`
	Step    float64  `json:"step"`
}

func (s *Server) handleFactors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, factorsResponse{Factors: domain.FactorNames, Step: 0.01})
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	view, err := s.session.Map()
	if err != nil {
		s.writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleTable(w http.ResponseWriter, _ *http.Request) {
	view, err := s.session.Table()
	if err != nil {
		s.writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type decadeRequest struct {
	Decade json.RawMessage `json:"decade"`
}

// decadeInput accepts the decade as either a JSON string or a JSON number.
func (req decadeRequest) decadeInput() (string, error) {
	raw := strings.TrimSpace(string(req.Decade))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(req.Decade, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return raw, nil
}

func (s *Server) handleDecade(w http.ResponseWriter, r *http.Request) {
	var req decadeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	input, err := req.decadeInput()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid decade: " + err.Error()})
		return
	}

	state, err := s.session.SubmitDecade(input)
	if err != nil {
		s.writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleFilterOpen(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.OpenFilter())
}

func (s *Server) handleFilterClose(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.CloseFilter())
}

func (s *Server) handleFilterToggle(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.ToggleFilter())
}

type draftRequest struct {
	Lo *float64 `json:"lo"`
	Hi *float64 `json:"hi"`
}

func (s *Server) handleFilterDraft(w http.ResponseWriter, r *http.Request) {
	factor, err := url.PathUnescape(chi.URLParam(r, "factor"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid factor: " + err.Error()})
		return
	}

	var req draftRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.Lo == nil || req.Hi == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "lo and hi are required"})
		return
	}

	state, err := s.session.SetFactorRange(factor, domain.Interval{Lo: *req.Lo, Hi: *req.Hi})
	if err != nil {
		s.writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	key, err := domain.ParseSortKey(chi.URLParam(r, "key"))
	if err != nil {
		s.writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.ClickSort(key))
}

type reloadResponse struct {
	Sources []pipeline.SourceReport `json:"sources"`
	Error   string                  `json:"error,omitempty"`
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	reports, err := s.reloader.Reload(r.Context())
	if err != nil {
		s.logger.Warn("reload failed", "error", err)
		writeJSON(w, http.StatusBadGateway, reloadResponse{Sources: reports, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Sources: reports})
}

// writeControlError maps rejected control input to 400 and anything else to 500.
// Rejected input leaves the controls unchanged, so the current state is echoed.
func (s *Server) writeControlError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidTimeWindow),
		errors.Is(err, domain.ErrPanelClosed),
		errors.Is(err, domain.ErrUnknownFactor),
		errors.Is(err, domain.ErrInvalidInterval),
		errors.Is(err, domain.ErrUnknownSortKey):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), State: s.session.State()})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
