package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/lucasdreger/couplecents/internal/core"
)

type targetJSON struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	ValueCents  int64  `json:"value_cents"`
	Value       string `json:"value"`
	LastUpdated string `json:"last_updated"`
}

func toTargetJSON(t core.BalanceTarget) targetJSON {
	return targetJSON{
		ID:          t.ID,
		Type:        string(t.Type),
		Name:        t.Name,
		ValueCents:  t.CurrentValue.Cents,
		Value:       t.CurrentValue.Format(),
		LastUpdated: t.LastUpdated.UTC().Format(time.RFC3339),
	}
}

// handleInvestments and handleReserves share one implementation; only the
// target type differs.
func (s *Server) handleInvestments(w http.ResponseWriter, r *http.Request) {
	s.handleTargets(w, r, core.TargetInvestment)
}

func (s *Server) handleReserves(w http.ResponseWriter, r *http.Request) {
	s.handleTargets(w, r, core.TargetReserve)
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request, targetType core.TargetType) {
	switch r.Method {
	case http.MethodGet:
		targets, err := s.repo.Targets(r.Context(), targetType)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		out := make([]targetJSON, 0, len(targets))
		for _, t := range targets {
			out = append(out, toTargetJSON(t))
		}
		respondJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		value := core.Money{}
		if req.Value != "" {
			var err error
			if value, err = core.ParseMoney(req.Value); err != nil {
				respondDomainError(w, r, err)
				return
			}
		}

		target := core.BalanceTarget{
			ID:           newID(),
			Type:         targetType,
			Name:         sanitizeInput(req.Name),
			CurrentValue: value,
			LastUpdated:  time.Now().UTC(),
		}
		if target.Name == "" {
			respondDomainError(w, r, core.ErrEmptyDescription)
			return
		}
		if err := s.repo.CreateTarget(r.Context(), target); err != nil {
			respondDomainError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, toTargetJSON(target))

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// handleTargetValue serves POST /api/target-value: a manual balance
// correction, recorded in the value history.
func (s *Server) handleTargetValue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req struct {
		TargetType string `json:"target_type"`
		TargetID   string `json:"target_id"`
		Value      string `json:"value"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	targetType := core.TargetType(req.TargetType)
	if err := targetType.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}
	value, err := core.ParseMoney(req.Value)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := s.repo.UpdateTargetValue(r.Context(), targetType, req.TargetID, value, time.Now().UTC()); err != nil {
		respondDomainError(w, r, err)
		return
	}

	target, err := s.repo.Target(r.Context(), targetType, req.TargetID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toTargetJSON(target))
}

type historyJSON struct {
	ID            int64  `json:"id"`
	PreviousCents int64  `json:"previous_value_cents"`
	NewCents      int64  `json:"new_value_cents"`
	DeltaCents    int64  `json:"delta_cents"`
	Source        string `json:"source"`
	ConfigID      string `json:"config_id,omitempty"`
	Period        string `json:"period,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// handleTargetHistory serves GET /api/target-history?type=&id=&limit=.
func (s *Server) handleTargetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	targetType := core.TargetType(r.URL.Query().Get("type"))
	if err := targetType.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing target id")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.repo.ValueHistory(r.Context(), targetType, id, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]historyJSON, 0, len(entries))
	for _, e := range entries {
		h := historyJSON{
			ID:            e.ID,
			PreviousCents: e.PreviousValue.Cents,
			NewCents:      e.NewValue.Cents,
			DeltaCents:    e.Delta().Cents,
			Source:        string(e.Source),
			ConfigID:      e.ConfigID,
			Timestamp:     e.Timestamp.UTC().Format(time.RFC3339),
		}
		if e.Period != nil {
			h.Period = e.Period.String()
		}
		out = append(out, h)
	}
	respondJSON(w, http.StatusOK, out)
}
