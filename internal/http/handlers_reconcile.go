package http

import (
	"net/http"
	"time"

	"github.com/lucasdreger/couplecents/internal/core"
	"github.com/lucasdreger/couplecents/internal/services"
)

type configJSON struct {
	ID                   string `json:"id"`
	TargetType           string `json:"target_type"`
	TargetID             string `json:"target_id"`
	LinkedFixedExpenseID string `json:"linked_fixed_expense_id,omitempty"`
	MonthlyAmountCents   int64  `json:"monthly_amount_cents"`
	MonthlyAmount        string `json:"monthly_amount"`
	LastApplied          string `json:"last_applied,omitempty"`
	Active               bool   `json:"active"`
}

func toConfigJSON(c core.AutoIncrementConfig) configJSON {
	out := configJSON{
		ID:                   c.ID,
		TargetType:           string(c.TargetType),
		TargetID:             c.TargetID,
		LinkedFixedExpenseID: c.LinkedFixedExpenseID,
		MonthlyAmountCents:   c.MonthlyAmount.Cents,
		MonthlyAmount:        c.MonthlyAmount.Format(),
		Active:               c.Active,
	}
	if c.LastApplied != nil {
		out.LastApplied = c.LastApplied.String()
	}
	return out
}

func (s *Server) handleAutoIncrements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		configs, err := s.repo.ActiveConfigs(r.Context())
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		out := make([]configJSON, 0, len(configs))
		for _, c := range configs {
			out = append(out, toConfigJSON(c))
		}
		respondJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req struct {
			TargetType           string `json:"target_type"`
			TargetID             string `json:"target_id"`
			LinkedFixedExpenseID string `json:"linked_fixed_expense_id"`
			MonthlyAmount        string `json:"monthly_amount"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		amount, err := core.ParseMoney(req.MonthlyAmount)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}

		cfg := core.AutoIncrementConfig{
			ID:                   newID(),
			TargetType:           core.TargetType(req.TargetType),
			TargetID:             req.TargetID,
			LinkedFixedExpenseID: req.LinkedFixedExpenseID,
			MonthlyAmount:        amount,
			Active:               true,
			CreatedAt:            time.Now().UTC(),
		}
		if err := cfg.Validate(); err != nil {
			respondDomainError(w, r, err)
			return
		}

		// The target must exist before a config can point at it.
		if _, err := s.repo.Target(r.Context(), cfg.TargetType, cfg.TargetID); err != nil {
			respondDomainError(w, r, err)
			return
		}
		if err := s.repo.CreateConfig(r.Context(), cfg); err != nil {
			respondDomainError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, toConfigJSON(cfg))

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// handleAutoIncrementByID serves DELETE /api/auto-increments/{id}, which
// deactivates the config. History stays untouched.
func (s *Server) handleAutoIncrementByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, "DELETE")
		return
	}
	id := pathSuffix(r, "/api/auto-increments")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing config id")
		return
	}
	if err := s.repo.DeactivateConfig(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type reconcileResultJSON struct {
	ConfigID   string `json:"config_id"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	NewCents   int64  `json:"new_value_cents,omitempty"`
}

type reconcileReportJSON struct {
	Period  string                `json:"period"`
	Applied int                   `json:"applied"`
	Skipped int                   `json:"skipped"`
	Failed  int                   `json:"failed"`
	Results []reconcileResultJSON `json:"results"`
}

func toReportJSON(rep services.ReconcileReport) reconcileReportJSON {
	out := reconcileReportJSON{
		Period:  rep.Period.String(),
		Applied: rep.Applied,
		Skipped: rep.Skipped,
		Failed:  rep.Failed,
		Results: make([]reconcileResultJSON, 0, len(rep.Results)),
	}
	for _, res := range rep.Results {
		out.Results = append(out.Results, reconcileResultJSON{
			ConfigID:   res.ConfigID,
			TargetType: string(res.TargetType),
			TargetID:   res.TargetID,
			Outcome:    string(res.Outcome),
			Reason:     res.Reason,
			NewCents:   res.NewValue.Cents,
		})
	}
	return out
}

// handleReconcile serves POST /api/reconcile: run the auto-increment batch
// for the requested (default current) period. Reruns are safe.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	p, err := periodFromQuery(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	report, err := s.reconciler.Run(r.Context(), p)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toReportJSON(report))
}
