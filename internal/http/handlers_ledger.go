package http

import (
	"net/http"
	"time"

	"github.com/lucasdreger/couplecents/internal/core"
)

type incomeEntryJSON struct {
	Member           string `json:"member"`
	Period           string `json:"period"`
	MainIncomeCents  int64  `json:"main_income_cents"`
	OtherIncomeCents int64  `json:"other_income_cents"`
	MainIncome       string `json:"main_income"`
	OtherIncome      string `json:"other_income"`
}

func toIncomeJSON(e core.IncomeEntry) incomeEntryJSON {
	return incomeEntryJSON{
		Member:           string(e.Member),
		Period:           e.Period.String(),
		MainIncomeCents:  e.MainIncome.Cents,
		OtherIncomeCents: e.OtherIncome.Cents,
		MainIncome:       e.MainIncome.Format(),
		OtherIncome:      e.OtherIncome.Format(),
	}
}

// handleIncome serves GET (list for period) and PUT (upsert one member's
// entry) on /api/income.
func (s *Server) handleIncome(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listIncome(w, r)
	case http.MethodPut, http.MethodPost:
		s.upsertIncome(w, r)
	default:
		methodNotAllowed(w, "GET, PUT, POST")
	}
}

func (s *Server) listIncome(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	entries, err := s.repo.IncomeEntries(r.Context(), p)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]incomeEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, toIncomeJSON(e))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) upsertIncome(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Member      string `json:"member"`
		Year        int    `json:"year"`
		Month       int    `json:"month"`
		MainIncome  string `json:"main_income"`
		OtherIncome string `json:"other_income"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	member := core.MemberID(sanitizeInput(req.Member))
	if !s.knownMember(member) {
		respondDomainError(w, r, core.ErrUnknownMember)
		return
	}

	main, err := core.ParseMoney(req.MainIncome)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	other := core.Money{}
	if req.OtherIncome != "" {
		if other, err = core.ParseMoney(req.OtherIncome); err != nil {
			respondDomainError(w, r, err)
			return
		}
	}

	entry := core.IncomeEntry{
		Member:      member,
		Period:      core.Period{Year: req.Year, Month: req.Month},
		MainIncome:  main,
		OtherIncome: other,
	}
	if err := s.repo.UpsertIncome(r.Context(), entry); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidatePeriod(entry.Period)
	respondJSON(w, http.StatusOK, toIncomeJSON(entry))
}

func (s *Server) knownMember(m core.MemberID) bool {
	for _, known := range s.members {
		if known == m {
			return true
		}
	}
	return false
}

type fixedExpenseJSON struct {
	ID             string `json:"id"`
	Description    string `json:"description"`
	AmountCents    int64  `json:"amount_cents"`
	Amount         string `json:"amount"`
	Owner          string `json:"owner"`
	Category       string `json:"category"`
	StatusRequired bool   `json:"status_required"`
}

func (s *Server) handleFixedExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listFixedExpenses(w, r)
	case http.MethodPost:
		s.createFixedExpense(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listFixedExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.repo.FixedExpenses(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]fixedExpenseJSON, 0, len(expenses))
	for _, f := range expenses {
		out = append(out, fixedExpenseJSON{
			ID:             f.ID,
			Description:    f.Description,
			AmountCents:    f.EstimatedAmount.Cents,
			Amount:         f.EstimatedAmount.Format(),
			Owner:          string(f.Owner),
			Category:       f.Category,
			StatusRequired: f.StatusRequired,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) createFixedExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description    string `json:"description"`
		Amount         string `json:"amount"`
		Owner          string `json:"owner"`
		Category       string `json:"category"`
		StatusRequired bool   `json:"status_required"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	owner := core.MemberID(sanitizeInput(req.Owner))
	if !s.knownMember(owner) {
		respondDomainError(w, r, core.ErrUnknownMember)
		return
	}
	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	f := core.FixedExpense{
		ID:              newID(),
		Description:     sanitizeInput(req.Description),
		EstimatedAmount: amount,
		Owner:           owner,
		Category:        sanitizeInput(req.Category),
		StatusRequired:  req.StatusRequired,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.repo.CreateFixedExpense(r.Context(), f); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateAll()
	respondJSON(w, http.StatusCreated, fixedExpenseJSON{
		ID:             f.ID,
		Description:    f.Description,
		AmountCents:    f.EstimatedAmount.Cents,
		Amount:         f.EstimatedAmount.Format(),
		Owner:          string(f.Owner),
		Category:       f.Category,
		StatusRequired: f.StatusRequired,
	})
}

type statusJSON struct {
	FixedExpenseID string `json:"fixed_expense_id"`
	Period         string `json:"period"`
	Completed      bool   `json:"completed"`
}

// handleFixedExpenseStatuses serves GET (period checklist, rows created
// lazily) and POST (mark one expense paid or unpaid).
func (s *Server) handleFixedExpenseStatuses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p, err := periodFromQuery(r)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		statuses, err := s.repo.FixedExpenseStatuses(r.Context(), p)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		out := make([]statusJSON, 0, len(statuses))
		for _, st := range statuses {
			out = append(out, statusJSON{
				FixedExpenseID: st.FixedExpenseID,
				Period:         st.Period.String(),
				Completed:      st.Completed,
			})
		}
		respondJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req struct {
			FixedExpenseID string `json:"fixed_expense_id"`
			Year           int    `json:"year"`
			Month          int    `json:"month"`
			Completed      bool   `json:"completed"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		p := core.Period{Year: req.Year, Month: req.Month}
		if err := p.Validate(); err != nil {
			respondDomainError(w, r, err)
			return
		}
		if err := s.repo.SetFixedExpenseStatus(r.Context(), req.FixedExpenseID, p, req.Completed, time.Now().UTC()); err != nil {
			respondDomainError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, statusJSON{
			FixedExpenseID: req.FixedExpenseID,
			Period:         p.String(),
			Completed:      req.Completed,
		})

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

type variableExpenseJSON struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Period      string `json:"period"`
}

func (s *Server) handleVariableExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listVariableExpenses(w, r)
	case http.MethodPost:
		s.createVariableExpense(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listVariableExpenses(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	expenses, err := s.repo.VariableExpenses(r.Context(), p)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]variableExpenseJSON, 0, len(expenses))
	for _, v := range expenses {
		out = append(out, toVariableJSON(v))
	}
	respondJSON(w, http.StatusOK, out)
}

func toVariableJSON(v core.VariableExpense) variableExpenseJSON {
	return variableExpenseJSON{
		ID:          v.ID,
		Description: v.Description,
		AmountCents: v.Amount.Cents,
		Amount:      v.Amount.Format(),
		Date:        v.Date.Format("2006-01-02"),
		Category:    v.Category,
		Period:      v.Period.String(),
	}
}

func (s *Server) createVariableExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Date        string `json:"date"`
		Category    string `json:"category"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	date := time.Now()
	if req.Date != "" {
		if date, err = time.Parse("2006-01-02", req.Date); err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	v := core.VariableExpense{
		ID:          newID(),
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		Date:        date,
		Category:    sanitizeInput(req.Category),
		Period:      core.PeriodOf(date),
	}
	if err := s.repo.CreateVariableExpense(r.Context(), v); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidatePeriod(v.Period)
	respondJSON(w, http.StatusCreated, toVariableJSON(v))
}

// handleVariableExpenseByID serves DELETE /api/variable-expenses/{id}.
func (s *Server) handleVariableExpenseByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, "DELETE")
		return
	}
	id := pathSuffix(r, "/api/variable-expenses")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing expense id")
		return
	}
	if err := s.repo.DeleteVariableExpense(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.invalidateAll()
	respondJSON(w, http.StatusNoContent, nil)
}

type billJSON struct {
	Period            string `json:"period"`
	AmountCents       int64  `json:"amount_cents"`
	Amount            string `json:"amount"`
	TransferCompleted bool   `json:"transfer_completed"`
}

func (s *Server) handleCreditCardBill(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p, err := periodFromQuery(r)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		bill, err := s.repo.CreditCardBill(r.Context(), p)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, billJSON{
			Period:            bill.Period.String(),
			AmountCents:       bill.Amount.Cents,
			Amount:            bill.Amount.Format(),
			TransferCompleted: bill.TransferCompleted,
		})

	case http.MethodPut:
		var req struct {
			Year   int    `json:"year"`
			Month  int    `json:"month"`
			Amount string `json:"amount"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		p := core.Period{Year: req.Year, Month: req.Month}
		if err := p.Validate(); err != nil {
			respondDomainError(w, r, err)
			return
		}
		amount, err := core.ParseMoney(req.Amount)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		if err := s.repo.UpdateBillAmount(r.Context(), p, amount); err != nil {
			respondDomainError(w, r, err)
			return
		}

		s.invalidatePeriod(p)
		respondJSON(w, http.StatusOK, billJSON{
			Period:      p.String(),
			AmountCents: amount.Cents,
			Amount:      amount.Format(),
		})

	default:
		methodNotAllowed(w, "GET, PUT")
	}
}

// handleBillTransfer marks the period's settlement transfer as done.
func (s *Server) handleBillTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	p, err := periodFromQuery(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := s.repo.MarkTransferCompleted(r.Context(), p, time.Now().UTC()); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"period":             p.String(),
		"transfer_completed": true,
	})
}
