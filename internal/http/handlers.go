package http

import (
	"errors"
	"net/http"

	"qmoney/internal/cache"
	"qmoney/internal/charts"
	"qmoney/internal/core"
	applog "qmoney/internal/log"
	"qmoney/internal/query"
	"qmoney/internal/services"
	"qmoney/internal/stats"
)

type (
	listResponse[T any] struct {
		Items []T `json:"items"`
		Count int `json:"count"`
	}

	formattedTotals struct {
		Balance string `json:"balance"`
		Income  string `json:"income"`
		Expense string `json:"expense"`
	}

	dashboardResponse struct {
		services.DashboardView
		Formatted formattedTotals `json:"formatted"`
	}

	depositRequest struct {
		Amount float64 `json:"amount"`
	}

	parseRequest struct {
		Text   string `json:"text"`
		Commit bool   `json:"commit"`
	}

	parseResponse struct {
		Draft       services.ParsedDraft `json:"draft"`
		Transaction *core.Transaction    `json:"transaction,omitempty"`
	}
)

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Count: len(items)}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch t := core.TransactionType(r.URL.Query().Get("type")); t {
	case "":
		writeJSON(w, http.StatusOK, newList(s.tracker.Categories()))
	case core.Expense, core.Income:
		writeJSON(w, http.StatusOK, newList(core.CategoriesFor(t)))
	default:
		writeError(w, r, core.ErrInvalidType)
	}
}

func (s *Server) handleActiveCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newList(s.tracker.ActiveCategories()))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newList(s.tracker.Transactions()))
}

// handleCreateTransaction stores a transaction; a missing date means today.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var d core.TransactionDraft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	d.Note = sanitizeInput(d.Note)
	d.Category = sanitizeInput(d.Category)
	if d.Date == "" {
		d.Date = s.tracker.Today()
	}

	tx, err := s.tracker.AddTransaction(r.Context(), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	s.tracker.RemoveTransaction(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := query.Filter{
		Search:   stripControl(q.Get("q")),
		Category: sanitizeInput(q.Get("category")),
		Date:     sanitizeInput(q.Get("date")),
	}
	if f.Date != "" && !core.IsDate(f.Date) {
		writeError(w, r, core.ErrInvalidDate)
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Search(f))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	n, err := intQuery(r, "recent", 0, 1, 50)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view := s.tracker.Dashboard(n)
	writeJSON(w, http.StatusOK, dashboardResponse{
		DashboardView: view,
		Formatted: formattedTotals{
			Balance: core.FormatCurrency(view.Balance),
			Income:  core.FormatCurrency(view.Income),
			Expense: core.FormatCurrency(view.Expense),
		},
	})
}

func (s *Server) statsView(r *http.Request) (services.StatsView, int, error) {
	days, err := intQuery(r, "days", 0, 1, 366)
	if err != nil {
		return services.StatsView{}, 0, err
	}
	view, err := s.tracker.Stats(days, r.URL.Query().Get("date"))
	return view, days, err
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	view, _, err := s.statsView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDailyChart(w http.ResponseWriter, r *http.Request) {
	s.serveChart(w, r, "daily", func(v services.StatsView) ([]byte, error) {
		return charts.DailyBar(v.Daily)
	})
}

func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	s.serveChart(w, r, "categories", func(v services.StatsView) ([]byte, error) {
		return charts.CategoryPie(v.Categories)
	})
}

// serveChart renders a PNG through the image cache; 204 when there is
// nothing to plot.
func (s *Server) serveChart(w http.ResponseWriter, r *http.Request, name string, render func(services.StatsView) ([]byte, error)) {
	rev := s.tracker.Revision()
	view, days, err := s.statsView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := cache.Key(name, rev, days, view.Reference)
	img, err := s.images.GetOrRender(key, func() ([]byte, error) { return render(view) })
	if errors.Is(err, charts.ErrNoData) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentChart).ErrorContext(r.Context(), "Chart rendering failed",
			applog.FieldOperation, applog.OpRender,
			"chart", name,
			applog.FieldError, err)
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (s *Server) handleListGoals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.GoalsOverview())
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var d core.GoalDraft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	d.Name = sanitizeInput(d.Name)

	g, err := s.tracker.AddGoal(r.Context(), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// handleDeposit answers 204 for an unknown goal, matching the silent no-op
// of the ledger.
func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	g, ok, err := s.tracker.Deposit(r.Context(), r.PathValue("id"), req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, stats.GoalStatus{
		SavingsGoal: g,
		Progress:    stats.Progress(g),
		Remaining:   stats.Remaining(g),
	})
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	s.tracker.RemoveGoal(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssistantParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	text := sanitizeInput(req.Text)

	if !req.Commit {
		draft, err := s.assistant.Draft(r.Context(), text)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, parseResponse{Draft: draft})
		return
	}

	tx, draft, err := s.assistant.Commit(r.Context(), text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, parseResponse{Draft: draft, Transaction: &tx})
}
