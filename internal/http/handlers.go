package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err, applog.OpList, "Failed to fetch expenses")
		return
	}
	page, err := ParsePage(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err, applog.OpList, "Failed to fetch expenses")
		return
	}

	res, err := s.svc.List(r.Context(), filter, page)
	if err != nil {
		s.writeError(w, r, err, applog.OpList, "Failed to fetch expenses")
		return
	}

	NewResponse().
		Data(toExpenseListJSON(res.Expenses)).
		Pagination(res.Pagination).
		Write(w)
}

func (s *Server) handleExpenseStats(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err, applog.OpStats, "Failed to fetch expense statistics")
		return
	}

	stats, err := s.svc.Stats(r.Context(), filter.DateOnly())
	if err != nil {
		s.writeError(w, r, err, applog.OpStats, "Failed to fetch expense statistics")
		return
	}

	NewResponse().Data(toStatsJSON(stats)).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, applog.OpRead, "Failed to fetch expense")
		return
	}
	NewResponse().Data(toExpenseJSON(e)).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		s.writeBodyError(w, err)
		return
	}

	e, err := s.svc.Create(r.Context(), parser.ExpenseInput())
	if err != nil {
		s.writeError(w, r, err, applog.OpCreate, "Failed to create expense")
		return
	}

	NewResponse().
		Status(http.StatusCreated).
		Message("Expense created successfully").
		Data(toExpenseJSON(e)).
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		s.writeBodyError(w, err)
		return
	}

	e, err := s.svc.Update(r.Context(), chi.URLParam(r, "id"), parser.ExpensePatch())
	if err != nil {
		s.writeError(w, r, err, applog.OpUpdate, "Failed to update expense")
		return
	}

	NewResponse().
		Message("Expense updated successfully").
		Data(toExpenseJSON(e)).
		Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, applog.OpDelete, "Failed to delete expense")
		return
	}

	NewResponse().
		Message("Expense deleted successfully").
		Data(toExpenseJSON(e)).
		Write(w)
}

// writeError maps a domain error onto its status. Anything that is neither
// a validation nor a not-found error is reported as a 500 with the generic
// message and the diagnostic in the error field.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, op, message string) {
	ctx := r.Context()
	switch {
	case core.IsValidation(err):
		s.logFailure(ctx, "Request rejected", err, applog.ErrorTypeValidation, op)
		BadRequestError(err.Error()).Write(w)
	case core.IsNotFound(err):
		NotFoundError("Expense not found").Write(w)
	case errors.Is(err, context.Canceled):
		// client went away, nobody reads the response
		s.logFailure(ctx, "Request canceled", err, applog.ErrorTypeInternal, op)
	default:
		errorType := applog.ErrorTypeInternal
		if core.IsStore(err) {
			errorType = applog.ErrorTypeStore
		}
		s.logFailure(ctx, message, err, errorType, op)
		InternalServerError(message, err.Error()).Write(w)
	}
}

func (s *Server) logFailure(ctx context.Context, msg string, err error, errorType, op string) {
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogError(ctx, msg, err, errorType, applog.ComponentHTTP, op)
}

func (s *Server) writeBodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large").Write(w)
		return
	}
	BadRequestError("Invalid request body").Error(err.Error()).Write(w)
}

type healthResponse struct {
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Message:   "Expense Tracker API is running",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Uptime:    time.Since(s.started).Seconds(),
	}, nil)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.Ping(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err.Error())
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()}, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, nil)
}

var endpoints = map[string]string{
	"health":   "/health",
	"api":      "/api",
	"expenses": "/api/expenses",
	"stats":    "/api/expenses/stats",
}

func (s *Server) handleAPIInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Expense Tracker API",
		"version":   s.version,
		"endpoints": endpoints,
	}, nil)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to Expense Tracker API",
		"docs": map[string]string{
			"health":   "/health",
			"apiInfo":  "/api",
			"expenses": "/api/expenses",
			"stats":    "/api/expenses/stats",
		},
	}, nil)
}

type routeNotFound struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Path    string `json:"path"`
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, routeNotFound{
		Error: "Route not found",
		Path:  r.URL.RequestURI(),
	}, nil)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	MethodNotAllowedError().Write(w)
}
