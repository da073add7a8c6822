package finance

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"barberbook-backend/internal/httpx"
	"barberbook-backend/internal/middleware"
	"barberbook-backend/internal/schedule"
	"barberbook-backend/internal/transport"
	"barberbook-backend/internal/validation"
)

type Handler struct {
	service  *Service
	val      *validation.Validator
	log      *slog.Logger
	location *time.Location
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger, location *time.Location) *Handler {
	return &Handler{
		service:  service,
		val:      val,
		log:      log,
		location: location,
	}
}

func (h *Handler) AdminSync(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req SyncRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("finance sync: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("finance sync: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}
	if err := schedule.ValidateRange(req.From, req.To, h.location); err != nil {
		log.Warn("finance sync: invalid range", slog.String("from", req.From), slog.String("to", req.To))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	created, err := h.service.SyncFromAppointments(ctx, req.From, req.To)
	if err != nil {
		log.Error("finance sync: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("finance sync: ok", slog.String("from", req.From), slog.String("to", req.To), slog.Int("created", created))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"created": created,
	})
}

func (h *Handler) AdminAddExpense(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req AddExpenseRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("finance expense: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("finance expense: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	transaction, err := h.service.AddExpense(ctx, req)
	if err != nil {
		log.Error("finance expense: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("finance expense: ok", slog.String("date", transaction.Date), slog.Int("amount", transaction.Amount))
	transport.WriteJSON(w, http.StatusCreated, transaction)
}

func (h *Handler) AdminSummary(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if err := schedule.ValidateRange(from, to, h.location); err != nil {
		log.Warn("finance summary: invalid range", slog.String("from", from), slog.String("to", to))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	summary, err := h.service.Summarize(ctx, from, to)
	if err != nil {
		log.Error("finance summary: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("finance summary: ok", slog.String("from", from), slog.String("to", to))
	transport.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if err := schedule.ValidateRange(from, to, h.location); err != nil {
		log.Warn("finance list: invalid range", slog.String("from", from), slog.String("to", to))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.service.ListInRange(ctx, from, to)
	if err != nil {
		log.Error("finance list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("finance list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": items,
		"count":        len(items),
	})
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
