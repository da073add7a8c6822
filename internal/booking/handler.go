package booking

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"barberbook-backend/internal/cache"
	"barberbook-backend/internal/httpx"
	"barberbook-backend/internal/middleware"
	"barberbook-backend/internal/schedule"
	"barberbook-backend/internal/transport"
	"barberbook-backend/internal/validation"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
	cache   cache.Cache
	val     *validation.Validator
	log     *slog.Logger
	loc     *time.Location
}

func NewHandler(service *Service, cacheStore cache.Cache, val *validation.Validator, log *slog.Logger, loc *time.Location) *Handler {
	return &Handler{
		service: service,
		cache:   cacheStore,
		val:     val,
		log:     log,
		loc:     loc,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req BookRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("appointments create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("appointments create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	past, err := schedule.IsDatePast(req.Date, h.loc, time.Now())
	if err != nil {
		log.Warn("appointments create: invalid date", slog.String("date", req.Date))
		transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
		return
	}
	if past {
		log.Warn("appointments create: date in the past", slog.String("date", req.Date))
		transport.WriteError(w, http.StatusBadRequest, "date in the past", nil)
		return
	}

	pastSlot, err := schedule.IsSlotPast(req.Date, req.Time, h.loc, time.Now())
	if err != nil {
		log.Warn("appointments create: invalid time", slog.String("time", req.Time))
		transport.WriteError(w, http.StatusBadRequest, "invalid time", nil)
		return
	}
	if pastSlot {
		log.Warn("appointments create: slot already passed", slog.String("date", req.Date), slog.String("time", req.Time))
		transport.WriteError(w, http.StatusBadRequest, "slot already passed", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	appointment, err := h.service.Book(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrServiceNotFound):
			log.Warn("appointments create: service not found", slog.String("service_id", req.ServiceID))
			transport.WriteError(w, http.StatusBadRequest, "service not found", nil)
		case errors.Is(err, ErrSlotUnavailable):
			log.Warn("appointments create: slot taken", slog.String("date", req.Date), slog.String("time", req.Time))
			transport.WriteError(w, http.StatusConflict, "slot not available", nil)
		default:
			log.Error("appointments create: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	h.invalidateAvailability(r.Context(), appointment.Date)
	h.notifyAsync(appointment, "booked", h.service.NotifyBooked)

	log.Info("appointments create: booked",
		slog.String("appointment_id", appointment.ID),
		slog.String("service_id", appointment.Service.ServiceID),
		slog.String("date", appointment.Date),
		slog.String("time", appointment.Time),
	)
	transport.WriteJSON(w, http.StatusCreated, appointment)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("appointments get: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	appointment, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("appointments get: not found", slog.String("appointment_id", id))
			transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
			return
		}
		log.Error("appointments get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("appointments get: ok", slog.String("appointment_id", id))
	transport.WriteJSON(w, http.StatusOK, appointment)
}

func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req LookupRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("appointments lookup: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("appointments lookup: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.service.Lookup(ctx, req.Email, 50)
	if err != nil {
		log.Error("appointments lookup: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("appointments lookup: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"appointments": items})
}

type adminListQuery struct {
	Date   string `validate:"omitempty,date"`
	Status string `validate:"omitempty,oneof=pending confirmed cancelled"`
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	q := adminListQuery{
		Date:   r.URL.Query().Get("date"),
		Status: r.URL.Query().Get("status"),
	}
	if err := h.val.Struct(q); err != nil {
		log.Warn("admin appointments list: invalid query")
		transport.WriteError(w, http.StatusBadRequest, "invalid query", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, err := h.service.List(ctx, ListFilter{Date: q.Date, Status: Status(q.Status)}, 200)
	if err != nil {
		log.Error("admin appointments list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin appointments list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"appointments": items})
}

func (h *Handler) AdminConfirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "confirm", h.service.Confirm, h.service.NotifyConfirmed)
}

func (h *Handler) AdminCancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel", h.service.Cancel, h.service.NotifyCancelled)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string, apply func(context.Context, string) (Appointment, error), notify func(context.Context, Appointment) error) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin appointments " + action + ": missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	appointment, err := apply(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			log.Warn("admin appointments "+action+": not found", slog.String("appointment_id", id))
			transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
		case errors.Is(err, ErrIllegalTransition):
			log.Warn("admin appointments "+action+": illegal transition", slog.String("appointment_id", id))
			transport.WriteError(w, http.StatusConflict, "illegal status transition", nil)
		default:
			log.Error("admin appointments "+action+": database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	h.invalidateAvailability(r.Context(), appointment.Date)
	h.notifyAsync(appointment, action, notify)

	log.Info("admin appointments "+action+": ok",
		slog.String("appointment_id", appointment.ID),
		slog.String("status", string(appointment.Status)),
	)
	transport.WriteJSON(w, http.StatusOK, appointment)
}

func (h *Handler) AdminMarkReminder(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin appointments reminder: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	appointment, err := h.service.MarkReminderSent(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			log.Warn("admin appointments reminder: not found", slog.String("appointment_id", id))
			transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
		case errors.Is(err, ErrIllegalTransition):
			log.Warn("admin appointments reminder: appointment cancelled", slog.String("appointment_id", id))
			transport.WriteError(w, http.StatusConflict, "appointment cancelled", nil)
		default:
			log.Error("admin appointments reminder: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	h.notifyAsync(appointment, "reminder", h.service.NotifyReminder)

	log.Info("admin appointments reminder: ok", slog.String("appointment_id", appointment.ID))
	transport.WriteJSON(w, http.StatusOK, appointment)
}

func (h *Handler) invalidateAvailability(ctx context.Context, date string) {
	if h.cache != nil {
		_ = h.cache.DeletePrefix(ctx, "availability:"+date)
	}
}

func (h *Handler) notifyAsync(appointment Appointment, event string, notify func(context.Context, Appointment) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer cancel()
		if err := notify(ctx, appointment); err != nil {
			h.log.Warn("appointments email: send failed",
				slog.String("appointment_id", appointment.ID),
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
		}
	}()
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
