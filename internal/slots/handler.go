package slots

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"barberbook-backend/internal/cache"
	"barberbook-backend/internal/config"
	"barberbook-backend/internal/httpx"
	"barberbook-backend/internal/middleware"
	"barberbook-backend/internal/schedule"
	"barberbook-backend/internal/transport"
	"barberbook-backend/internal/validation"
)

type Handler struct {
	cfg      *config.Config
	calendar *Calendar
	cache    cache.Cache
	val      *validation.Validator
	log      *slog.Logger
}

func NewHandler(cfg *config.Config, calendar *Calendar, cacheStore cache.Cache, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		calendar: calendar,
		cache:    cacheStore,
		val:      val,
		log:      log,
	}
}

type availabilityQuery struct {
	Date string `validate:"required,date"`
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	q := availabilityQuery{Date: r.URL.Query().Get("date")}
	if err := h.val.Struct(q); err != nil {
		log.Warn("availability: invalid query")
		transport.WriteError(w, http.StatusBadRequest, "invalid query", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	cacheKey := "availability:" + q.Date
	if h.cache != nil {
		if cached, ok, err := h.cache.Get(r.Context(), cacheKey); err == nil && ok {
			log.Info("availability: cache hit", slog.String("date", q.Date))
			transport.WriteCached(w, http.StatusOK, cached)
			return
		}
	}

	past, err := schedule.IsDatePast(q.Date, h.cfg.Timezone, time.Now())
	if err != nil {
		log.Warn("availability: invalid date", slog.String("date", q.Date))
		transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
		return
	}
	if past {
		log.Warn("availability: date in the past", slog.String("date", q.Date))
		transport.WriteError(w, http.StatusBadRequest, "date in the past", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	open, err := h.openSlotsNow(ctx, q.Date, time.Now())
	if err != nil {
		log.Error("availability: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	response := map[string]interface{}{
		"date":     q.Date,
		"timezone": h.cfg.Timezone.String(),
		"slots":    open,
	}

	if payload, err := json.Marshal(response); err == nil && h.cache != nil {
		_ = h.cache.Set(r.Context(), cacheKey, payload, time.Duration(h.cfg.CacheTTLSeconds)*time.Second)
	}

	log.Info("availability: ok", slog.String("date", q.Date), slog.Int("slots", len(open)))
	transport.WriteJSON(w, http.StatusOK, response)
}

func (h *Handler) GetOpenDates(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	from := r.URL.Query().Get("from")
	if from == "" {
		from = time.Now().In(h.cfg.Timezone).Format(schedule.DateLayout)
	}
	if err := h.val.Struct(availabilityQuery{Date: from}); err != nil {
		log.Warn("availability dates: invalid from")
		transport.WriteError(w, http.StatusBadRequest, "invalid from", nil)
		return
	}

	count, err := httpx.ParseCount(r.URL.Query(), "count", 14, 60)
	if err != nil {
		log.Warn("availability dates: invalid count")
		transport.WriteError(w, http.StatusBadRequest, "invalid count", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	days, err := h.calendar.OpenDates(ctx, from, count)
	if err != nil {
		log.Error("availability dates: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	dates := make([]string, 0, len(days))
	for _, day := range days {
		dates = append(dates, day.Date)
	}

	log.Info("availability dates: ok", slog.String("from", from), slog.Int("count", len(dates)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"from":  from,
		"dates": dates,
	})
}

func (h *Handler) GetNextAvailability(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	from := r.URL.Query().Get("from")
	if from == "" {
		from = time.Now().In(h.cfg.Timezone).Format(schedule.DateLayout)
	}
	if err := h.val.Struct(availabilityQuery{Date: from}); err != nil {
		log.Warn("availability next: invalid from")
		transport.WriteError(w, http.StatusBadRequest, "invalid from", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	days, err := h.calendar.OpenDates(ctx, from, h.cfg.BookingWindowDays)
	if err != nil {
		log.Error("availability next: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	now := time.Now()
	for _, day := range days {
		open, err := h.filterToday(day.Date, day.Open, now)
		if err != nil {
			log.Error("availability next: filter error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "availability error", nil)
			return
		}
		if len(open) > 0 {
			log.Info("availability next: ok", slog.String("date", day.Date), slog.String("time", open[0]))
			transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
				"date":     day.Date,
				"time":     open[0],
				"timezone": h.cfg.Timezone.String(),
			})
			return
		}
	}

	log.Info("availability next: none found", slog.String("from", from))
	transport.WriteError(w, http.StatusNotFound, "no availability found", nil)
}

type seedRequest struct {
	Days          int      `json:"days" validate:"omitempty,gte=1,lte=120"`
	Slots         []string `json:"slots" validate:"omitempty,dive,clock"`
	ClosedWeekday *int     `json:"closedWeekday" validate:"omitempty,gte=0,lte=6"`
}

// AdminSeedWindow extends the rolling booking window. The external
// scheduler (cron) is expected to hit this periodically.
func (h *Handler) AdminSeedWindow(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req seedRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("slots seed: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("slots seed: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	days := req.Days
	if days == 0 {
		days = h.cfg.BookingWindowDays
	}
	open := req.Slots
	if len(open) == 0 {
		open = h.cfg.DaySlots
	}
	closedWeekday := h.cfg.ClosedWeekday
	if req.ClosedWeekday != nil {
		closedWeekday = *req.ClosedWeekday
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	created, err := h.calendar.SeedWindow(ctx, time.Now().In(h.cfg.Timezone), days, open, closedWeekday)
	if err != nil {
		log.Error("slots seed: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if h.cache != nil {
		_ = h.cache.DeletePrefix(r.Context(), "availability:")
	}

	log.Info("slots seed: ok", slog.Int("days", days), slog.Int("created", created))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"days":    days,
		"created": created,
	})
}

// openSlotsNow hides labels that already passed when the date is today.
func (h *Handler) openSlotsNow(ctx context.Context, date string, now time.Time) ([]string, error) {
	open, err := h.calendar.OpenSlots(ctx, date)
	if err != nil {
		return nil, err
	}
	return h.filterToday(date, open, now)
}

func (h *Handler) filterToday(date string, open []string, now time.Time) ([]string, error) {
	if !dateIsToday(date, h.cfg.Timezone) {
		return open, nil
	}
	return schedule.FilterPastSlots(date, open, h.cfg.Timezone, now)
}

func dateIsToday(dateStr string, loc *time.Location) bool {
	date, err := schedule.ParseDate(dateStr, loc)
	if err != nil {
		return false
	}
	now := time.Now().In(loc)
	return date.Year() == now.Year() && date.YearDay() == now.YearDay()
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
