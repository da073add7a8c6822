package loyalty

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"barberbook-backend/internal/httpx"
	"barberbook-backend/internal/middleware"
	"barberbook-backend/internal/transport"
	"barberbook-backend/internal/validation"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		service: service,
		val:     val,
		log:     log,
	}
}

func (h *Handler) AddStar(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req AddStarRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("loyalty star: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("loyalty star: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	card, err := h.service.AddStar(ctx, req.Contact, req.Name)
	if err != nil {
		log.Error("loyalty star: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("loyalty star: ok", slog.String("contact", card.Contact), slog.Int("stars", card.Stars))
	transport.WriteJSON(w, http.StatusOK, card)
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req RedeemRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("loyalty redeem: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("loyalty redeem: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	card, err := h.service.Redeem(ctx, req.Contact)
	if err != nil {
		switch {
		case errors.Is(err, ErrCardNotFound):
			log.Warn("loyalty redeem: not found", slog.String("contact", req.Contact))
			transport.WriteError(w, http.StatusNotFound, "loyalty card not found", nil)
		case errors.Is(err, ErrInsufficientStars):
			log.Warn("loyalty redeem: insufficient stars", slog.String("contact", req.Contact))
			transport.WriteError(w, http.StatusConflict, "not enough stars", nil)
		default:
			log.Error("loyalty redeem: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("loyalty redeem: ok", slog.String("contact", card.Contact), slog.Int("stars", card.Stars))
	transport.WriteJSON(w, http.StatusOK, card)
}

func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req CreateCardRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("loyalty card create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("loyalty card create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	card, err := h.service.CreateCard(ctx, req.Contact, req.Name, req.Goal)
	if err != nil {
		if errors.Is(err, ErrCardExists) {
			log.Warn("loyalty card create: exists", slog.String("contact", req.Contact))
			transport.WriteError(w, http.StatusConflict, "loyalty card already exists", nil)
			return
		}
		log.Error("loyalty card create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("loyalty card create: ok", slog.String("contact", card.Contact))
	transport.WriteJSON(w, http.StatusCreated, card)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	contact := strings.TrimSpace(chi.URLParam(r, "contact"))
	if contact == "" {
		log.Warn("loyalty get: missing contact")
		transport.WriteError(w, http.StatusBadRequest, "missing contact", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	card, err := h.service.Get(ctx, contact)
	if err != nil {
		if errors.Is(err, ErrCardNotFound) {
			log.Warn("loyalty get: not found", slog.String("contact", contact))
			transport.WriteError(w, http.StatusNotFound, "loyalty card not found", nil)
			return
		}
		log.Error("loyalty get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("loyalty get: ok", slog.String("contact", contact))
	transport.WriteJSON(w, http.StatusOK, card)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 50, 200)
	if err != nil {
		log.Warn("loyalty list: invalid query", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, total, err := h.service.List(ctx, limit, offset)
	if err != nil {
		log.Error("loyalty list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("loyalty list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cards":  items,
		"limit":  limit,
		"offset": offset,
		"total":  total,
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
