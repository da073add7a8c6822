package booking

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"barberbook-backend/internal/cache"
	"barberbook-backend/internal/schedule"
	"barberbook-backend/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, calendar *fakeCalendar, repo *fakeRepo) *Handler {
	t.Helper()
	svc := NewService(repo, calendar, testCatalog(), nil, time.UTC)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(svc, cache.NewNoop(), validation.New(), log, time.UTC)
}

func testRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/appointments", h.Create)
	r.Get("/api/appointments/{id}", h.Get)
	r.Post("/api/appointments/lookup", h.Lookup)
	r.Patch("/api/admin/appointments/{id}/confirm", h.AdminConfirm)
	r.Patch("/api/admin/appointments/{id}/cancel", h.AdminCancel)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func futureDate() string {
	d := time.Now().UTC().AddDate(0, 0, 7)
	return d.Format(schedule.DateLayout)
}

func createPayload(date, timeStr string) map[string]string {
	return map[string]string{
		"serviceId":     "svc1",
		"name":          "John Doe",
		"email":         "john@example.com",
		"phone":         "+5511999990000",
		"date":          date,
		"time":          timeStr,
		"paymentMethod": "pix",
	}
}

func TestHandlerCreate(t *testing.T) {
	date := futureDate()
	calendar := newFakeCalendar()
	calendar.seed(date, "10:00")
	repo := newFakeRepo()
	router := testRouter(newTestHandler(t, calendar, repo))

	rec := postJSON(t, router, "/api/appointments", createPayload(date, "10:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var got Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "Haircut", got.Service.Name)
}

func TestHandlerCreateConflict(t *testing.T) {
	date := futureDate()
	calendar := newFakeCalendar()
	calendar.seed(date, "10:00")
	router := testRouter(newTestHandler(t, calendar, newFakeRepo()))

	rec := postJSON(t, router, "/api/appointments", createPayload(date, "10:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, router, "/api/appointments", createPayload(date, "10:00"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerCreateValidation(t *testing.T) {
	date := futureDate()
	calendar := newFakeCalendar()
	calendar.seed(date, "10:00")
	router := testRouter(newTestHandler(t, calendar, newFakeRepo()))

	cases := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{name: "missing email", mutate: func(p map[string]string) { delete(p, "email") }},
		{name: "bad email", mutate: func(p map[string]string) { p["email"] = "not-an-email" }},
		{name: "bad time", mutate: func(p map[string]string) { p["time"] = "25:99" }},
		{name: "bad date", mutate: func(p map[string]string) { p["date"] = "10/06/2025" }},
		{name: "bad payment", mutate: func(p map[string]string) { p["paymentMethod"] = "check" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := createPayload(date, "10:00")
			tc.mutate(payload)
			rec := postJSON(t, router, "/api/appointments", payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandlerCreatePastDate(t *testing.T) {
	calendar := newFakeCalendar()
	calendar.seed("2020-01-06", "10:00")
	router := testRouter(newTestHandler(t, calendar, newFakeRepo()))

	rec := postJSON(t, router, "/api/appointments", createPayload("2020-01-06", "10:00"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerCreateUnknownService(t *testing.T) {
	date := futureDate()
	calendar := newFakeCalendar()
	calendar.seed(date, "10:00")
	router := testRouter(newTestHandler(t, calendar, newFakeRepo()))

	payload := createPayload(date, "10:00")
	payload["serviceId"] = "missing"
	rec := postJSON(t, router, "/api/appointments", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerGet(t *testing.T) {
	date := futureDate()
	calendar := newFakeCalendar()
	calendar.seed(date, "10:00")
	repo := newFakeRepo()
	router := testRouter(newTestHandler(t, calendar, repo))

	rec := postJSON(t, router, "/api/appointments", createPayload(date, "10:00"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req := httptest.NewRequest(http.MethodGet, "/api/appointments/"+created.ID, nil)
	got := httptest.NewRecorder()
	router.ServeHTTP(got, req)
	assert.Equal(t, http.StatusOK, got.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/appointments/nope", nil)
	got = httptest.NewRecorder()
	router.ServeHTTP(got, req)
	assert.Equal(t, http.StatusNotFound, got.Code)
}

func TestHandlerConfirmAndCancel(t *testing.T) {
	date := futureDate()
	calendar := newFakeCalendar()
	calendar.seed(date, "10:00")
	repo := newFakeRepo()
	router := testRouter(newTestHandler(t, calendar, repo))

	rec := postJSON(t, router, "/api/appointments", createPayload(date, "10:00"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	patch := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, path, nil)
		got := httptest.NewRecorder()
		router.ServeHTTP(got, req)
		return got
	}

	got := patch("/api/admin/appointments/" + created.ID + "/confirm")
	require.Equal(t, http.StatusOK, got.Code)

	// A second confirm is an illegal transition.
	got = patch("/api/admin/appointments/" + created.ID + "/confirm")
	assert.Equal(t, http.StatusConflict, got.Code)

	got = patch("/api/admin/appointments/" + created.ID + "/cancel")
	require.Equal(t, http.StatusOK, got.Code)
	assert.True(t, calendar.isOpen(date, "10:00"))

	got = patch("/api/admin/appointments/" + created.ID + "/cancel")
	assert.Equal(t, http.StatusConflict, got.Code)

	got = patch("/api/admin/appointments/unknown/cancel")
	assert.Equal(t, http.StatusNotFound, got.Code)
}

func TestHandlerLookup(t *testing.T) {
	date := futureDate()
	calendar := newFakeCalendar()
	calendar.seed(date, "09:00", "10:00")
	repo := newFakeRepo()
	router := testRouter(newTestHandler(t, calendar, repo))

	rec := postJSON(t, router, "/api/appointments", createPayload(date, "10:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, router, "/api/appointments/lookup", map[string]string{"email": "john@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Appointments []Appointment `json:"appointments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Appointments, 1)

	rec = postJSON(t, router, "/api/appointments/lookup", map[string]string{"email": "nobody@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	out.Appointments = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Empty(t, out.Appointments)
}
