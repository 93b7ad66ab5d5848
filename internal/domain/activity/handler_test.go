package activity

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func feedRequest(t *testing.T, h *Handler, query string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/activity"+query, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Feed(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestFeedHandler(t *testing.T) {
	repo := &fakeRepo{events: []*Event{
		{Type: TypeAppointmentCreated, RefID: 7, Description: "Appointment #7 scheduled", CreatedAt: feedNow.Add(-time.Hour)},
		{Type: TypeDoctorRegistered, RefID: 3, Description: "Doctor Lee registered", CreatedAt: feedNow.Add(-2 * time.Hour)},
	}}
	h := NewHandler(newTestService(repo))

	rec := feedRequest(t, h, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"total":2`) {
		t.Errorf("expected total 2, got %s", body)
	}
	if !strings.Contains(body, "1 hour ago") {
		t.Errorf("expected relative age in response, got %s", body)
	}
}

func TestFeedHandler_TypeFilter(t *testing.T) {
	repo := &fakeRepo{events: []*Event{
		{Type: TypeAppointmentCreated, RefID: 7, CreatedAt: feedNow},
		{Type: TypePatientRegistered, RefID: 4, CreatedAt: feedNow},
	}}
	h := NewHandler(newTestService(repo))

	rec := feedRequest(t, h, "?type=patient_registered")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"total":1`) || !strings.Contains(body, "patient_registered") {
		t.Errorf("expected only patient events, got %s", body)
	}
}

func TestFeedHandler_UnknownType(t *testing.T) {
	h := NewHandler(newTestService(&fakeRepo{}))
	rec := feedRequest(t, h, "?type=login")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown type, got %d", rec.Code)
	}
}

func TestFeedHandler_StoreFailure(t *testing.T) {
	h := NewHandler(newTestService(&fakeRepo{feedErr: errors.New("pq: connection refused at 10.0.0.5:5432")}))
	rec := feedRequest(t, h, "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 for store failure, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Errorf("store error leaked to client: %s", rec.Body.String())
	}
}

func TestFeedHandler_BadSince(t *testing.T) {
	h := NewHandler(newTestService(&fakeRepo{}))
	rec := feedRequest(t, h, "?since=yesterday")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed since, got %d", rec.Code)
	}
}

func TestFeedHandler_SinceFilter(t *testing.T) {
	repo := &fakeRepo{events: []*Event{
		{Type: TypeAppointmentCreated, RefID: 1, CreatedAt: feedNow.Add(-time.Hour)},
		{Type: TypeAppointmentCreated, RefID: 2, CreatedAt: feedNow.Add(-72 * time.Hour)},
	}}
	h := NewHandler(newTestService(repo))

	since := feedNow.Add(-24 * time.Hour).Format(time.RFC3339)
	rec := feedRequest(t, h, "?since="+since)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("expected 1 recent event, got %s", rec.Body.String())
	}
}
