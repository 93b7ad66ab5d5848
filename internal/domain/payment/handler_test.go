package payment

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/domain/appointment"
)

func jsonCtx(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandlerRecord_Valid(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(newTestService(repo, newFakeApptRepo(), &txRecorder{}))

	c, rec := jsonCtx(http.MethodPost, "/api/v1/payments", `{
		"patient_id": 1,
		"method": "card",
		"items": [
			{"description": "Consultation", "price": "50.00"},
			{"description": "Blood test", "price": "24.50"}
		]
	}`)
	if err := h.Record(c); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var p Payment
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if !p.TotalAmount.Equal(dec("74.50")) {
		t.Errorf("expected total 74.50, got %s", p.TotalAmount)
	}
	if !strings.HasPrefix(p.ReceiptNo, "RCP-") {
		t.Errorf("unexpected receipt: %s", p.ReceiptNo)
	}
}

func TestHandlerRecord_BadPrice(t *testing.T) {
	h := NewHandler(newTestService(newFakeRepo(), newFakeApptRepo(), &txRecorder{}))

	c, _ := jsonCtx(http.MethodPost, "/api/v1/payments", `{
		"patient_id": 1,
		"items": [{"description": "Visit", "price": "abc"}]
	}`)
	err := h.Record(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandlerRecord_MalformedItem(t *testing.T) {
	h := NewHandler(newTestService(newFakeRepo(), newFakeApptRepo(), &txRecorder{}))

	c, _ := jsonCtx(http.MethodPost, "/api/v1/payments", `{
		"patient_id": 1,
		"items": [{"description": "", "price": "10.00"}]
	}`)
	err := h.Record(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed item, got %v", err)
	}
}

// A failing store is a server fault, not a client error, and the driver
// message must not reach the response.
func TestHandlerRecord_StoreFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("pq: connection refused at 10.0.0.5:5432")
	h := NewHandler(newTestService(repo, newFakeApptRepo(), &txRecorder{}))

	c, _ := jsonCtx(http.MethodPost, "/api/v1/payments", `{
		"patient_id": 1,
		"items": [{"description": "Visit", "price": "10.00"}]
	}`)
	err := h.Record(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
	if msg, _ := he.Message.(string); strings.Contains(msg, "connection refused") {
		t.Errorf("store error leaked to client: %q", msg)
	}
}

func TestHandlerDecide_StoreFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.failUpdateStatus = true
	h := NewHandler(newTestService(repo, newFakeApptRepo(), &txRecorder{}))
	p := seedPayment(repo, nil)

	c, _ := jsonCtx(http.MethodPost, "/api/v1/payments/1/decision", `{
		"confirm_action": "approve"
	}`)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(p.ID, 10))

	err := h.Decide(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
}

func TestHandlerDecide_Approve(t *testing.T) {
	repo := newFakeRepo()
	appts := newFakeApptRepo()
	appts.appts[7] = &appointment.Appointment{ID: 7, PaymentStatus: appointment.PaymentUnpaid}
	h := NewHandler(newTestService(repo, appts, &txRecorder{}))
	apptID := int64(7)
	p := seedPayment(repo, &apptID)

	c, rec := jsonCtx(http.MethodPost, "/api/v1/payments/1/decision", `{
		"confirm_action": "approve",
		"appointment_payment_status": "paid"
	}`)
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := h.Decide(c); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if repo.payments[p.ID].Status != StatusCompleted {
		t.Errorf("expected completed, got %s", repo.payments[p.ID].Status)
	}
	if appts.appts[7].PaymentStatus != appointment.PaymentPaid {
		t.Errorf("expected appointment paid, got %s", appts.appts[7].PaymentStatus)
	}
}

func TestHandlerDecide_NotFound(t *testing.T) {
	h := NewHandler(newTestService(newFakeRepo(), newFakeApptRepo(), &txRecorder{}))

	c, _ := jsonCtx(http.MethodPost, "/api/v1/payments/42/decision", `{
		"confirm_action": "approve",
		"appointment_payment_status": "paid"
	}`)
	c.SetParamNames("id")
	c.SetParamValues("42")

	err := h.Decide(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandlerGet_WithItems(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(newTestService(repo, newFakeApptRepo(), &txRecorder{}))
	p := seedPayment(repo, nil)
	repo.InsertItems(nil, p.ID, []*PaymentItem{{Description: "Visit", Price: dec("74.50")}})

	c, rec := jsonCtx(http.MethodGet, "/api/v1/payments/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := h.Get(c); err != nil {
		t.Fatalf("Get: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"receipt_no":"RCP-20260901-AB12CD"`) {
		t.Errorf("expected payment in body, got %s", body)
	}
	if !strings.Contains(body, `"description":"Visit"`) {
		t.Errorf("expected items in body, got %s", body)
	}
}

func TestHandlerUpdateItems_Replaces(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(newTestService(repo, newFakeApptRepo(), &txRecorder{}))
	p := seedPayment(repo, nil)
	repo.InsertItems(nil, p.ID, []*PaymentItem{{Description: "Old", Price: dec("74.50")}})

	c, rec := jsonCtx(http.MethodPut, "/api/v1/payments/1/items", `{
		"items": [{"description": "New item", "price": "15.00"}]
	}`)
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := h.UpdateItems(c); err != nil {
		t.Fatalf("UpdateItems: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(repo.items[p.ID]) != 1 || repo.items[p.ID][0].Description != "New item" {
		t.Errorf("expected replacement set, got %+v", repo.items[p.ID])
	}
}
