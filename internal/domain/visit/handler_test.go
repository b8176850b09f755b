package visit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/minlab/hospital/internal/platform/apperrors"
)

func TestHandler_Record(t *testing.T) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	body := `{"visited_at":"2026-09-01T09:00:00Z","status":"in_progress","visit_type":"처방","category":"내과"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("hospital_id", "patient_id")
	c.SetParamValues("1", "10")

	if err := h.Record(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var got Visit
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.ID == 0 || got.PatientID != 10 || got.Category != "내과" {
		t.Errorf("unexpected body: %+v", got)
	}
}

func TestHandler_Record_UnknownPatient(t *testing.T) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	body := `{"visited_at":"2026-09-01T09:00:00Z","status":"completed","visit_type":"검사","category":"안과"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("hospital_id", "patient_id")
	c.SetParamValues("1", "20")

	if err := h.Record(c); !errors.Is(err, apperrors.NotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestHandler_GetAndDelete(t *testing.T) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	v, _ := svc.Record(context.Background(), 1, 10, validVisit(t0))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("hospital_id", "visit_id")
	c.SetParamValues("1", strconv.FormatInt(v.ID, 10))
	if err := h.Get(c); err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("hospital_id", "visit_id")
	c.SetParamValues("1", strconv.FormatInt(v.ID, 10))
	if err := h.Delete(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_ListByPatient(t *testing.T) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	for i := 0; i < 3; i++ {
		svc.Record(context.Background(), 1, 10, validVisit(t0))
	}

	req := httptest.NewRequest(http.MethodGet, "/?page=2&size=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("hospital_id", "patient_id")
	c.SetParamValues("1", "10")

	if err := h.ListByPatient(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	var resp struct {
		Data []Visit `json:"data"`
		Page struct {
			TotalCount int64 `json:"total_count"`
			Last       bool  `json:"last"`
		} `json:"page"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Data) != 1 || resp.Page.TotalCount != 3 || !resp.Page.Last {
		t.Errorf("unexpected response: %s", rec.Body.String())
	}
}

func TestHandler_BadVisitID(t *testing.T) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("hospital_id", "visit_id")
	c.SetParamValues("1", "x")

	if err := h.Get(c); !errors.Is(err, apperrors.InvalidArgument) {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}
