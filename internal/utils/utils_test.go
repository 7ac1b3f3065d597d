package utils

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

func TestNormalizers(t *testing.T) {
	if got := NormalizeEmail("  A@B.com "); got != "a@b.com" {
		t.Fatalf("NormalizeEmail: expected a@b.com, got %s", got)
	}
	if got := NormalizeLabel(" Neutral"); got != "neutral" {
		t.Fatalf("NormalizeLabel: expected neutral, got %s", got)
	}
}

func TestStripFences(t *testing.T) {
	input := "```json\n[{\"score\": 7}]\n```\n"
	want := "[{\"score\": 7}]"

	if got := StripFences(input); got != want {
		t.Fatalf("StripFences: expected %q, got %q", want, got)
	}

	raw := "  [1,2]  "
	if got := StripFences(raw); got != "[1,2]" {
		t.Fatalf("StripFences (no fences): expected trimmed string, got %q", got)
	}

	if got := StripFences("```"); got != "" {
		t.Fatalf("StripFences (bare fence): expected empty, got %q", got)
	}
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]string{"ok": "yes"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %s", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["ok"] != "yes" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestJSONUnencodableValue(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, map[string]float64{"score": math.NaN()})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["code"] != "GENERIC_ERROR" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestNewLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interview.log")
	logger, err := NewLogger("debug", path)
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}
	logger.Info("hello")
	_ = logger.Sync()
}

func TestGetLoggerInitialises(t *testing.T) {
	Logger = nil
	if GetLogger() == nil {
		t.Fatal("expected logger to be initialised")
	}
}
