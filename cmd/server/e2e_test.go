package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/linkmap/linkmap/internal/model"
	"github.com/linkmap/linkmap/internal/registry"
	"github.com/linkmap/linkmap/internal/store"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	reg := registry.New(context.Background(), store.NewMemory(), nil, nil, nil)
	return newApp(reg, "http://sho.rt")
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	fields := map[string]json.RawMessage{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &fields)
	}
	return resp, fields
}

func TestShortenAndRedirect(t *testing.T) {
	app := newTestApp(t)

	resp, fields := doJSON(t, app, http.MethodPost, "/api/mappings", createRequest{
		URL: "https://example.com/landing", CustomCode: "promo1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var shortURL string
	if err := json.Unmarshal(fields["short_url"], &shortURL); err != nil || shortURL != "http://sho.rt/promo1" {
		t.Errorf("short_url = %q err=%v", shortURL, err)
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/promo1?source=newsletter", nil)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("redirect status = %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://example.com/landing" {
		t.Errorf("Location = %q", loc)
	}

	// Stats reflect the recorded click.
	req := httptest.NewRequest(http.MethodGet, "/api/mappings/promo1/stats", nil)
	statsResp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	defer statsResp.Body.Close()
	if statsResp.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %d", statsResp.StatusCode)
	}
	var m model.Mapping
	if err := json.NewDecoder(statsResp.Body).Decode(&m); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if m.TotalClicks != 1 || len(m.Clicks) != 1 {
		t.Errorf("TotalClicks = %d, clicks = %d", m.TotalClicks, len(m.Clicks))
	}
	if m.Clicks[0].Source != "newsletter" || m.Clicks[0].Location != "Unknown" {
		t.Errorf("click = %+v", m.Clicks[0])
	}
}

func TestCreateValidationErrors(t *testing.T) {
	app := newTestApp(t)

	resp, fields := doJSON(t, app, http.MethodPost, "/api/mappings", createRequest{URL: "not-a-url"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid url status = %d", resp.StatusCode)
	}
	var field string
	_ = json.Unmarshal(fields["field"], &field)
	if field != "url" {
		t.Errorf("failing field = %q, want url", field)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/api/mappings", createRequest{
		URL: "https://example.com", CustomCode: "bad code!",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid code status = %d", resp.StatusCode)
	}

	doJSON(t, app, http.MethodPost, "/api/mappings", createRequest{URL: "https://example.com", CustomCode: "taken1"})
	resp, _ = doJSON(t, app, http.MethodPost, "/api/mappings", createRequest{URL: "https://example.com", CustomCode: "taken1"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate code status = %d, want 409", resp.StatusCode)
	}
}

func TestUnknownCodeIs404(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/nosuch", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("redirect status = %d, want 404", resp.StatusCode)
	}
}

func TestListDeleteClear(t *testing.T) {
	app := newTestApp(t)

	_, created := doJSON(t, app, http.MethodPost, "/api/mappings", createRequest{
		URL: "https://example.com", CustomCode: "keepme",
	})
	var m model.Mapping
	if err := json.Unmarshal(created["mapping"], &m); err != nil {
		t.Fatalf("decode created mapping: %v", err)
	}
	doJSON(t, app, http.MethodPost, "/api/mappings", createRequest{URL: "https://example.org"})

	resp, fields := doJSON(t, app, http.MethodGet, "/api/mappings", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var listed []model.Mapping
	if err := json.Unmarshal(fields["mappings"], &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("listed %d mappings, want 2", len(listed))
	}

	resp, fields = doJSON(t, app, http.MethodDelete, "/api/mappings/"+m.ID, nil)
	var deleted bool
	_ = json.Unmarshal(fields["deleted"], &deleted)
	if resp.StatusCode != http.StatusOK || !deleted {
		t.Errorf("delete status = %d deleted = %v", resp.StatusCode, deleted)
	}

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/mappings", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("clear status = %d", resp.StatusCode)
	}

	_, fields = doJSON(t, app, http.MethodGet, "/api/mappings", nil)
	listed = nil
	_ = json.Unmarshal(fields["mappings"], &listed)
	if len(listed) != 0 {
		t.Errorf("listed %d mappings after clear, want 0", len(listed))
	}
}
