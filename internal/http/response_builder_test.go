package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		JSON(map[string]int{"count": 2}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"count":2}` {
		t.Errorf("Body = %q", got)
	}
}

func TestResponseBuilder_JSONMarshalFailure(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().JSON(map[string]any{"bad": make(chan int)}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestJSONError(t *testing.T) {
	w := httptest.NewRecorder()

	JSONError(http.StatusNotFound, "not_found", "resident not found").Write(w)

	if w.Code != http.StatusNotFound {
		t.Errorf("Status code = %d", w.Code)
	}
	body := w.Body.String()
	for _, part := range []string{`"error":"not_found"`, `"message":"resident not found"`} {
		if !strings.Contains(body, part) {
			t.Errorf("body missing %s: %s", part, body)
		}
	}
}

func TestErrorResponseEscapes(t *testing.T) {
	w := httptest.NewRecorder()

	BadRequestError("<b>bad</b>").Write(w)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status code = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "<b>") {
		t.Errorf("message not escaped: %s", w.Body.String())
	}
}

func TestRedirectHome(t *testing.T) {
	w := httptest.NewRecorder()

	RedirectHome().Write(w)

	if w.Code != http.StatusSeeOther {
		t.Errorf("Status code = %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q", loc)
	}
}
