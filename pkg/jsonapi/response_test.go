package jsonapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteDocument(t *testing.T) {
	w := httptest.NewRecorder()
	doc := NewDocument().DataResource(Resource{Type: "courses", ID: "1"}).Build()

	WriteDocument(w, http.StatusOK, doc)

	if w.Header().Get("Content-Type") != ContentType {
		t.Errorf("Content-Type = %v, want %v", w.Header().Get("Content-Type"), ContentType)
	}
	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	var result Document
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Errorf("Invalid JSON: %v", err)
	}
}

func TestWriteCollection(t *testing.T) {
	w := httptest.NewRecorder()
	WriteCollection(w, http.StatusOK, []Resource{{Type: "courses", ID: "1"}, {Type: "courses", ID: "2"}})

	var doc struct {
		Data []Resource `json:"data"`
		Meta Meta       `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(doc.Data) != 2 || doc.Meta["total"] != float64(2) {
		t.Errorf("collection = %+v", doc)
	}
}

func TestWriteError(t *testing.T) {
	t.Run("status from first error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, ErrValidationIssues([]string{"a", "b"})...)

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("Status = %d, want 422", w.Code)
		}
		doc, ok := ParseDocument(w.Body.Bytes())
		if !ok || len(doc.Errors) != 2 {
			t.Errorf("errors = %+v", doc.Errors)
		}
	})

	t.Run("no errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want 500", w.Code)
		}
	})

	t.Run("from go error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteErrorFromGo(w, errors.New("disk on fire"))
		doc, _ := ParseDocument(w.Body.Bytes())
		if len(doc.Errors) != 1 || doc.Errors[0].Detail != "disk on fire" {
			t.Errorf("errors = %+v", doc.Errors)
		}
	})
}

func TestWriteMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	WriteMethodNotAllowed(w, "PATCH", []string{"GET", "PUT"})

	if w.Header().Get("Allow") != "GET, PUT" {
		t.Errorf("Allow = %q", w.Header().Get("Allow"))
	}
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status = %d, want 405", w.Code)
	}
}

func TestWriteNoContentAndMeta(t *testing.T) {
	w := httptest.NewRecorder()
	WriteNoContent(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("no content = %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	WriteMeta(w, http.StatusOK, Meta{"status": "ok"})
	doc, _ := ParseDocument(w.Body.Bytes())
	if doc.Meta["status"] != "ok" {
		t.Errorf("meta = %v", doc.Meta)
	}
}

func TestParseDocument_NotJSON(t *testing.T) {
	if _, ok := ParseDocument([]byte("<html>bad gateway</html>")); ok {
		t.Error("ParseDocument accepted HTML")
	}
}
