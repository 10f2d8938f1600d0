package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/artpar/coursesync/domain/course"
	"github.com/artpar/coursesync/pkg/jsonapi"
	"github.com/artpar/coursesync/ports"
)

// =============================================================================
// Client Tests (remote.go)
// =============================================================================

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ClientConfig
		wantBase string
		wantKey  string
	}{
		{
			name: "with all fields",
			cfg: ClientConfig{
				BaseURL: "https://courses.example.com",
				APIKey:  "test-key",
				Timeout: 30 * time.Second,
				Headers: map[string]string{"X-Custom": "value"},
			},
			wantBase: "https://courses.example.com",
			wantKey:  "test-key",
		},
		{
			name:     "with default timeout",
			cfg:      ClientConfig{BaseURL: "https://courses.example.com", APIKey: "test-key"},
			wantBase: "https://courses.example.com",
			wantKey:  "test-key",
		},
		{
			name: "empty config",
			cfg:  ClientConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.cfg)
			if client.baseURL != tt.wantBase {
				t.Errorf("baseURL = %q, want %q", client.baseURL, tt.wantBase)
			}
			if client.apiKey != tt.wantKey {
				t.Errorf("apiKey = %q, want %q", client.apiKey, tt.wantKey)
			}
			if client.httpClient == nil || client.httpClient.Timeout == 0 {
				t.Error("httpClient must have a timeout")
			}
		})
	}
}

func TestClientRequest_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/test" {
			t.Errorf("Path = %q, want /test", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != jsonapi.ContentType {
			t.Errorf("Content-Type = %q, want %q", r.Header.Get("Content-Type"), jsonapi.ContentType)
		}
		if r.Header.Get("Authorization") != "Bearer test-api-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Custom") != "custom-value" {
			t.Errorf("X-Custom = %q", r.Header.Get("X-Custom"))
		}
		if r.Header.Get(IdempotencyHeader) != "k-1" {
			t.Errorf("Idempotency-Key = %q, want k-1", r.Header.Get(IdempotencyHeader))
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "hello"})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		APIKey:  "test-api-key",
		Headers: map[string]string{"X-Custom": "custom-value"},
	})

	var result map[string]string
	err := client.Request(context.Background(), http.MethodPost, "/test", map[string]string{"key": "value"}, &result, WithIdempotencyKey("k-1"))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if result["message"] != "hello" {
		t.Errorf("result[message] = %q, want hello", result["message"])
	}
}

func TestClientRequest_NoOptionalHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("Authorization header should be empty when no API key is set")
		}
		if _, ok := r.Header[IdempotencyHeader]; ok {
			t.Error("empty idempotency key should not be sent")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	var result map[string]string
	if err := client.Request(context.Background(), http.MethodGet, "/test", nil, &result, WithIdempotencyKey("")); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if result != nil {
		t.Errorf("result = %v, want untouched", result)
	}
}

func TestClientRequest_ErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErrors int
	}{
		{"bad request", http.StatusBadRequest, "invalid input", 0},
		{"not found", http.StatusNotFound, "resource not found", 0},
		{"internal error", http.StatusInternalServerError, "server error", 0},
		{"json api errors", http.StatusUnprocessableEntity, `{"errors":[{"status":"422","code":"validation_failed","title":"x","detail":"a"}]}`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(ClientConfig{BaseURL: server.URL})

			err := client.Request(context.Background(), http.MethodGet, "/test", nil, nil)
			remoteErr, ok := err.(*RemoteError)
			if !ok {
				t.Fatalf("Expected *RemoteError, got %T", err)
			}
			if remoteErr.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", remoteErr.StatusCode, tt.statusCode)
			}
			if remoteErr.Message != tt.body {
				t.Errorf("Message = %q, want %q", remoteErr.Message, tt.body)
			}
			if len(remoteErr.Errors) != tt.wantErrors {
				t.Errorf("len(Errors) = %d, want %d", len(remoteErr.Errors), tt.wantErrors)
			}
		})
	}
}

func TestClientRequest_InvalidBody(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://localhost"})

	if err := client.Request(context.Background(), http.MethodPost, "/test", make(chan int), nil); err == nil {
		t.Fatal("Expected error for unmarshalable body")
	}
}

func TestClientRequest_InvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not valid json"))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	var result map[string]string
	if err := client.Request(context.Background(), http.MethodGet, "/test", nil, &result); err == nil {
		t.Fatal("Expected error for invalid JSON response")
	}
}

func TestClientRequest_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Timeout: 10 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.Request(ctx, http.MethodGet, "/test", nil, nil); err == nil {
		t.Fatal("Expected error for cancelled context")
	}
}

func TestRemoteError_Error(t *testing.T) {
	err := &RemoteError{StatusCode: 404, Message: "not found"}
	if err.Error() != "remote error 404: not found" {
		t.Errorf("Error() = %q", err.Error())
	}

	withDetail := &RemoteError{StatusCode: 409, Message: "{...}", Errors: []jsonapi.Error{{Detail: "taken"}}}
	if withDetail.Error() != "remote error 409: taken" {
		t.Errorf("Error() = %q", withDetail.Error())
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"404 error", &RemoteError{StatusCode: 404}, true},
		{"wrapped 404", fmt.Errorf("get: %w", &RemoteError{StatusCode: 404}), true},
		{"400 error", &RemoteError{StatusCode: 400}, false},
		{"non-remote error", context.DeadlineExceeded, false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// CourseGateway Tests (course.go)
// =============================================================================

func writeCourse(t *testing.T, w http.ResponseWriter, d course.Document) {
	t.Helper()
	res, err := jsonapi.ResourceFrom(TypeCourses, d.ID, d)
	if err != nil {
		t.Fatalf("ResourceFrom: %v", err)
	}
	jsonapi.WriteResource(w, http.StatusOK, res)
}

func sampleDoc() course.Document {
	return course.Normalize(course.Document{Course: course.Course{
		ID:          "c1",
		Title:       "Onboarding",
		Description: "A course long enough to pass.",
		Chapters: []course.Chapter{{
			ID:      "ch1",
			Title:   "Start",
			Lessons: []course.Lesson{{ID: "l1", Title: "Hello", EstimatedDuration: 5}},
		}},
	}})
}

func TestCourseGateway_Save(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/courses/c1" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get(IdempotencyHeader) != "save-1" {
			t.Errorf("Idempotency-Key = %q", r.Header.Get(IdempotencyHeader))
		}
		body, _ := io.ReadAll(r.Body)
		doc, _ := jsonapi.ParseDocument(body)
		var raw jsonapi.RawResource
		json.Unmarshal(doc.Data, &raw)
		if raw.Type != TypeCourses || raw.ID != "c1" {
			t.Errorf("resource = %s/%s", raw.Type, raw.ID)
		}
		var got course.Document
		if err := jsonapi.DecodeAttributes(raw, &got); err != nil {
			t.Fatalf("DecodeAttributes: %v", err)
		}
		got.Slug = "onboarding-server"
		writeCourse(t, w, got)
	}))
	defer server.Close()

	gw := NewCourseGateway(NewClient(ClientConfig{BaseURL: server.URL}))
	out, err := gw.Save(context.Background(), ports.SaveRequest{Document: sampleDoc(), IdempotencyKey: "save-1"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if out.ID != "c1" || out.Slug != "onboarding-server" {
		t.Errorf("Save() = %s/%s", out.ID, out.Slug)
	}
	if len(out.Chapters) != 1 || len(out.Modules) != 1 {
		t.Errorf("Save() lost the tree: %d chapters, %d modules", len(out.Chapters), len(out.Modules))
	}
}

func TestCourseGateway_ErrorTranslation(t *testing.T) {
	tests := []struct {
		name   string
		status int
		errs   []jsonapi.Error
		check  func(t *testing.T, err error)
	}{
		{
			name:   "validation",
			status: 422,
			errs:   jsonapi.ErrValidationIssues([]string{"Add a course title before saving.", "Add at least one chapter before saving."}),
			check: func(t *testing.T, err error) {
				issues, ok := course.Issues(err)
				if !ok || len(issues) != 2 || issues[0] != "Add a course title before saving." {
					t.Errorf("Issues() = %v, %v", issues, ok)
				}
			},
		},
		{
			name:   "slug taken",
			status: 409,
			errs:   []jsonapi.Error{jsonapi.ErrSlugTaken("onboarding", "onboarding-2", "")},
			check: func(t *testing.T, err error) {
				var ce *course.ConflictError
				if !errors.As(err, &ce) {
					t.Fatalf("err = %T, want *course.ConflictError", err)
				}
				if ce.Code != course.CodeSlugTaken || ce.Value != "onboarding" || ce.Suggestion != "onboarding-2" {
					t.Errorf("conflict = %+v", ce)
				}
			},
		},
		{
			name:   "server failure stays transport",
			status: 503,
			errs:   []jsonapi.Error{jsonapi.ErrServiceUnavailable("")},
			check: func(t *testing.T, err error) {
				var re *RemoteError
				if !errors.As(err, &re) || re.StatusCode != 503 {
					t.Errorf("err = %v, want *RemoteError 503", err)
				}
				if _, ok := course.Issues(err); ok || course.IsSlugTaken(err) {
					t.Error("transport failure classified as domain error")
				}
			},
		},
		{
			name:   "not found",
			status: 404,
			errs:   []jsonapi.Error{jsonapi.ErrNotFoundWithID("courses", "c1")},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, course.ErrNotFound) {
					t.Errorf("err = %v, want ErrNotFound", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				jsonapi.WriteError(w, tt.errs...)
			}))
			defer server.Close()

			gw := NewCourseGateway(NewClient(ClientConfig{BaseURL: server.URL}))
			_, err := gw.Save(context.Background(), ports.SaveRequest{Document: sampleDoc()})
			if err == nil {
				t.Fatal("Save() succeeded, want error")
			}
			tt.check(t, err)
		})
	}
}

func TestCourseGateway_List(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := sampleDoc()
		res, _ := jsonapi.ResourceFrom(TypeCourses, d.ID, d)
		jsonapi.WriteCollection(w, http.StatusOK, []jsonapi.Resource{res})
	}))
	defer server.Close()

	gw := NewCourseGateway(NewClient(ClientConfig{BaseURL: server.URL}))
	docs, err := gw.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "c1" || docs[0].Title != "Onboarding" {
		t.Errorf("List() = %+v", docs)
	}
}

func TestCourseGateway_PublishAssignDelete(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path+" "+r.Header.Get(IdempotencyHeader))
		switch {
		case r.URL.Path == "/courses/c1/publish":
			d := sampleDoc()
			d.Status = course.StatusPublished
			writeCourse(t, w, d)
		case r.URL.Path == "/courses/c1/assignments":
			body, _ := io.ReadAll(r.Body)
			doc, _ := jsonapi.ParseDocument(body)
			var raw jsonapi.RawResource
			json.Unmarshal(doc.Data, &raw)
			var attrs AssignmentAttributes
			jsonapi.DecodeAttributes(raw, &attrs)
			if raw.Type != TypeAssignments || attrs.OrgID != "org-9" {
				t.Errorf("assignment = %s %+v", raw.Type, attrs)
			}
			jsonapi.WriteNoContent(w)
		case r.URL.Path == "/courses/gone":
			jsonapi.WriteError(w, jsonapi.ErrNotFoundWithID("courses", "gone"))
		default:
			jsonapi.WriteNoContent(w)
		}
	}))
	defer server.Close()

	gw := NewCourseGateway(NewClient(ClientConfig{BaseURL: server.URL}))
	ctx := context.Background()

	out, err := gw.Publish(ctx, ports.PublishRequest{CourseID: "c1", IdempotencyKey: "p-1"})
	if err != nil || out.Status != course.StatusPublished {
		t.Fatalf("Publish() = %v, %v", out.Status, err)
	}
	if err := gw.Assign(ctx, ports.AssignRequest{CourseID: "c1", OrgID: "org-9", IdempotencyKey: "a-1"}); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if err := gw.Delete(ctx, "c1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := gw.Delete(ctx, "gone"); err != nil {
		t.Errorf("Delete of unknown course = %v, want nil", err)
	}

	want := []string{
		"POST /courses/c1/publish p-1",
		"POST /courses/c1/assignments a-1",
		"DELETE /courses/c1 ",
		"DELETE /courses/gone ",
	}
	if len(seen) != len(want) {
		t.Fatalf("requests = %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("request %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestCourseGateway_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonapi.WriteMeta(w, http.StatusOK, jsonapi.Meta{"ok": true})
	}))
	defer server.Close()

	gw := NewCourseGateway(NewClient(ClientConfig{BaseURL: server.URL}))
	if _, err := gw.Publish(context.Background(), ports.PublishRequest{CourseID: "c1"}); err == nil {
		t.Error("Publish() with no data succeeded")
	}
}
