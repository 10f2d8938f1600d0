package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/artpar/coursesync/domain/course"
	"github.com/artpar/coursesync/pkg/jsonapi"
	"github.com/artpar/coursesync/ports"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	typeCourses     = "courses"
	typeAssignments = "assignments"

	// IdempotencyHeader carries the client-chosen key for a write.
	IdempotencyHeader = "Idempotency-Key"

	maxBodyBytes = 10 << 20
)

// CourseHandler serves the course resource over any CourseGateway.
type CourseHandler struct {
	gateway ports.CourseGateway
	logger  zerolog.Logger
}

// NewCourseHandler creates a course handler.
func NewCourseHandler(gateway ports.CourseGateway, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{gateway: gateway, logger: logger}
}

// Routes returns the course routes, relative to their mount point.
func (h *CourseHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Put("/{id}", h.save)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/publish", h.publish)
	r.Post("/{id}/assignments", h.assign)

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		jsonapi.WriteMethodNotAllowed(w, req.Method, allowedMethods(req))
	})
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		jsonapi.WriteError(w, jsonapi.NewError(404, "not_found", "Not Found").
			Detailf("No route for %s", req.URL.Path).Build())
	})

	return r
}

func (h *CourseHandler) list(w http.ResponseWriter, r *http.Request) {
	docs, err := h.gateway.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resources := make([]jsonapi.Resource, 0, len(docs))
	for _, d := range docs {
		res, err := jsonapi.ResourceFrom(typeCourses, d.ID, d)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		resources = append(resources, res)
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources)
}

func (h *CourseHandler) save(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	raw, ok := readResource(w, r, typeCourses)
	if !ok {
		return
	}
	if raw.ID != "" && raw.ID != id {
		jsonapi.WriteError(w, jsonapi.NewError(409, "id_mismatch", "Conflict").
			Detailf("Resource id %q does not match URL id %q", raw.ID, id).
			Pointer("/data/id").Build())
		return
	}
	raw.ID = id

	var doc course.Document
	if err := jsonapi.DecodeAttributes(raw, &doc); err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.gateway.Save(r.Context(), ports.SaveRequest{
		Document:       doc,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCourse(w, r, out)
}

func (h *CourseHandler) publish(w http.ResponseWriter, r *http.Request) {
	out, err := h.gateway.Publish(r.Context(), ports.PublishRequest{
		CourseID:       chi.URLParam(r, "id"),
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCourse(w, r, out)
}

func (h *CourseHandler) assign(w http.ResponseWriter, r *http.Request) {
	raw, ok := readResource(w, r, typeAssignments)
	if !ok {
		return
	}
	var attrs struct {
		OrgID string `json:"orgId"`
	}
	if err := json.Unmarshal(raw.Attributes, &attrs); err != nil || attrs.OrgID == "" {
		jsonapi.WriteError(w, jsonapi.NewError(400, "bad_request", "Bad Request").
			Detail("orgId is required").
			Pointer("/data/attributes/orgId").Build())
		return
	}

	err := h.gateway.Assign(r.Context(), ports.AssignRequest{
		CourseID:       chi.URLParam(r, "id"),
		OrgID:          attrs.OrgID,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonapi.WriteNoContent(w)
}

func (h *CourseHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonapi.WriteNoContent(w)
}

func (h *CourseHandler) writeCourse(w http.ResponseWriter, r *http.Request, d course.Document) {
	res, err := jsonapi.ResourceFrom(typeCourses, d.ID, d)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, res)
}

// writeError maps domain failures onto JSON:API error documents.
func (h *CourseHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *course.ValidationError
	var ce *course.ConflictError

	switch {
	case errors.As(err, &ve):
		jsonapi.WriteError(w, jsonapi.ErrValidationIssues(ve.Issues)...)
	case errors.As(err, &ce) && ce.Code == course.CodeSlugTaken:
		jsonapi.WriteError(w, jsonapi.ErrSlugTaken(ce.Value, ce.Suggestion, ce.Message))
	case errors.As(err, &ce):
		jsonapi.WriteError(w, jsonapi.NewError(409, ce.Code, "Conflict").Detail(ce.Error()).Build())
	case errors.Is(err, course.ErrNotFound):
		jsonapi.WriteError(w, jsonapi.ErrNotFoundWithID(typeCourses, chi.URLParam(r, "id")))
	default:
		h.logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("course_id", chi.URLParam(r, "id")).
			Msg("course request failed")
		jsonapi.WriteError(w, jsonapi.ErrInternal(""))
	}
}

// readResource reads a single-resource document of the given type.
func readResource(w http.ResponseWriter, r *http.Request, resourceType string) (jsonapi.RawResource, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		jsonapi.WriteBadRequest(w, "Failed to read request body")
		return jsonapi.RawResource{}, false
	}

	doc, ok := jsonapi.ParseDocument(body)
	if !ok || len(doc.Data) == 0 {
		jsonapi.WriteBadRequest(w, "Request body must be a JSON:API document with data")
		return jsonapi.RawResource{}, false
	}

	var raw jsonapi.RawResource
	if err := json.Unmarshal(doc.Data, &raw); err != nil {
		jsonapi.WriteBadRequest(w, "data must be a single resource object")
		return jsonapi.RawResource{}, false
	}
	if raw.Type != resourceType {
		jsonapi.WriteError(w, jsonapi.NewError(409, "type_mismatch", "Conflict").
			Detailf("Expected resource type %q, got %q", resourceType, raw.Type).
			Pointer("/data/type").Build())
		return jsonapi.RawResource{}, false
	}
	return raw, true
}

func allowedMethods(r *http.Request) []string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch len(parts) {
	case 1:
		return []string{http.MethodGet}
	case 2:
		return []string{http.MethodPut, http.MethodDelete}
	default:
		return []string{http.MethodPost}
	}
}
