package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/artpar/coursesync/domain/course"
	"github.com/artpar/coursesync/pkg/jsonapi"
	"github.com/artpar/coursesync/ports"
)

// Resource types on the wire.
const (
	TypeCourses     = "courses"
	TypeAssignments = "assignments"
)

// CourseGateway delegates course writes to a remote course authority.
//
// API Contract (JSON:API, application/vnd.api+json):
//
//	GET    /courses                  -> 200 collection of "courses"
//	PUT    /courses/{id}             -> 200 "courses" resource
//	POST   /courses/{id}/publish     -> 200 "courses" resource
//	POST   /courses/{id}/assignments -> 204, body {"data":{"type":"assignments","attributes":{"orgId":"..."}}}
//	DELETE /courses/{id}             -> 204
//
// Writes carry an Idempotency-Key header. A 422 carries one error object
// per validation issue (code validation_failed); a 409 with code slug_taken
// may carry meta.suggestion.
type CourseGateway struct {
	client *Client
}

// NewCourseGateway creates a remote course gateway.
func NewCourseGateway(client *Client) *CourseGateway {
	return &CourseGateway{client: client}
}

// AssignmentAttributes is the body of an assignment resource.
type AssignmentAttributes struct {
	OrgID string `json:"orgId"`
}

// List returns every course the authority knows.
func (g *CourseGateway) List(ctx context.Context) ([]course.Document, error) {
	var doc struct {
		Data []jsonapi.RawResource `json:"data"`
	}
	if err := g.client.Request(ctx, http.MethodGet, "/courses", nil, &doc); err != nil {
		return nil, fmt.Errorf("list courses: %w", translate(err))
	}

	docs := make([]course.Document, 0, len(doc.Data))
	for _, r := range doc.Data {
		var d course.Document
		if err := jsonapi.DecodeAttributes(r, &d); err != nil {
			return nil, fmt.Errorf("list courses: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Save creates or updates a course.
func (g *CourseGateway) Save(ctx context.Context, req ports.SaveRequest) (course.Document, error) {
	id := req.Document.ID
	res, err := jsonapi.ResourceFrom(TypeCourses, id, req.Document)
	if err != nil {
		return course.Document{}, err
	}

	out, err := g.write(ctx, http.MethodPut, coursePath(id), jsonapi.NewSingleResourceDocument(res), req.IdempotencyKey)
	if err != nil {
		return course.Document{}, fmt.Errorf("save course %s: %w", id, err)
	}
	return out, nil
}

// Publish marks a course published.
func (g *CourseGateway) Publish(ctx context.Context, req ports.PublishRequest) (course.Document, error) {
	out, err := g.write(ctx, http.MethodPost, coursePath(req.CourseID)+"/publish", nil, req.IdempotencyKey)
	if err != nil {
		return course.Document{}, fmt.Errorf("publish course %s: %w", req.CourseID, err)
	}
	return out, nil
}

// Assign grants an organisation access to a course.
func (g *CourseGateway) Assign(ctx context.Context, req ports.AssignRequest) error {
	res, err := jsonapi.ResourceFrom(TypeAssignments, "", AssignmentAttributes{OrgID: req.OrgID})
	if err != nil {
		return err
	}
	err = g.client.Request(ctx, http.MethodPost, coursePath(req.CourseID)+"/assignments",
		jsonapi.NewSingleResourceDocument(res), nil, WithIdempotencyKey(req.IdempotencyKey))
	if err != nil {
		return fmt.Errorf("assign course %s: %w", req.CourseID, translate(err))
	}
	return nil
}

// Delete removes a course. A 404 is not an error.
func (g *CourseGateway) Delete(ctx context.Context, id string) error {
	err := g.client.Request(ctx, http.MethodDelete, coursePath(id), nil, nil)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("delete course %s: %w", id, translate(err))
	}
	return nil
}

func (g *CourseGateway) write(ctx context.Context, method, path string, body any, key string) (course.Document, error) {
	var doc struct {
		Data *jsonapi.RawResource `json:"data"`
	}
	if err := g.client.Request(ctx, method, path, body, &doc, WithIdempotencyKey(key)); err != nil {
		return course.Document{}, translate(err)
	}
	if doc.Data == nil {
		return course.Document{}, errors.New("response has no data")
	}
	var out course.Document
	if err := jsonapi.DecodeAttributes(*doc.Data, &out); err != nil {
		return course.Document{}, err
	}
	return out, nil
}

func coursePath(id string) string {
	return "/courses/" + url.PathEscape(id)
}

// translate maps structured authority errors onto the domain error types.
// Anything else is returned unchanged.
func translate(err error) error {
	var re *RemoteError
	if !errors.As(err, &re) || len(re.Errors) == 0 {
		return err
	}

	var issues []string
	for _, e := range re.Errors {
		switch e.Code {
		case jsonapi.CodeSlugTaken:
			return &course.ConflictError{
				Code:       course.CodeSlugTaken,
				Field:      "slug",
				Value:      e.MetaString("slug"),
				Suggestion: e.MetaString("suggestion"),
				Message:    e.Detail,
			}
		case jsonapi.CodeValidationFailed:
			issues = append(issues, e.Detail)
		}
	}
	if len(issues) > 0 {
		return &course.ValidationError{Issues: issues}
	}
	if re.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", course.ErrNotFound, re.Errors[0].Detail)
	}
	return err
}

var _ ports.CourseGateway = (*CourseGateway)(nil)
