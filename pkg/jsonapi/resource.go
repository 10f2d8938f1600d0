package jsonapi

import (
	"encoding/json"
	"fmt"
)

// ResourceBuilder provides a fluent API for building Resource objects.
type ResourceBuilder struct {
	resource Resource
}

// NewResource creates a new ResourceBuilder with the given type and ID.
func NewResource(resourceType, id string) *ResourceBuilder {
	return &ResourceBuilder{
		resource: Resource{
			Type:       resourceType,
			ID:         id,
			Attributes: make(map[string]any),
		},
	}
}

// Attr adds an attribute to the resource.
func (b *ResourceBuilder) Attr(key string, value any) *ResourceBuilder {
	b.resource.Attributes[key] = value
	return b
}

// Attrs adds multiple attributes to the resource. The id and type keys
// are top-level fields and are skipped.
func (b *ResourceBuilder) Attrs(attrs map[string]any) *ResourceBuilder {
	for k, v := range attrs {
		if k == "id" || k == "type" {
			continue
		}
		b.resource.Attributes[k] = v
	}
	return b
}

// Meta adds metadata to the resource.
func (b *ResourceBuilder) Meta(key string, value any) *ResourceBuilder {
	if b.resource.Meta == nil {
		b.resource.Meta = make(Meta)
	}
	b.resource.Meta[key] = value
	return b
}

// Link sets the self link for the resource.
func (b *ResourceBuilder) Link(self string) *ResourceBuilder {
	b.resource.Links = &ResourceLinks{Self: self}
	return b
}

// Build returns the constructed Resource.
func (b *ResourceBuilder) Build() Resource {
	return b.resource
}

// ResourceFrom builds a resource whose attributes are the JSON fields of v.
func ResourceFrom(resourceType, id string, v any) (Resource, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Resource{}, fmt.Errorf("marshal %s attributes: %w", resourceType, err)
	}
	var attrs map[string]any
	if err := json.Unmarshal(data, &attrs); err != nil {
		return Resource{}, fmt.Errorf("%s attributes must be an object: %w", resourceType, err)
	}
	return NewResource(resourceType, id).Attrs(attrs).Build(), nil
}

// DecodeAttributes unmarshals a raw resource's attributes into v, restoring
// the id.
func DecodeAttributes(r RawResource, v any) error {
	attrs := map[string]any{}
	if len(r.Attributes) > 0 {
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			return fmt.Errorf("decode %s attributes: %w", r.Type, err)
		}
	}
	if r.ID != "" {
		attrs["id"] = r.ID
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
