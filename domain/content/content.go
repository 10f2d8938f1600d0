// Package content defines the lesson content sum type and its one-shot
// migration from legacy free-form blobs.
// This package has NO dependencies on I/O.
package content

import (
	"encoding/json"
	"sort"
)

// SchemaVersion is stamped on every migrated blob. Blobs without a
// schema_version are legacy (version 0) and are migrated exactly once.
// A future bump adds a new branch in Migrate keyed on the stored version.
const SchemaVersion = 1

// Type tags the active variant.
type Type string

const (
	TypeVideo       Type = "video"
	TypeText        Type = "text"
	TypeQuiz        Type = "quiz"
	TypeInteractive Type = "interactive"
	TypeReflection  Type = "reflection"
)

// IsKnown returns true if t names a variant.
func (t Type) IsKnown() bool {
	switch t {
	case TypeVideo, TypeText, TypeQuiz, TypeInteractive, TypeReflection:
		return true
	}
	return false
}

// Content is the canonical lesson content. Exactly one variant pointer
// matching Type is set; Type "" means no heuristic matched and only Extra
// carries data.
type Content struct {
	SchemaVersion int
	Type          Type

	Video       *Video
	Text        *Text
	Quiz        *Quiz
	Interactive *Interactive
	Reflection  *Reflection

	// Extra holds fields that belong to no active variant. Values are plain
	// JSON values (map[string]any, []any, float64, string, bool, nil).
	Extra map[string]any
}

// Video is the canonical video lesson content.
type Video struct {
	URL           string    `json:"videoUrl,omitempty"`
	Duration      int       `json:"videoDuration,omitempty"` // minutes
	LengthSeconds float64   `json:"videoLengthSeconds,omitempty"`
	Captions      []Caption `json:"captions,omitempty"`
	Transcript    string    `json:"transcript,omitempty"`
}

// Caption is one timed caption cue.
type Caption struct {
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
}

// Text is the canonical reading lesson content.
type Text struct {
	Body string `json:"textContent,omitempty"`
}

// Quiz is the canonical quiz content.
type Quiz struct {
	Questions    []Question `json:"questions,omitempty"`
	PassingScore int        `json:"passingScore,omitempty"`
}

// Question is a single quiz question.
type Question struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Options     []Option `json:"options"`
	Explanation string   `json:"explanation,omitempty"`
}

// Option is an answer choice.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Interactive is the canonical activity content.
type Interactive struct {
	Instructions string   `json:"instructions,omitempty"`
	Steps        []string `json:"steps,omitempty"`
	Activity     string   `json:"activity,omitempty"`
}

// Reflection is the canonical journaling prompt content.
type Reflection struct {
	Prompt   string `json:"prompt,omitempty"`
	MinWords int    `json:"minWords,omitempty"`
}

// variantKeys lists the canonical keys owned by each variant.
var variantKeys = map[Type][]string{
	TypeVideo:       {"videoUrl", "videoDuration", "videoLengthSeconds", "captions", "transcript"},
	TypeText:        {"textContent"},
	TypeQuiz:        {"questions", "passingScore"},
	TypeInteractive: {"instructions", "steps", "activity"},
	TypeReflection:  {"prompt", "minWords"},
}

const (
	keyType    = "type"
	keyVersion = "schema_version"
)

// Empty returns a migrated, variant-initialised content for type t.
func Empty(t Type) Content {
	c := Content{SchemaVersion: SchemaVersion, Type: t}
	c.ensureVariant()
	return c
}

// WithType returns a copy tagged as t with its variant initialised.
// Content that already carries a known type is returned unchanged.
func (c Content) WithType(t Type) Content {
	if c.Type.IsKnown() || !t.IsKnown() {
		return c
	}
	c.Type = t
	c.ensureVariant()
	return c
}

// Retype returns c as a t variant. Fields of the previous variant are kept
// in Extra so a later retype back can recover them.
func (c Content) Retype(t Type) Content {
	if !t.IsKnown() || c.Type == t {
		return c
	}
	raw := c.Map()
	delete(raw, keyVersion)
	raw[keyType] = string(t)
	return Migrate(raw)
}

func (c *Content) ensureVariant() {
	switch c.Type {
	case TypeVideo:
		if c.Video == nil {
			c.Video = &Video{}
		}
	case TypeText:
		if c.Text == nil {
			c.Text = &Text{}
		}
	case TypeQuiz:
		if c.Quiz == nil {
			c.Quiz = &Quiz{}
		}
	case TypeInteractive:
		if c.Interactive == nil {
			c.Interactive = &Interactive{}
		}
	case TypeReflection:
		if c.Reflection == nil {
			c.Reflection = &Reflection{}
		}
	}
}

// variant returns the active variant value, or nil.
func (c Content) variant() any {
	switch c.Type {
	case TypeVideo:
		if c.Video != nil {
			return c.Video
		}
	case TypeText:
		if c.Text != nil {
			return c.Text
		}
	case TypeQuiz:
		if c.Quiz != nil {
			return c.Quiz
		}
	case TypeInteractive:
		if c.Interactive != nil {
			return c.Interactive
		}
	case TypeReflection:
		if c.Reflection != nil {
			return c.Reflection
		}
	}
	return nil
}

// IsZero reports whether c was never set.
func (c Content) IsZero() bool {
	return c.SchemaVersion == 0 && c.Type == "" && c.variant() == nil && len(c.Extra) == 0
}

// Map flattens c into its canonical JSON object form.
func (c Content) Map() map[string]any {
	out := make(map[string]any, len(c.Extra)+4)
	for k, v := range c.Extra {
		out[k] = v
	}
	if v := c.variant(); v != nil {
		for k, val := range toMap(v) {
			out[k] = val
		}
	}
	if c.Type != "" {
		out[keyType] = string(c.Type)
	}
	out[keyVersion] = c.SchemaVersion
	return out
}

// MarshalJSON writes the flat canonical shape.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return []byte("{}"), nil
	}
	return json.Marshal(c.Map())
}

// UnmarshalJSON reads any shape. Legacy blobs are migrated here, once, at
// load time.
func (c *Content) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		*c = Content{}
		return nil
	}
	*c = Migrate(raw)
	return nil
}

// ExtraKeys returns the sorted keys of Extra.
func (c Content) ExtraKeys() []string {
	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toMap converts a struct to a plain JSON object.
func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// plain normalises an arbitrary value to what encoding/json would decode.
func plain(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// Clone returns a deep copy.
func (c Content) Clone() Content {
	if c.Video != nil {
		v := *c.Video
		if v.Captions != nil {
			v.Captions = append([]Caption(nil), v.Captions...)
		}
		c.Video = &v
	}
	if c.Text != nil {
		t := *c.Text
		c.Text = &t
	}
	if c.Quiz != nil {
		q := *c.Quiz
		if q.Questions != nil {
			qs := make([]Question, len(q.Questions))
			for i, question := range q.Questions {
				if question.Options != nil {
					question.Options = append([]Option{}, question.Options...)
				}
				qs[i] = question
			}
			q.Questions = qs
		}
		c.Quiz = &q
	}
	if c.Interactive != nil {
		in := *c.Interactive
		if in.Steps != nil {
			in.Steps = append([]string(nil), in.Steps...)
		}
		c.Interactive = &in
	}
	if c.Reflection != nil {
		r := *c.Reflection
		c.Reflection = &r
	}
	if c.Extra != nil {
		c.Extra, _ = plain(c.Extra).(map[string]any)
	}
	return c
}
