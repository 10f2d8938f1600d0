package content

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/artpar/coursesync/domain/duration"
)

// Migrate upgrades a raw content blob to the canonical shape.
// Blobs carrying a schema_version are decoded as-is; legacy blobs are
// migrated with alias and shape heuristics. Never fails: unknown shapes pass
// through in Extra with Type "".
// This is a PURE function.
func Migrate(raw map[string]any) Content {
	raw, _ = plain(raw).(map[string]any)
	if raw == nil {
		return Content{SchemaVersion: SchemaVersion}
	}

	if v, ok := raw[keyVersion]; ok {
		if version, ok := asInt(v); ok && version >= 1 {
			return decodeVersioned(raw, version)
		}
	}
	return migrateLegacy(raw)
}

// decodeVersioned reads an already-migrated blob without re-applying any
// heuristic.
func decodeVersioned(raw map[string]any, version int) Content {
	c := Content{SchemaVersion: version}
	if t, ok := raw[keyType].(string); ok {
		c.Type = Type(t)
	}
	c.ensureVariant()

	owned := map[string]bool{keyType: true, keyVersion: true}
	if v := c.variant(); v != nil {
		sub := make(map[string]any)
		for _, k := range variantKeys[c.Type] {
			owned[k] = true
			if val, ok := raw[k]; ok {
				sub[k] = val
			}
		}
		decodeInto(sub, v)
	}

	for k, v := range raw {
		if owned[k] {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[k] = v
	}
	return c
}

// legacyReader consumes keys from a legacy blob so leftovers can be kept.
type legacyReader struct {
	raw  map[string]any
	used map[string]bool
}

// take returns the first non-empty value among keys and marks every alias as
// consumed. present reports whether any alias existed at all.
func (r *legacyReader) take(keys ...string) (value any, present bool) {
	for _, k := range keys {
		v, ok := r.raw[k]
		if !ok {
			continue
		}
		present = true
		r.used[k] = true
		if value == nil && !isEmpty(v) {
			value = v
		}
	}
	return value, present
}

func migrateLegacy(raw map[string]any) Content {
	r := &legacyReader{raw: raw, used: map[string]bool{keyType: true, keyVersion: true}}

	video, hasVideo := r.video()
	text, hasText := r.text()
	quiz, hasQuiz := r.quiz()
	reflection, hasReflection := r.reflection()
	interactive, hasInteractive := r.interactive()

	c := Content{SchemaVersion: SchemaVersion}

	explicit := Type(strings.ToLower(strings.TrimSpace(asString(raw[keyType]))))
	switch {
	case explicit.IsKnown():
		c.Type = explicit
	case hasVideo:
		c.Type = TypeVideo
	case hasText:
		c.Type = TypeText
	case hasQuiz:
		c.Type = TypeQuiz
	case hasReflection:
		c.Type = TypeReflection
	case hasInteractive:
		c.Type = TypeInteractive
	default:
		c.Type = explicit
	}

	variants := map[Type]any{
		TypeVideo:       video,
		TypeText:        text,
		TypeQuiz:        quiz,
		TypeInteractive: interactive,
		TypeReflection:  reflection,
	}
	switch c.Type {
	case TypeVideo:
		c.Video = video
	case TypeText:
		c.Text = text
	case TypeQuiz:
		c.Quiz = quiz
	case TypeInteractive:
		c.Interactive = interactive
	case TypeReflection:
		c.Reflection = reflection
	}

	extra := make(map[string]any)
	for t, v := range variants {
		if t == c.Type {
			continue
		}
		for k, val := range toMap(v) {
			extra[k] = val
		}
	}
	for k, v := range raw {
		if !r.used[k] {
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		c.Extra = extra
	}
	return c
}

func (r *legacyReader) video() (*Video, bool) {
	v := &Video{}

	url, hasURL := r.take("videoUrl", "videoURL", "video_url", "url", "src")
	v.URL = asString(url)

	dur, hasDuration := r.take("videoDuration", "video_duration")
	switch d := dur.(type) {
	case string:
		if m, ok := duration.Parse(d); ok {
			v.Duration = m
		}
	default:
		if f, ok := asFloat(d); ok {
			if m, ok := duration.Minutes(f); ok {
				v.Duration = m
			}
		}
	}

	length, _ := r.take("videoLengthSeconds", "videoLength", "lengthSeconds", "video_length")
	if f, ok := asFloat(length); ok && f > 0 {
		v.LengthSeconds = f
	}

	caps, _ := r.take("captions", "subtitles")
	v.Captions = captions(caps)

	transcript, _ := r.take("transcript")
	v.Transcript = asString(transcript)

	return v, hasURL || hasDuration
}

func (r *legacyReader) text() (*Text, bool) {
	t := &Text{}
	body, present := r.take("textContent", "body")
	// "content" is only a text alias when it is a string; nested legacy
	// objects under "content" are left for Extra.
	if s, ok := r.raw["content"].(string); ok {
		r.used["content"] = true
		present = true
		if body == nil && s != "" {
			body = s
		}
	}
	t.Body = asString(body)
	return t, present
}

func (r *legacyReader) quiz() (*Quiz, bool) {
	q := &Quiz{}
	source, present := r.take("questions")
	score, _ := r.take("passingScore", "passing_score")

	if nested, ok := r.raw["quiz"].(map[string]any); ok {
		r.used["quiz"] = true
		present = true
		if source == nil {
			source = nested["questions"]
		}
		if score == nil {
			score = firstPresent(nested, "passingScore", "passing_score")
		}
	}

	q.Questions = questions(source)
	if n, ok := asInt(score); ok && n > 0 {
		q.PassingScore = n
	}
	return q, present
}

func (r *legacyReader) reflection() (*Reflection, bool) {
	ref := &Reflection{}
	prompt, present := r.take("prompt", "reflectionPrompt", "reflection_prompt")
	ref.Prompt = asString(prompt)
	words, _ := r.take("minWords", "min_words")
	if n, ok := asInt(words); ok && n > 0 {
		ref.MinWords = n
	}
	return ref, present
}

func (r *legacyReader) interactive() (*Interactive, bool) {
	in := &Interactive{}
	instructions, hasInstructions := r.take("instructions", "instruction")
	in.Instructions = asString(instructions)

	steps, hasSteps := r.take("steps")
	if list, ok := steps.([]any); ok {
		for _, s := range list {
			var text string
			switch v := s.(type) {
			case string:
				text = v
			case map[string]any:
				text = asString(firstPresent(v, "text", "title", "description"))
			}
			if strings.TrimSpace(text) != "" {
				in.Steps = append(in.Steps, text)
			}
		}
	}

	activity, hasActivity := r.take("activity")
	switch a := activity.(type) {
	case string:
		in.Activity = a
	case map[string]any:
		in.Activity = asString(firstPresent(a, "type", "name", "title"))
	}

	return in, hasInstructions || hasSteps || hasActivity
}

func captions(v any) []Caption {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []Caption
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		start, _ := asFloat(firstPresent(m, "startTime", "start", "from", "s"))
		end, _ := asFloat(firstPresent(m, "endTime", "end", "to", "e"))
		out = append(out, Caption{
			StartTime: start,
			EndTime:   end,
			Text:      asString(firstPresent(m, "text", "content", "caption")),
		})
	}
	return out
}

func questions(v any) []Question {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []Question
	for i, item := range list {
		q := Question{ID: fmt.Sprintf("q%d", i+1)}
		m, ok := item.(map[string]any)
		if !ok {
			s := asString(item)
			if s == "" {
				continue
			}
			q.Text = s
			q.Options = []Option{}
			out = append(out, q)
			continue
		}

		if id := asID(m["id"]); id != "" {
			q.ID = id
		}
		q.Text = asString(firstPresent(m, "text", "question", "prompt", "title"))
		q.Explanation = asString(m["explanation"])
		q.Options = options(q.ID, firstPresent(m, "options", "answers", "choices"))
		markCorrect(q.Options, firstPresent(m, "correctAnswer", "correct_answer", "answer", "correct"))
		out = append(out, q)
	}
	return out
}

func options(questionID string, v any) []Option {
	out := []Option{}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	for j, item := range list {
		o := Option{ID: fmt.Sprintf("%s-%d", questionID, j+1)}
		switch val := item.(type) {
		case string:
			o.Text = val
		case map[string]any:
			if id := asID(val["id"]); id != "" {
				o.ID = id
			}
			o.Text = asString(firstPresent(val, "text", "label", "value", "answer"))
			o.Correct = asBool(firstPresent(val, "correct", "isCorrect", "is_correct", "correctAnswer", "right"))
		default:
			o.Text = asID(val)
		}
		out = append(out, o)
	}
	return out
}

// markCorrect applies a question-level answer key: an index, an option id
// or the option text.
func markCorrect(opts []Option, ref any) {
	switch v := ref.(type) {
	case float64:
		i := int(v)
		if float64(i) == v && i >= 0 && i < len(opts) {
			opts[i].Correct = true
		}
	case string:
		want := strings.ToLower(strings.TrimSpace(v))
		if want == "" {
			return
		}
		for i := range opts {
			if strings.ToLower(opts[i].ID) == want || strings.ToLower(strings.TrimSpace(opts[i].Text)) == want {
				opts[i].Correct = true
			}
		}
	case []any:
		for _, item := range v {
			markCorrect(opts, item)
		}
	}
}

// decodeInto fills a variant from a JSON object. Fields with a wrong shape
// are left zero.
func decodeInto(sub map[string]any, dst any) {
	data, err := json.Marshal(sub)
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, dst); err == nil {
		return
	}
	// Fall back field by field so one bad value does not drop the rest.
	for k, v := range sub {
		one, err := json.Marshal(map[string]any{k: v})
		if err != nil {
			continue
		}
		_ = json.Unmarshal(one, dst)
	}
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && !isEmpty(v) {
			return v
		}
	}
	return nil
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asID(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(math.Round(f)), true
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x == 1
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		return s == "true" || s == "yes" || s == "1"
	}
	return false
}
