package content

import (
	"fmt"
	"strings"
)

// CoerceLesson validates the untrusted object into a LessonDoc. Every part
// needs a string id/type/title/body and a boolean collapse flag; activities
// are only accepted on activity-bearing parts.
func CoerceLesson(obj map[string]any) (LessonDoc, error) {
	var doc LessonDoc
	if obj == nil {
		return doc, fmt.Errorf("lesson object missing")
	}

	doc.Tags = stringSliceFromAny(obj["tags"])

	rawParts, ok := obj["parts"].([]any)
	if !ok {
		return doc, fmt.Errorf("lesson.parts is not an array")
	}
	if len(rawParts) == 0 {
		return doc, fmt.Errorf("lesson.parts is empty")
	}

	doc.Parts = make([]Part, 0, len(rawParts))
	for i, rawPart := range rawParts {
		part, err := coercePart(rawPart, fmt.Sprintf("parts[%d]", i))
		if err != nil {
			return doc, err
		}
		doc.Parts = append(doc.Parts, part)
	}
	return doc, nil
}

// CoercePart validates an object whose root is a single part.
func CoercePart(obj map[string]any) (Part, error) {
	if obj == nil {
		return Part{}, fmt.Errorf("part object missing")
	}
	if inner, ok := obj["part"].(map[string]any); ok {
		return coercePart(inner, "part")
	}
	return coercePart(obj, "part")
}

// CoerceActivities validates an object of the shape {activities: [...]}.
func CoerceActivities(obj map[string]any) ([]Activity, error) {
	if obj == nil {
		return nil, fmt.Errorf("activities object missing")
	}
	raw, ok := obj["activities"].([]any)
	if !ok {
		return nil, fmt.Errorf("activities is not an array")
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("activities is empty")
	}
	out := make([]Activity, 0, len(raw))
	for i, item := range raw {
		act, err := coerceActivity(item, fmt.Sprintf("activities[%d]", i))
		if err != nil {
			return nil, err
		}
		out = append(out, act)
	}
	return out, nil
}

func coercePart(v any, path string) (Part, error) {
	var part Part
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return part, fmt.Errorf("%s is not an object", path)
	}

	part.ID = strings.TrimSpace(stringFromAny(m["id"]))
	part.Type = strings.TrimSpace(stringFromAny(m["type"]))
	part.Title = strings.TrimSpace(stringFromAny(m["title"]))
	part.Body = stringFromAny(m["body"])

	if part.ID == "" {
		return part, fmt.Errorf("%s.id is missing", path)
	}
	if part.Type == "" {
		return part, fmt.Errorf("%s.type is missing", path)
	}
	if part.Title == "" {
		return part, fmt.Errorf("%s.title is missing", path)
	}
	if _, ok := m["body"].(string); !ok {
		return part, fmt.Errorf("%s.body is not a string", path)
	}

	collapsed, ok := m["collapsed"].(bool)
	if !ok {
		return part, fmt.Errorf("%s.collapsed is not a boolean", path)
	}
	part.Collapsed = collapsed

	if rawActs, present := m["activities"]; present && rawActs != nil {
		list, ok := rawActs.([]any)
		if !ok {
			return part, fmt.Errorf("%s.activities is not an array", path)
		}
		if len(list) > 0 && !part.AllowsActivities() {
			return part, fmt.Errorf("%s has activities but type %q does not allow them", path, part.Type)
		}
		for i, item := range list {
			act, err := coerceActivity(item, fmt.Sprintf("%s.activities[%d]", path, i))
			if err != nil {
				return part, err
			}
			part.Activities = append(part.Activities, act)
		}
	}
	return part, nil
}

func coerceActivity(v any, path string) (Activity, error) {
	var act Activity
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return act, fmt.Errorf("%s is not an object", path)
	}

	act.ID = strings.TrimSpace(stringFromAny(m["id"]))
	act.Type = strings.TrimSpace(stringFromAny(m["type"]))
	act.Title = strings.TrimSpace(stringFromAny(m["title"]))
	act.Instructions = stringFromAny(m["instructions"])

	if act.ID == "" {
		return act, fmt.Errorf("%s.id is missing", path)
	}
	if act.Type == "" {
		return act, fmt.Errorf("%s.type is missing", path)
	}
	if act.Title == "" {
		return act, fmt.Errorf("%s.title is missing", path)
	}
	if _, ok := m["instructions"].(string); !ok {
		return act, fmt.Errorf("%s.instructions is not a string", path)
	}

	dur, ok := floatFromAny(m["duration_minutes"])
	if !ok {
		return act, fmt.Errorf("%s.duration_minutes is not a number", path)
	}
	if dur < 0 {
		return act, fmt.Errorf("%s.duration_minutes is negative", path)
	}
	act.DurationMinutes = dur

	attachable, ok := m["attachable"].(bool)
	if !ok {
		return act, fmt.Errorf("%s.attachable is not a boolean", path)
	}
	act.Attachable = attachable

	return act, nil
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return s
}

func floatFromAny(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func stringSliceFromAny(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s := strings.TrimSpace(stringFromAny(item))
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
