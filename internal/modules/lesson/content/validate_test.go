package content

import (
	"strings"
	"testing"
)

func validPartMap(id string) map[string]any {
	return map[string]any{
		"id":        id,
		"type":      "content",
		"title":     "Introduction",
		"body":      "Today we cover fractions.",
		"collapsed": false,
	}
}

func validActivityMap(id string) map[string]any {
	return map[string]any{
		"id":               id,
		"type":             "exercise",
		"title":            "Worksheet",
		"instructions":     "Complete problems 1-10.",
		"duration_minutes": float64(15),
		"attachable":       true,
	}
}

func TestCoerceLessonValid(t *testing.T) {
	practice := map[string]any{
		"id":         "p2",
		"type":       "practice",
		"title":      "Practice",
		"body":       "Work through the exercises.",
		"collapsed":  true,
		"activities": []any{validActivityMap("a1")},
	}
	obj := map[string]any{
		"tags":  []any{"math", "fractions", ""},
		"parts": []any{validPartMap("p1"), practice},
	}

	doc, err := CoerceLesson(obj)
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	if len(doc.Tags) != 2 {
		t.Fatalf("expected empty tag dropped, got %v", doc.Tags)
	}
	if len(doc.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(doc.Parts))
	}
	if len(doc.Parts[1].Activities) != 1 {
		t.Fatalf("expected 1 activity on practice part")
	}
	if doc.Parts[1].Activities[0].DurationMinutes != 15 {
		t.Fatalf("unexpected duration %v", doc.Parts[1].Activities[0].DurationMinutes)
	}
}

func TestCoerceLessonRejectsMissingTitle(t *testing.T) {
	part := validPartMap("p1")
	part["title"] = "  "
	obj := map[string]any{"tags": []any{}, "parts": []any{part}}

	_, err := CoerceLesson(obj)
	if err == nil || !strings.Contains(err.Error(), "title") {
		t.Fatalf("expected title error, got %v", err)
	}
}

func TestCoerceLessonRejectsNonArrayParts(t *testing.T) {
	obj := map[string]any{"tags": []any{}, "parts": "not an array"}
	if _, err := CoerceLesson(obj); err == nil {
		t.Fatalf("expected error for non-array parts")
	}
}

func TestCoerceLessonRejectsActivitiesOnPlainPart(t *testing.T) {
	part := validPartMap("p1")
	part["activities"] = []any{validActivityMap("a1")}
	obj := map[string]any{"tags": []any{}, "parts": []any{part}}

	_, err := CoerceLesson(obj)
	if err == nil || !strings.Contains(err.Error(), "does not allow") {
		t.Fatalf("expected activity placement error, got %v", err)
	}
}

func TestCoerceLessonRejectsNegativeDuration(t *testing.T) {
	act := validActivityMap("a1")
	act["duration_minutes"] = float64(-5)
	part := map[string]any{
		"id":         "p1",
		"type":       "activities",
		"title":      "Activities",
		"body":       "",
		"collapsed":  false,
		"activities": []any{act},
	}
	obj := map[string]any{"tags": []any{}, "parts": []any{part}}

	_, err := CoerceLesson(obj)
	if err == nil || !strings.Contains(err.Error(), "negative") {
		t.Fatalf("expected negative duration error, got %v", err)
	}
}

func TestCoerceLessonRejectsNonBooleanCollapsed(t *testing.T) {
	part := validPartMap("p1")
	part["collapsed"] = "false"
	obj := map[string]any{"tags": []any{}, "parts": []any{part}}

	if _, err := CoerceLesson(obj); err == nil {
		t.Fatalf("expected error for string collapsed flag")
	}
}

func TestCoercePartAcceptsWrappedAndBareRoots(t *testing.T) {
	bare, err := CoercePart(validPartMap("p1"))
	if err != nil {
		t.Fatalf("coerce bare part: %v", err)
	}
	if bare.ID != "p1" {
		t.Fatalf("unexpected id %q", bare.ID)
	}

	wrapped, err := CoercePart(map[string]any{"part": validPartMap("p2")})
	if err != nil {
		t.Fatalf("coerce wrapped part: %v", err)
	}
	if wrapped.ID != "p2" {
		t.Fatalf("unexpected id %q", wrapped.ID)
	}
}

func TestCoerceActivitiesValid(t *testing.T) {
	obj := map[string]any{"activities": []any{validActivityMap("a1"), validActivityMap("a2")}}
	acts, err := CoerceActivities(obj)
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	if len(acts) != 2 {
		t.Fatalf("expected 2 activities, got %d", len(acts))
	}
}

func TestCoerceActivitiesRejectsEmpty(t *testing.T) {
	if _, err := CoerceActivities(map[string]any{"activities": []any{}}); err == nil {
		t.Fatalf("expected error for empty activities")
	}
}

func TestCoerceActivitiesRejectsMissingInstructions(t *testing.T) {
	act := validActivityMap("a1")
	delete(act, "instructions")
	_, err := CoerceActivities(map[string]any{"activities": []any{act}})
	if err == nil || !strings.Contains(err.Error(), "instructions") {
		t.Fatalf("expected instructions error, got %v", err)
	}
}
