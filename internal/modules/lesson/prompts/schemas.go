package prompts

// Closed response schemas for structured output. The validator in
// modules/lesson/content re-checks everything; the schema exists to steer the
// model, not to be trusted.

func ActivitySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":               map[string]any{"type": "string"},
			"type":             map[string]any{"type": "string"},
			"title":            map[string]any{"type": "string"},
			"instructions":     map[string]any{"type": "string"},
			"duration_minutes": map[string]any{"type": "number"},
			"attachable":       map[string]any{"type": "boolean"},
		},
		"required": []string{"id", "type", "title", "instructions", "duration_minutes", "attachable"},
	}
}

func PartSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":        map[string]any{"type": "string"},
			"type":      map[string]any{"type": "string"},
			"title":     map[string]any{"type": "string"},
			"body":      map[string]any{"type": "string"},
			"collapsed": map[string]any{"type": "boolean"},
			"activities": map[string]any{
				"type":  "array",
				"items": ActivitySchema(),
			},
		},
		"required": []string{"id", "type", "title", "body", "collapsed"},
	}
}

func LessonSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"parts": map[string]any{
				"type":  "array",
				"items": PartSchema(),
			},
		},
		"required": []string{"tags", "parts"},
	}
}

func ActivitiesSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"activities": map[string]any{
				"type":  "array",
				"items": ActivitySchema(),
			},
		},
		"required": []string{"activities"},
	}
}
