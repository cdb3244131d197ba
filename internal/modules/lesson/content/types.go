package content

// LessonDoc is the validated generation result: descriptive tags plus an
// ordered list of parts. Model output is coerced into this shape before any
// downstream use; nothing consumes the raw payload directly.
type LessonDoc struct {
	Tags  []string `json:"tags"`
	Parts []Part   `json:"parts"`
}

type Part struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Collapsed  bool       `json:"collapsed"`
	Activities []Activity `json:"activities,omitempty"`
}

type Activity struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	Title           string  `json:"title"`
	Instructions    string  `json:"instructions"`
	DurationMinutes float64 `json:"duration_minutes"`
	Attachable      bool    `json:"attachable"`
}

// Part types that may carry activities. Anything else with a non-empty
// activities array fails validation.
var activityBearingPartTypes = map[string]bool{
	"activities": true,
	"practice":   true,
}

func (p Part) AllowsActivities() bool {
	return activityBearingPartTypes[p.Type]
}
