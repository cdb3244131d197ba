package content

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseObject decodes model output into a JSON object. When the raw text does
// not parse directly it falls back to the substring between the first '{' and
// the last '}', which defends against incidental leading or trailing prose
// around an otherwise valid document.
func ParseObject(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty model output")
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return obj, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("model output contains no JSON object")
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("model output is not valid JSON: %w", err)
	}
	return obj, nil
}
