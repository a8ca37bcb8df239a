package tripplan

import (
	"encoding/json"
	"errors"
	"strings"
)

// CandidateFromError recovers the best-effort partial payload a failed
// generation call carried along. It never fails: anything that is not a
// *GenerationError with an object- or array-shaped partial yields nil.
func CandidateFromError(err error) any {
	var ge *GenerationError
	if !errors.As(err, &ge) {
		return nil
	}
	switch ge.Partial.(type) {
	case map[string]any, []any:
		return ge.Partial
	}
	return nil
}

// ExtractEmbeddedJSON scans free-form text for the first balanced {...} or
// [...] span and parses it. Depth tracking skips content inside string
// literals so braces in quoted prose don't miscount. Supports model output
// like "Here is your plan: { ... } Hope that helps!".
func ExtractEmbeddedJSON(text string) (any, bool) {
	text = stripCodeFences(text)
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return nil, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				var v any
				if err := json.Unmarshal([]byte(text[start:i+1]), &v); err != nil {
					return nil, false
				}
				return v, true
			}
		}
	}
	return nil, false
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
