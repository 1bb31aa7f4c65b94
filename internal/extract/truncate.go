package extract

import "strings"

const (
	// maxPromptChars caps the OCR text placed into one prompt.
	maxPromptChars = 10000
	// maxFieldChars caps any single string value in extracted fields.
	maxFieldChars = 2000
	// maxListItems caps list-valued fields such as permit classes.
	maxListItems = 3
)

// TruncateText cuts s to at most limit characters, preferring to break
// at the last newline that falls past 80% of the limit so a line is
// never split mid-sentence.
func TruncateText(s string, limit int) string {
	if limit <= 0 {
		limit = maxPromptChars
	}
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	floor := limit * 80 / 100
	if idx := strings.LastIndexByte(cut, '\n'); idx >= floor {
		cut = cut[:idx]
	}
	return cut
}

// TrimFields bounds extracted values so oversized model output cannot
// bloat stored records: long strings are capped and lists sliced.
func TrimFields(fields DocumentFields) DocumentFields {
	out := make(DocumentFields, len(fields))
	for k, v := range fields {
		switch t := v.(type) {
		case string:
			if len(t) > maxFieldChars {
				t = t[:maxFieldChars]
			}
			out[k] = t
		case []any:
			if len(t) > maxListItems {
				t = t[:maxListItems]
			}
			out[k] = t
		default:
			out[k] = v
		}
	}
	return out
}
