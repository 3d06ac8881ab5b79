package textutil

import "strings"

// CompactStringMap trims keys and values and drops entries where either is empty.
// It returns nil when nothing remains.
func CompactStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	result := make(map[string]string, len(values))
	for key, value := range values {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		result[key] = value
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// FoldCaption normalises a spreadsheet header caption for comparison: runs of whitespace
// (non-breaking spaces included) collapse to one space and letters are lower-cased.
func FoldCaption(caption string) string {
	return strings.ToLower(strings.Join(strings.Fields(caption), " "))
}
