package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/samber/lo"
)

const (
	maxRenderedMapEntries = 20
	maxRenderedListItems  = 10
	maxRenderedScalarLen  = 5000
)

// RenderForPrompt embeds a bounded rendering of data into the analysis
// prompt template. Mappings keep their first 20 entries by sorted key
// and gain a "...truncated" marker when cut; sequences keep their first
// 10 elements with a trailing count note; scalars are capped at 5000
// characters. The full data is never embedded.
func RenderForPrompt(prompt string, data any) string {
	var dataStr string
	if m, ok := asMap(data); ok {
		keys := lo.Keys(m)
		sort.Strings(keys)
		display := make(map[string]any, maxRenderedMapEntries+1)
		for _, k := range lo.Slice(keys, 0, maxRenderedMapEntries) {
			display[k] = m[k]
		}
		if len(m) > maxRenderedMapEntries {
			display["...truncated"] = fmt.Sprintf("%d more items", len(m)-maxRenderedMapEntries)
		}
		dataStr = marshalIndent(display)
	} else if l, ok := asList(data); ok {
		dataStr = marshalIndent(lo.Slice(l, 0, maxRenderedListItems))
		if len(l) > maxRenderedListItems {
			dataStr += fmt.Sprintf("\n... and %d more items", len(l)-maxRenderedListItems)
		}
	} else {
		s := stringify(data)
		if len(s) > maxRenderedScalarLen {
			s = s[:maxRenderedScalarLen]
		}
		dataStr = s
	}

	return fmt.Sprintf("%s\n\nHere is the relevant data to analyze:\n\n```json\n%s\n```\n\nPlease provide your analysis based on this data.", prompt, dataStr)
}

func marshalIndent(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
