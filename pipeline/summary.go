package pipeline

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/samber/lo"
)

const (
	summaryKeyLimit   = 10
	summarySampleLen  = 3
	summaryPreviewLen = 100
)

// Summary describes the shape of a piece of data without reproducing
// it. Fields are populated per kind: Keys and TotalKeys for mappings,
// Length and Sample for sequences, Preview and Length for scalars.
type Summary struct {
	Kind      string   `json:"kind"`
	Keys      []string `json:"keys,omitempty"`
	TotalKeys int      `json:"total_keys,omitempty"`
	Length    int      `json:"length,omitempty"`
	Sample    []any    `json:"sample,omitempty"`
	Preview   string   `json:"preview,omitempty"`
	SizeBytes int      `json:"size_bytes,omitempty"`
}

// Summarize reports the structure of data. Mapping keys are sorted so
// the same input always yields the same summary.
func Summarize(data any) *Summary {
	if m, ok := asMap(data); ok {
		keys := lo.Keys(m)
		sort.Strings(keys)
		return &Summary{
			Kind:      "dictionary",
			Keys:      lo.Slice(keys, 0, summaryKeyLimit),
			TotalKeys: len(m),
			SizeBytes: sizeBytes(data),
		}
	}

	if l, ok := asList(data); ok {
		return &Summary{
			Kind:      "list",
			Length:    len(l),
			Sample:    lo.Slice(l, 0, summarySampleLen),
			SizeBytes: sizeBytes(data),
		}
	}

	s := stringify(data)
	preview := s
	if len(preview) > summaryPreviewLen {
		preview = preview[:summaryPreviewLen]
	}
	return &Summary{
		Kind:      fmt.Sprintf("%T", data),
		Length:    len(s),
		Preview:   preview,
		SizeBytes: len(s),
	}
}

// asMap returns data as a string-keyed map when it is any map kind.
func asMap(data any) (map[string]any, bool) {
	if m, ok := data.(map[string]any); ok {
		return m, true
	}
	v := reflect.ValueOf(data)
	if !v.IsValid() || v.Kind() != reflect.Map {
		return nil, false
	}
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		out[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
	}
	return out, true
}

// asList returns data as a []any when it is a slice or array. Byte
// slices stay scalar.
func asList(data any) ([]any, bool) {
	if l, ok := data.([]any); ok {
		return l, true
	}
	if _, ok := data.([]byte); ok {
		return nil, false
	}
	v := reflect.ValueOf(data)
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = v.Index(i).Interface()
	}
	return out, true
}

func stringify(data any) string {
	if s, ok := data.(string); ok {
		return s
	}
	return fmt.Sprint(data)
}

func sizeBytes(data any) int {
	raw, err := json.Marshal(data)
	if err != nil {
		return len(fmt.Sprint(data))
	}
	return len(raw)
}
