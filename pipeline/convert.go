package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// defaultTruncateLimit bounds Truncate output when no limit is given.
const defaultTruncateLimit = 50000

// ParseJSON decodes a JSON document into generic Go values.
func ParseJSON(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("parsing json: %w", err)
	}
	return v, nil
}

// CSVToMaps reads CSV text whose first row is a header and returns one
// map per data row, keyed by column name.
func CSVToMaps(s string) ([]map[string]string, error) {
	records, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// XMLToMap converts an XML document into a nested map keyed by element
// name. Repeated sibling elements collapse into a list; leaf elements
// become their trimmed text content. Attributes are ignored.
func XMLToMap(s string) (map[string]any, error) {
	dec := xml.NewDecoder(strings.NewReader(s))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("parsing xml: no root element")
		}
		if err != nil {
			return nil, fmt.Errorf("parsing xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		v, err := decodeElement(dec)
		if err != nil {
			return nil, fmt.Errorf("parsing xml: %w", err)
		}
		return map[string]any{start.Name.Local: v}, nil
	}
}

// decodeElement consumes tokens up to the matching end element. The
// decoder guarantees tags balance, so EOF inside here is an error.
func decodeElement(dec *xml.Decoder) (any, error) {
	children := map[string]any{}
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec)
			if err != nil {
				return nil, err
			}
			addChild(children, t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(children) > 0 {
				return children, nil
			}
			return strings.TrimSpace(text.String()), nil
		}
	}
}

func addChild(m map[string]any, name string, v any) {
	existing, ok := m[name]
	if !ok {
		m[name] = v
		return
	}
	if list, ok := existing.([]any); ok {
		m[name] = append(list, v)
		return
	}
	m[name] = []any{existing, v}
}

// Flatten collapses nested mappings into a single level, joining key
// segments with sep ("." when empty).
func Flatten(m map[string]any, sep string) map[string]any {
	if sep == "" {
		sep = "."
	}
	out := make(map[string]any, len(m))
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			key := k
			if prefix != "" {
				key = prefix + sep + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(key, child)
				continue
			}
			out[key] = v
		}
	}
	walk("", m)
	return out
}

// FlattenKeys returns a chain-ready processor that applies Flatten.
// It fails on non-mapping input rather than passing it through.
func FlattenKeys(sep string) Processor {
	return ProcessorFunc(func(data any) (any, error) {
		m, ok := asMap(data)
		if !ok {
			return nil, fmt.Errorf("flatten: expected mapping, got %T", data)
		}
		return Flatten(m, sep), nil
	})
}

// Truncate serializes data and caps the result at max bytes, appending
// a marker when anything was cut. A non-positive max uses the default
// limit.
func Truncate(data any, max int) string {
	if max <= 0 {
		max = defaultTruncateLimit
	}
	s := stringify(data)
	if _, ok := data.(string); !ok {
		if raw, err := json.Marshal(data); err == nil {
			s = string(raw)
		}
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "... [truncated]"
}
