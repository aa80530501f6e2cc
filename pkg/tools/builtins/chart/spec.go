package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rhuss/askdata/pkg/frame"
)

// Chart types.
const (
	TypeLine      = "line"
	TypeBar       = "bar"
	TypeScatter   = "scatter"
	TypeHistogram = "histogram"
)

// SpecSchema is the JSON schema the model's chart spec must satisfy.
const SpecSchema = `{
  "type": "object",
  "required": ["type", "x"],
  "additionalProperties": false,
  "properties": {
    "type": {"enum": ["line", "bar", "scatter", "histogram"]},
    "title": {"type": "string"},
    "x": {"type": "string", "minLength": 1},
    "y": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "x_label": {"type": "string"},
    "y_label": {"type": "string"},
    "bins": {"type": "integer", "minimum": 1, "maximum": 200}
  }
}`

// Spec describes one chart over a frame.
type Spec struct {
	Type   string   `json:"type"`
	Title  string   `json:"title,omitempty"`
	X      string   `json:"x"`
	Y      []string `json:"y,omitempty"`
	XLabel string   `json:"x_label,omitempty"`
	YLabel string   `json:"y_label,omitempty"`
	Bins   int      `json:"bins,omitempty"`
}

var specSchema = mustCompile(SpecSchema)

func mustCompile(doc string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(doc), &schemaDoc); err != nil {
		panic(fmt.Sprintf("chart schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("chart.json", schemaDoc); err != nil {
		panic(fmt.Sprintf("chart schema: %v", err))
	}
	return c.MustCompile("chart.json")
}

// ParseSpec validates raw JSON against SpecSchema and against the columns
// of data.
func ParseSpec(raw string, data *frame.Frame) (*Spec, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("chart spec is not valid JSON: %w", err)
	}
	if err := specSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("chart spec does not match the schema: %w", err)
	}
	var s Spec
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decoding chart spec: %w", err)
	}

	var errs []error
	if data.Index(s.X) < 0 {
		errs = append(errs, fmt.Errorf("unknown column %q (columns: %s)", s.X, strings.Join(data.Columns, ", ")))
	}
	for _, y := range s.Y {
		if data.Index(y) < 0 {
			errs = append(errs, fmt.Errorf("unknown column %q (columns: %s)", y, strings.Join(data.Columns, ", ")))
		}
	}
	if s.Type != TypeHistogram && len(s.Y) == 0 {
		errs = append(errs, fmt.Errorf("a %s chart needs at least one y column", s.Type))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &s, nil
}
