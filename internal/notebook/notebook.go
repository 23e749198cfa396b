// Package notebook loads, mutates and writes Jupyter notebooks in nbformat v4.
//
// A Document is read once per test invocation, has its kernel specification
// overwritten, is filled with outputs by the execution engine and is then
// either discarded or written to an output directory.
package notebook

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FormatVersion is the only nbformat major version nbcheck reads.
const FormatVersion = 4

// Cell types defined by nbformat v4.
const (
	CodeCell     = "code"
	MarkdownCell = "markdown"
	RawCell      = "raw"
)

// Document is an in-memory nbformat v4 notebook.
type Document struct {
	Cells         []*Cell        `json:"cells"`
	Metadata      map[string]any `json:"metadata"`
	NBFormat      int            `json:"nbformat"`
	NBFormatMinor int            `json:"nbformat_minor"`

	// Path is the file the document was loaded from.
	Path string `json:"-"`

	// SchemaErrors holds nbformat schema violations found at load time.
	// They do not prevent execution.
	SchemaErrors []string `json:"-"`
}

// Cell is a single notebook cell. Outputs and ExecutionCount are only
// meaningful for code cells.
type Cell struct {
	ID             string          `json:"id,omitempty"`
	CellType       string          `json:"cell_type"`
	Metadata       map[string]any  `json:"metadata"`
	Source         MultilineString `json:"source"`
	Outputs        []Output        `json:"outputs,omitempty"`
	ExecutionCount *int            `json:"execution_count,omitempty"`
	Attachments    map[string]any  `json:"attachments,omitempty"`
}

// Output is one nbformat output object (stream, execute_result,
// display_data or error), kept as decoded JSON so it round-trips unchanged.
type Output map[string]any

// MultilineString is a string stored on disk either as a plain string or as
// a list of lines.
type MultilineString string

// Load reads and parses the notebook at path. Any read or parse failure is
// returned as a *LoadError.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	doc.Path = path

	return doc, nil
}

// Parse decodes notebook JSON. The notebook must declare nbformat 4; schema
// violations beyond that are recorded on Document.SchemaErrors.
func Parse(data []byte) (*Document, error) {
	var header struct {
		NBFormat *int `json:"nbformat"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("invalid notebook JSON: %w", err)
	}
	if header.NBFormat == nil {
		return nil, fmt.Errorf("missing nbformat version")
	}
	if *header.NBFormat != FormatVersion {
		return nil, fmt.Errorf("unsupported nbformat version %d (want %d)", *header.NBFormat, FormatVersion)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid notebook JSON: %w", err)
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	for i, cell := range doc.Cells {
		if cell == nil {
			return nil, fmt.Errorf("cell %d is null", i)
		}
		if cell.Metadata == nil {
			cell.Metadata = map[string]any{}
		}
	}

	schemaErrs, err := Validate(data)
	if err != nil {
		return nil, err
	}
	doc.SchemaErrors = schemaErrs

	return &doc, nil
}

// KernelName returns metadata.kernelspec.name, or "" when absent.
func (d *Document) KernelName() string {
	spec, ok := d.Metadata["kernelspec"].(map[string]any)
	if !ok {
		return ""
	}
	name, _ := spec["name"].(string)
	return name
}

// SetKernelName overwrites metadata.kernelspec.name, creating the
// kernelspec entry when the notebook has none.
func (d *Document) SetKernelName(name string) {
	if d.Metadata == nil {
		d.Metadata = map[string]any{}
	}
	spec, ok := d.Metadata["kernelspec"].(map[string]any)
	if !ok {
		spec = map[string]any{
			"display_name": name,
			"language":     "python",
		}
		d.Metadata["kernelspec"] = spec
	}
	spec["name"] = name
}

// CodeCells returns the number of code cells.
func (d *Document) CodeCells() int {
	n := 0
	for _, c := range d.Cells {
		if c.CellType == CodeCell {
			n++
		}
	}
	return n
}

// Tags returns metadata.tags.
func (c *Cell) Tags() []string {
	raw, ok := c.Metadata["tags"].([]any)
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		if s, ok := t.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}

// HasTag reports whether the cell carries the given metadata tag.
func (c *Cell) HasTag(tag string) bool {
	for _, t := range c.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}

// MarshalJSON emits outputs and execution_count only for code cells, as
// nbformat requires.
func (c Cell) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"cell_type": c.CellType,
		"metadata":  c.Metadata,
		"source":    c.Source,
	}
	if m["metadata"] == nil {
		m["metadata"] = map[string]any{}
	}
	if c.ID != "" {
		m["id"] = c.ID
	}
	if c.CellType == CodeCell {
		outputs := c.Outputs
		if outputs == nil {
			outputs = []Output{}
		}
		m["outputs"] = outputs
		m["execution_count"] = c.ExecutionCount
	}
	if len(c.Attachments) > 0 {
		m["attachments"] = c.Attachments
	}
	return json.Marshal(m)
}

// Type returns the output_type field.
func (o Output) Type() string {
	t, _ := o["output_type"].(string)
	return t
}

// Text returns the human-readable text of the output: the stream text, the
// text/plain representation, or the joined traceback of an error output.
func (o Output) Text() string {
	switch o.Type() {
	case "stream":
		return joinMultiline(o["text"])
	case "execute_result", "display_data":
		data, _ := o["data"].(map[string]any)
		return joinMultiline(data["text/plain"])
	case "error":
		return joinMultiline(o["traceback"])
	}
	return ""
}

func joinMultiline(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		var sb strings.Builder
		for _, line := range t {
			if s, ok := line.(string); ok {
				sb.WriteString(s)
			}
		}
		return sb.String()
	case []string:
		return strings.Join(t, "")
	}
	return ""
}

// UnmarshalJSON accepts both the string and the list-of-lines encodings.
func (m *MultilineString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = MultilineString(s)
		return nil
	}

	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("multiline string must be a string or a list of strings")
	}
	*m = MultilineString(strings.Join(lines, ""))
	return nil
}

// MarshalJSON writes the list-of-lines encoding, each line keeping its
// trailing newline.
func (m MultilineString) MarshalJSON() ([]byte, error) {
	return json.Marshal(splitLines(string(m)))
}

func splitLines(s string) []string {
	lines := []string{}
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}
