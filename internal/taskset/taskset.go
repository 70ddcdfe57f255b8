// Package taskset reads task sets from plain text, JSON or YAML and scales
// every value to nanoseconds.
package taskset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fentz26/rtcheck/internal/models"
)

var (
	ErrUnknownFormat = errors.New("unknown task set format")
	ErrSyntax        = errors.New("task set syntax error")
)

// Format names an input encoding.
type Format string

const (
	FormatAuto  Format = "auto"
	FormatPlain Format = "plain"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// DefaultUnit applies to bare numbers.
const DefaultUnit = models.Millisecond

// ParseFormat resolves a format name. The empty string means auto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatPlain, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Detect picks a format from a file extension.
func Detect(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatPlain
}

// Options controls how a task set is read.
type Options struct {
	Format Format
	// Unit scales bare numbers. Zero selects DefaultUnit.
	Unit models.Time
}

func (o Options) unit() models.Time {
	if o.Unit <= 0 {
		return DefaultUnit
	}
	return o.Unit
}

// Load reads a task set file. The path "-" reads standard input, where
// auto detection falls back to plain text.
func Load(path string, opts Options) (models.TaskSet, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading task set: %w", err)
	}
	if opts.Format == "" || opts.Format == FormatAuto {
		opts.Format = Detect(path)
	}
	ts, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ts, nil
}

// Parse decodes data in the given format and validates every task.
func Parse(data []byte, opts Options) (models.TaskSet, error) {
	var (
		ts  models.TaskSet
		err error
	)
	switch opts.Format {
	case FormatPlain, FormatAuto, "":
		ts, err = ParsePlain(bytes.NewReader(data), opts.unit())
	case FormatJSON:
		ts, err = parseDocument(data, opts.unit(), json.Unmarshal)
	case FormatYAML:
		ts, err = parseDocument(data, opts.unit(), yaml.Unmarshal)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
	if err != nil {
		return nil, err
	}
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	return ts, nil
}

// ParsePlain reads one "wcet deadline period" task per line. Values are
// separated by blanks or commas and may carry a unit suffix ("10ms").
// Everything after '#' is a comment.
func ParsePlain(r io.Reader, unit models.Time) (models.TaskSet, error) {
	var ts models.TaskSet
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: line %d: want wcet, deadline and period, got %d fields",
				ErrSyntax, line, len(fields))
		}
		task, err := entry{WCET: value(fields[0]), Deadline: value(fields[1]), Period: value(fields[2])}.task(unit)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ts = append(ts, task)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading task set: %w", err)
	}
	return ts, nil
}

// document is the structured form: either a bare list of tasks or an
// object with an optional unit for bare numbers.
type document struct {
	Unit  string  `json:"unit" yaml:"unit"`
	Tasks []entry `json:"tasks" yaml:"tasks"`
}

type entry struct {
	WCET     value `json:"wcet" yaml:"wcet"`
	Deadline value `json:"deadline" yaml:"deadline"`
	Period   value `json:"period" yaml:"period"`
}

func (e entry) task(unit models.Time) (models.Task, error) {
	var (
		task models.Task
		err  error
	)
	if task.WCET, err = e.WCET.time("wcet", unit); err != nil {
		return task, err
	}
	if task.Deadline, err = e.Deadline.time("deadline", unit); err != nil {
		return task, err
	}
	if task.Period, err = e.Period.time("period", unit); err != nil {
		return task, err
	}
	return task, nil
}

// value is a time written either as a number in the default unit or as a
// string with an optional unit ("1.5 ms").
type value string

func (v value) time(field string, unit models.Time) (models.Time, error) {
	if v == "" {
		return 0, fmt.Errorf("%w: missing %s", ErrSyntax, field)
	}
	t, err := models.ParseTime(string(v), unit)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}

func (v *value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = value(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s is neither a number nor a string", ErrSyntax, data)
	}
	*v = value(n.String())
	return nil
}

func (v *value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected a scalar time", ErrSyntax, node.Line)
	}
	*v = value(node.Value)
	return nil
}

func parseDocument(data []byte, unit models.Time, unmarshal func([]byte, any) error) (models.TaskSet, error) {
	var doc document
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 {
		return nil, nil
	}
	var target any = &doc
	if isList(data) {
		target = &doc.Tasks
	}
	if err := unmarshal(data, target); err != nil {
		if errors.Is(err, ErrSyntax) || errors.Is(err, models.ErrInvalidTime) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if doc.Unit != "" {
		u, err := models.ParseUnit(doc.Unit)
		if err != nil {
			return nil, err
		}
		unit = u
	}

	ts := make(models.TaskSet, 0, len(doc.Tasks))
	for i, e := range doc.Tasks {
		task, err := e.task(unit)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		ts = append(ts, task)
	}
	return ts, nil
}

// isList reports whether the top-level node is a sequence. JSON is a subset
// of YAML, so one probe serves both formats.
func isList(data []byte) bool {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil || len(node.Content) == 0 {
		return false
	}
	return node.Content[0].Kind == yaml.SequenceNode
}

// WritePlain writes ts in the plain format with explicit nanosecond units,
// which Parse reads back unchanged.
func WritePlain(w io.Writer, ts models.TaskSet) error {
	for _, task := range ts {
		if _, err := fmt.Fprintf(w, "%dns %dns %dns\n",
			int64(task.WCET), int64(task.Deadline), int64(task.Period)); err != nil {
			return err
		}
	}
	return nil
}
