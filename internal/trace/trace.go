// Package trace records the ordered stage transitions of a conversion run.
package trace

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// EventKind is the stable discriminator for Event. The string values are
// part of the JSON encoding; do not rename.
type EventKind string

const (
	EventStageStarted   EventKind = "StageStarted"
	EventStageCompleted EventKind = "StageCompleted"
	EventStageFailed    EventKind = "StageFailed"
)

// Event is a single stage transition.
//
// Events carry no timestamps and no error text; failures are reduced to a
// stable Reason.
type Event struct {
	Kind EventKind

	// Stage is the pipeline stage this event refers to. Required.
	Stage string

	// Path is the artifact the stage operated on.
	Path string

	// Reason is a stable failure class (e.g. "ExternalTool"). Only set on
	// EventStageFailed.
	Reason string
}

// ExecutionTrace is the ordered record of one run.
//
// Unlike a scheduler trace, events are not re-sorted: the pipeline is
// strictly sequential and insertion order is the execution order.
type ExecutionTrace struct {
	Output string
	Events []Event
}

// Validate checks basic invariants and returns a descriptive error.
func (t *ExecutionTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.Output == "" {
		return errors.New("output is required")
	}
	for i, e := range t.Events {
		if e.Kind == "" {
			return errors.Errorf("events[%d].kind is required", i)
		}
		if e.Stage == "" {
			return errors.Errorf("events[%d].stage is required", i)
		}
		if e.Reason != "" && e.Kind != EventStageFailed {
			return errors.Errorf("events[%d].reason is only allowed on %s", i, EventStageFailed)
		}
	}
	return nil
}

// Stages returns the stages that completed, in order.
func (t ExecutionTrace) Stages() []string {
	var out []string
	for _, e := range t.Events {
		if e.Kind == EventStageCompleted {
			out = append(out, e.Stage)
		}
	}
	return out
}

// Failed returns the failure event, if any.
func (t ExecutionTrace) Failed() (Event, bool) {
	for _, e := range t.Events {
		if e.Kind == EventStageFailed {
			return e, true
		}
	}
	return Event{}, false
}

// WriteFile validates the trace and writes its JSON encoding to path.
func (t ExecutionTrace) WriteFile(path string) error {
	if err := t.Validate(); err != nil {
		return errors.Wrap(err, "invalid trace")
	}
	b, err := json.Marshal(t)
	if err != nil {
		return errors.Wrap(err, "encode trace")
	}
	b = append(b, '\n')
	return errors.Wrapf(os.WriteFile(path, b, 0o644), "write trace %s", path)
}

// MarshalJSON fixes field order.
func (t ExecutionTrace) MarshalJSON() ([]byte, error) {
	if t.Output == "" {
		return nil, errors.New("output is required")
	}
	var buf bytes.Buffer
	buf.WriteString(`{"output":`)
	ob, _ := json.Marshal(t.Output)
	buf.Write(ob)

	buf.WriteString(`,"events":[`)
	for i := range t.Events {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := json.Marshal(t.Events[i])
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// MarshalJSON fixes field order and omits empty optional fields.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Kind == "" {
		return nil, errors.New("kind is required")
	}
	var buf bytes.Buffer
	buf.WriteString(`{"kind":`)
	kb, _ := json.Marshal(string(e.Kind))
	buf.Write(kb)

	writeOpt := func(key, val string) {
		if val == "" {
			return
		}
		buf.WriteString(`,"` + key + `":`)
		vb, _ := json.Marshal(val)
		buf.Write(vb)
	}
	writeOpt("stage", e.Stage)
	writeOpt("path", e.Path)
	writeOpt("reason", e.Reason)

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
