package trace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMarshalJSON_FixedFieldOrder(t *testing.T) {
	tr := ExecutionTrace{
		Output: "out.svg",
		Events: []Event{
			{Kind: EventStageStarted, Stage: "typeset", Path: "/tmp/x/out.svg.tex"},
			{Kind: EventStageFailed, Reason: "ExternalTool", Path: "latex", Stage: "typeset"},
		},
	}
	b, err := tr.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	expected := `{"output":"out.svg","events":[` +
		`{"kind":"StageStarted","stage":"typeset","path":"/tmp/x/out.svg.tex"},` +
		`{"kind":"StageFailed","stage":"typeset","path":"latex","reason":"ExternalTool"}]}`
	if string(b) != expected {
		t.Fatalf("unexpected bytes\nexpected=%s\nactual  =%s", expected, string(b))
	}
}

func TestMarshalJSON_PreservesInsertionOrder(t *testing.T) {
	tr := ExecutionTrace{
		Output: "o",
		Events: []Event{
			{Kind: EventStageCompleted, Stage: "write-output"},
			{Kind: EventStageCompleted, Stage: "cleanup"},
		},
	}
	b, err := tr.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	expected := `{"output":"o","events":[{"kind":"StageCompleted","stage":"write-output"},{"kind":"StageCompleted","stage":"cleanup"}]}`
	if string(b) != expected {
		t.Fatalf("events were reordered\nexpected=%s\nactual  =%s", expected, string(b))
	}
}

func TestValidate_RejectsMissingFields(t *testing.T) {
	cases := map[string]ExecutionTrace{
		"no output":       {Events: []Event{{Kind: EventStageStarted, Stage: "typeset"}}},
		"no kind":         {Output: "o", Events: []Event{{Stage: "typeset"}}},
		"no stage":        {Output: "o", Events: []Event{{Kind: EventStageStarted}}},
		"reason on start": {Output: "o", Events: []Event{{Kind: EventStageStarted, Stage: "typeset", Reason: "ExternalTool"}}},
	}
	for name, tr := range cases {
		if err := tr.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestRecorder_StagesAndFailure(t *testing.T) {
	r := NewRecorder()
	r.Record(Event{Kind: EventStageStarted, Stage: "write-document"})
	r.Record(Event{Kind: EventStageCompleted, Stage: "write-document"})
	r.Record(Event{Kind: EventStageStarted, Stage: "typeset"})
	r.Record(Event{Kind: EventStageFailed, Stage: "typeset", Reason: "ExternalTool"})

	tr := r.Trace("out")
	if got := tr.Stages(); len(got) != 1 || got[0] != "write-document" {
		t.Fatalf("unexpected completed stages: %v", got)
	}
	failed, ok := tr.Failed()
	if !ok || failed.Stage != "typeset" || failed.Reason != "ExternalTool" {
		t.Fatalf("unexpected failure event: %#v (ok=%v)", failed, ok)
	}

	// The trace must not alias the recorder's storage.
	r.Record(Event{Kind: EventStageStarted, Stage: "convert"})
	if len(tr.Events) != 4 {
		t.Fatalf("trace changed after further recording: %d events", len(tr.Events))
	}
}

type panicSink struct{}

func (panicSink) Record(Event) { panic("boom") }

func TestSafeRecord_SwallowsPanics(t *testing.T) {
	SafeRecord(panicSink{}, Event{Kind: EventStageStarted, Stage: "typeset"})
	SafeRecord(nil, Event{Kind: EventStageStarted, Stage: "typeset"})
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")
	tr := ExecutionTrace{Output: "o", Events: []Event{{Kind: EventStageCompleted, Stage: "cleanup"}}}
	if err := tr.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	expected := `{"output":"o","events":[{"kind":"StageCompleted","stage":"cleanup"}]}` + "\n"
	if string(b) != expected {
		t.Fatalf("unexpected file contents: %q", string(b))
	}

	if err := (ExecutionTrace{}).WriteFile(path); err == nil {
		t.Fatalf("expected error for invalid trace")
	}
}
