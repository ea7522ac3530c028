package seeding

import (
	"strings"
	"testing"
)

func TestProgressStateApply(t *testing.T) {
	ps := NewProgressState()
	ps.Apply(Event{Type: EventSchemaReady, Table: "students", Total: 100})
	ps.Apply(Event{Type: EventProgress, Done: 40, Total: 100})

	got := ps.Snapshot()
	if got.Table != "students" || got.Done != 40 || got.Total != 100 {
		t.Fatalf("Snapshot() = %+v", got)
	}
	if ps.IsFinished() {
		t.Error("run should not be finished yet")
	}

	ps.Apply(Event{Type: EventRolledBack})
	if got := ps.Snapshot(); got.Failure != "rolled back" || !ps.IsFinished() {
		t.Errorf("Snapshot() = %+v", got)
	}
}

func TestRendererLine(t *testing.T) {
	r := NewRenderer()
	if got := r.Line(0); !strings.HasSuffix(got, "students preparing") {
		t.Errorf("Line() = %q", got)
	}

	r.Render(Event{Type: EventSchemaReady, Table: "students", Total: 100})
	r.Render(Event{Type: EventProgress, Done: 50, Total: 100})
	got := r.Line(1)
	if !strings.Contains(got, strings.Repeat("█", 15)+strings.Repeat("░", 15)) || !strings.HasSuffix(got, "50/100") {
		t.Errorf("Line() = %q", got)
	}
}

func TestFormatLinePadsToWidest(t *testing.T) {
	rs := &RenderState{}
	rs.FormatLine("long line")
	if got := rs.FormatLine("short"); got != "short    " {
		t.Errorf("FormatLine() = %q", got)
	}
}
