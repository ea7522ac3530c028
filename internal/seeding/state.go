package seeding

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// Progress is a point-in-time view of a seeding run.
type Progress struct {
	// Table is the table being seeded
	Table string
	// Done and Total count inserted rows within the batch
	Done  int
	Total int
	// Committed is set once the batch is durable
	Committed bool
	// Failure holds the rollback reason, if any
	Failure string
}

// ProgressState tracks one seeding run as events arrive.
type ProgressState struct {
	p Progress
	// mu protects concurrent access to p
	mu sync.Mutex
}

// NewProgressState creates an empty ProgressState.
func NewProgressState() *ProgressState {
	return &ProgressState{}
}

// Apply folds an event into the state.
func (ps *ProgressState) Apply(ev Event) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	p := &ps.p
	if ev.Table != "" {
		p.Table = ev.Table
	}
	switch ev.Type {
	case EventSchemaReady:
		p.Done, p.Committed, p.Failure = 0, false, ""
		p.Total = ev.Total
	case EventProgress:
		p.Done, p.Total = ev.Done, ev.Total
	case EventCommitted:
		p.Done, p.Total = ev.Done, ev.Total
		p.Committed = true
	case EventRolledBack:
		p.Failure = ev.Message
		if p.Failure == "" {
			p.Failure = "rolled back"
		}
	}
}

// Snapshot returns the current progress.
func (ps *ProgressState) Snapshot() Progress {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.p
}

// IsFinished reports whether the run committed or rolled back.
func (ps *ProgressState) IsFinished() bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.p.Committed || ps.p.Failure != ""
}

// RenderState holds the UI rendering state for the seeding progress display.
// It tracks animation frames and display width.
type RenderState struct {
	// FrameIdx is the current animation frame index for spinners
	FrameIdx int
	// MaxLineLen tracks the maximum line length to prevent flickering
	MaxLineLen int
	// mu protects concurrent access to rendering state
	mu sync.Mutex
}

// IncrementFrame advances the animation frame index and returns it.
func (rs *RenderState) IncrementFrame() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.FrameIdx++
	return rs.FrameIdx
}

// FormatLine pads line to the widest line seen so far to prevent flickering.
func (rs *RenderState) FormatLine(line string) string {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	lineLen := utf8.RuneCountInString(line)
	if lineLen > rs.MaxLineLen {
		rs.MaxLineLen = lineLen
	}
	if pad := rs.MaxLineLen - lineLen; pad > 0 {
		return line + strings.Repeat(" ", pad)
	}
	return line
}
