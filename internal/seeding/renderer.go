package seeding

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const barWidth = 30

// Renderer renders seeding events to the console as a single live line.
type Renderer struct {
	state  *ProgressState
	render *RenderState

	area *pterm.AreaPrinter
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewRenderer creates a renderer instance.
func NewRenderer() *Renderer {
	return &Renderer{state: NewProgressState(), render: &RenderState{}}
}

// Start opens the live area and animates it until Stop.
func (r *Renderer) Start() error {
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		return err
	}
	cursor.Hide()
	r.area = area
	r.stop = make(chan struct{})
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				r.area.Update(r.render.FormatLine(r.Line(r.render.IncrementFrame())))
			case <-r.stop:
				return
			}
		}
	}()
	return nil
}

// Stop ends the animation and prints the final line.
func (r *Renderer) Stop() {
	if r.area == nil {
		return
	}
	close(r.stop)
	r.wg.Wait()
	r.area.Stop()
	r.area = nil
	cursor.Show()

	s := r.state.Snapshot()
	switch {
	case s.Failure != "":
		pterm.Error.Printfln("Seeding %s rolled back: %s", s.Table, s.Failure)
	case s.Committed:
		pterm.Success.Printfln("Seeded %d rows into %s", s.Done, s.Table)
	}
}

// Render processes a single event. Safe to call from the seeding goroutine.
func (r *Renderer) Render(ev Event) {
	r.state.Apply(ev)
}

// State exposes the tracked progress.
func (r *Renderer) State() *ProgressState { return r.state }

// Line formats the current progress, e.g. "⠙ students ▕██████░░░░▏ 40/100".
func (r *Renderer) Line(frame int) string {
	s := r.state.Snapshot()
	table := s.Table
	if table == "" {
		table = "students"
	}
	if s.Total == 0 {
		return fmt.Sprintf("%s %s preparing", spinnerFrames[frame%len(spinnerFrames)], table)
	}
	filled := s.Done * barWidth / s.Total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("%s %s ▕%s▏ %d/%d", spinnerFrames[frame%len(spinnerFrames)], table, bar, s.Done, s.Total)
}
