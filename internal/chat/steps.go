package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"

	"sqlchat/cli/internal/terminal"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// maxStepLines is how many recent step lines stay visible.
const maxStepLines = 6

// AreaView animates a spinner above the agent's latest steps in a pterm
// area that is removed when the turn ends. Verbose keeps the steps printed.
type AreaView struct {
	Verbose bool

	mu    sync.Mutex
	area  *pterm.AreaPrinter
	lines []string
	frame int
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewAreaView starts the spinner immediately.
func NewAreaView(verbose bool) *AreaView {
	v := &AreaView{Verbose: verbose, stop: make(chan struct{})}
	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return v
	}
	v.area = area
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				v.mu.Lock()
				v.frame++
				v.redraw()
				v.mu.Unlock()
			case <-v.stop:
				return
			}
		}
	}()
	return v
}

// OnStep records one step and redraws.
func (v *AreaView) OnStep(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, l := range strings.Split(strings.TrimSpace(text), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			v.lines = append(v.lines, l)
		}
	}
	v.redraw()
}

// Close removes the area and restores the cursor.
func (v *AreaView) Close() {
	if v.area == nil {
		return
	}
	close(v.stop)
	v.wg.Wait()
	v.mu.Lock()
	v.area.Stop()
	v.area = nil
	lines := v.lines
	v.mu.Unlock()
	cursor.Show()
	if v.Verbose {
		for _, l := range lines {
			fmt.Println(pterm.Gray(l))
		}
	}
}

func (v *AreaView) redraw() {
	if v.area == nil {
		return
	}
	v.area.Update(v.render(terminal.Width()))
}

func (v *AreaView) render(width int) string {
	var b strings.Builder
	b.WriteString(pterm.Cyan(spinnerFrames[v.frame%len(spinnerFrames)]) + " Thinking")
	start := 0
	if len(v.lines) > maxStepLines {
		start = len(v.lines) - maxStepLines
	}
	for _, l := range v.lines[start:] {
		b.WriteString("\n  " + pterm.Gray(truncate(l, width-4)))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
