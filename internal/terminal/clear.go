// Package terminal provides small helpers for redrawing the interactive prompt.
package terminal

import (
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/term"
)

// Width returns the stdout terminal width, or 80 when unknown.
func Width() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// IsInteractive reports whether stdin and stdout are both terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// ClearPreviousLines erases an echoed prompt of textLength characters, plus
// the empty line the cursor sits on after Enter.
func ClearPreviousLines(w io.Writer, textLength int) {
	linesToClear := linesFor(textLength, Width()) + 1
	for i := 0; i < linesToClear; i++ {
		fmt.Fprint(w, "\r\x1b[2K")
		if i < linesToClear-1 {
			fmt.Fprint(w, "\x1b[1A")
		}
	}
}

// ClearScreen wipes the screen and scrollback and homes the cursor.
func ClearScreen(w io.Writer) {
	fmt.Fprint(w, "\x1b[H\x1b[2J\x1b[3J")
}

func linesFor(textLength, width int) int {
	n := int(math.Ceil(float64(textLength) / float64(width)))
	if n < 1 {
		return 1
	}
	return n
}
