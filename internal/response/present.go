package response

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
)

// Render writes a result for the terminal: tables as a boxed grid, anything
// else verbatim.
func Render(w io.Writer, res Result) error {
	if res.Kind != Tabular || res.Table == nil {
		_, err := fmt.Fprintln(w, res.Raw)
		return err
	}
	data := append([][]string{res.Table.Headers}, res.Table.Cells()...)
	out, err := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithData(data).
		Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
