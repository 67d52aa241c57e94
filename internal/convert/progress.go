package convert

import (
	"io"
	"os"

	"golang.org/x/term"
)

// ProgressWriter returns f if it is a terminal, nil otherwise. Progress dots
// only make sense to a human watching.
func ProgressWriter(f *os.File) io.Writer {
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return f
}
