package scanner

import (
	"fmt"
	"io"
	"strings"
)

const barWidth = 50

// BarPrinter returns a Progress callback rendering a carriage-return
// rewritten bar. With an unknown total (failed pre-pass) it falls back
// to a plain processed count.
func BarPrinter(w io.Writer) func(done, total int) {
	return func(done, total int) {
		if total <= 0 {
			fmt.Fprintf(w, "\rProgress: %d files processed", done)
			return
		}
		if done > total {
			done = total
		}
		filled := done * barWidth / total
		percent := float64(done) / float64(total) * 100
		fmt.Fprintf(w, "\rProgress: |%s%s| %.1f%% Complete",
			strings.Repeat("#", filled), strings.Repeat("-", barWidth-filled), percent)
		if done == total {
			fmt.Fprintln(w)
		}
	}
}
