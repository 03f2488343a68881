package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

const barWidth = 30

// Progress prints reindex progress. On a terminal it redraws a single bar; otherwise
// it writes one line per page.
type Progress struct {
	w   io.Writer
	tty bool

	mu   sync.Mutex
	done bool
}

// NewProgress returns a progress printer for w.
func NewProgress(w io.Writer) *Progress {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Progress{w: w, tty: tty}
}

// Start implements indexer.Observer.
func (p *Progress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.tty {
		fmt.Fprintf(p.w, "reindexing %d documents\n", total)
		return
	}
	p.draw(0, total)
}

// Advance implements indexer.Observer.
func (p *Progress) Advance(processed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.tty {
		fmt.Fprintf(p.w, "processed %d/%d\n", processed, total)
		return
	}
	p.draw(processed, total)
}

// Finish ends the bar line on a terminal.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty && !p.done {
		fmt.Fprintln(p.w)
		p.done = true
	}
}

func (p *Progress) draw(processed, total int) {
	fmt.Fprintf(p.w, "\r%s %d/%d", bar(processed, total), processed, total)
}

func bar(processed, total int) string {
	filled := barWidth
	if total > 0 {
		filled = processed * barWidth / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled) + "]"
}
