package main

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"jellymigrate/internal/migrate"
)

// cliProgress renders orchestrator progress as a terminal progress bar. The
// total grows as the orchestrator discovers children.
type cliProgress struct {
	out io.Writer

	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	total int
}

// newProgress returns nil when out is not a terminal so piped output stays
// free of control sequences.
func newProgress(out io.Writer) *cliProgress {
	if !isTerminal(out) {
		return nil
	}
	return &cliProgress{out: out}
}

func (p *cliProgress) Expect(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total += n
	if p.bar == nil {
		p.bar = progressbar.NewOptions(p.total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("migrating"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
		return
	}
	p.bar.ChangeMax(p.total)
}

func (p *cliProgress) Done(res migrate.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	p.bar.Describe(string(res.Kind))
	_ = p.bar.Add(1)
}

// Finish clears the bar before the report is printed.
func (p *cliProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
