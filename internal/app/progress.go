package app

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// progress shows a terminal spinner fed by the traversal's page callback.
// A nil *progress is valid and does nothing.
type progress struct {
	s *spinner.Spinner
}

func newProgress(w io.Writer) *progress {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " fetching start page"
	return &progress{s: s}
}

func (p *progress) start() {
	if p == nil {
		return
	}
	p.s.Start()
}

// update is passed as collect.Options.Progress.
func (p *progress) update(page int) {
	if p == nil {
		return
	}
	p.s.Lock()
	p.s.Suffix = fmt.Sprintf(" followed %d page(s)", page)
	p.s.Unlock()
}

func (p *progress) stop() {
	if p == nil {
		return
	}
	p.s.Stop()
}

