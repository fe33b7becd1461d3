package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/imagestudio/internal/client/models"
)

// consolePresenter prints session updates as one-line toasts. Calls may
// arrive from the history sync goroutine, so writes are serialized.
type consolePresenter struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsolePresenter(out io.Writer) *consolePresenter {
	return &consolePresenter{out: out}
}

func (p *consolePresenter) EditChanged(e *models.Edit) {
	if e == nil {
		p.println("Edit cleared")
		return
	}
	p.println(fmt.Sprintf("Edit %s: %s (%s)", shortID(e.ID), e.Status, e.Feature))
}

func (p *consolePresenter) BusyChanged(busy bool) {
	if busy {
		p.println("⏳ Generating...")
	}
}

func (p *consolePresenter) Notify(n models.Notification) {
	mark := "✔"
	if n.Kind == models.NotificationError {
		mark = "✖"
	}
	p.println(mark + " " + n.Message)
}

func (p *consolePresenter) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
