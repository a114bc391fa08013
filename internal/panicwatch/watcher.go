// Package panicwatch polls a rendezvous file on disk every 5 seconds; its
// presence trips panic mode on the portfolio and risk manager, giving an
// operator a way to halt new order emission without redeploying.
package panicwatch

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

const pollInterval = 5 * time.Second

// PanicActivator is implemented by any component that needs to learn about
// panic mode (the risk manager and the portfolio both do).
type PanicActivator interface {
	ActivatePanic()
}

// Watcher polls Path for existence and fires every registered activator
// the first time it appears.
type Watcher struct {
	path       string
	activators []PanicActivator
	tripped    bool
}

// New constructs a Watcher for the given rendezvous file path.
func New(path string, activators ...PanicActivator) *Watcher {
	return &Watcher{path: path, activators: activators}
}

// Run polls until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	if w.tripped {
		return
	}
	if _, err := os.Stat(w.path); err != nil {
		return
	}

	log.Warn().Str("path", w.path).Msg("panic rendezvous file detected, activating panic mode")
	w.tripped = true
	for _, a := range w.activators {
		a.ActivatePanic()
	}
	if err := os.Remove(w.path); err != nil {
		log.Warn().Err(err).Str("path", w.path).Msg("failed to remove panic rendezvous file")
	}
}
