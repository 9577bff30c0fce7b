package alert

import (
	"net/http"

	"github.com/ppiankov/skillgate/internal/redact"
)

// Dispatcher fans out events to matching webhook configurations.
type Dispatcher struct {
	configs []Config
	client  *http.Client
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []Config) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs, client: &http.Client{}}
}

// Dispatch sends the event to all webhooks whose Events list matches the
// event's stage. The reason is credential-masked before it leaves the
// process. Fires goroutines and does not block the caller.
func (d *Dispatcher) Dispatch(event Event) {
	event.Reason = redact.Mask(event.Reason)
	for _, cfg := range d.configs {
		if matches(cfg.Events, event) {
			go d.deliver(cfg, event)
		}
	}
}

func matches(events []string, event Event) bool {
	for _, e := range events {
		if e == event.Stage {
			return true
		}
	}
	return false
}
