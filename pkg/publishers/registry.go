package publishers

import (
	"context"
	"fmt"
	"strings"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Builders maps publisher types to their constructors. The set is fixed at
// startup; nothing registers builders at runtime.
type Builders map[string]Builder

// DefaultBuilders covers the supported publisher types.
func DefaultBuilders() Builders {
	return Builders{
		TypeHTTP:  newHTTPPublisher,
		TypeQueue: newQueuePublisher,
	}
}

// Build instantiates one publisher per config entry. The first entry that
// fails or names an unknown type aborts the whole build; a digest fan-out
// with silently missing sinks is worse than failing startup.
func (b Builders) Build(ctx context.Context, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	log = ensureLogger(log)

	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		builder, ok := b[strings.ToLower(strings.TrimSpace(cfg.Type))]
		if !ok {
			return nil, fmt.Errorf("publisher %q has unsupported type %q", cfg.ID, cfg.Type)
		}
		pub, err := builder(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}
