// Package ident issues unique shipment identifiers backed by a durable
// counter log, so identifiers survive restarts without reuse.
package ident

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/platform/errors"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/storage"
)

// Format renders a counter value as a shipment identifier.
func Format(counter uint64) string {
	return fmt.Sprintf("SHP-%010d", counter)
}

// Generator allocates strictly increasing shipment identifiers. Each issued
// identifier is recorded in the counter log before being returned, so a
// crash between issuance and use burns the counter instead of reusing it.
type Generator struct {
	log storage.CounterLog

	mu      sync.Mutex
	counter uint64
	primed  bool
}

// NewGenerator returns a generator backed by the provided counter log.
func NewGenerator(log storage.CounterLog) *Generator {
	return &Generator{log: log}
}

// NextID issues the next shipment identifier and durably records it.
func (g *Generator) NextID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g == nil || g.log == nil {
		return "", apperrors.New(apperrors.CodeStorageFailure, "counter log is not configured")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.primed {
		last, err := g.log.LastCounter(ctx)
		if err != nil {
			return "", err
		}
		g.counter = last
		g.primed = true
	}

	next := g.counter + 1
	entry := storage.CounterEntry{
		Counter:   next,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		Action:    storage.CounterActionIssued,
	}
	if err := g.log.AppendCounter(ctx, entry); err != nil {
		return "", err
	}
	g.counter = next
	return Format(next), nil
}
