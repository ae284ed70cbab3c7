package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/authority"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/engine"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/event"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/lifecycle"
)

// maxSteps bounds a single shipment's random walk so the hold and retry
// cycles cannot spin forever.
const maxSteps = 24

var originCities = []string{
	"Mumbai", "Pune", "Delhi", "Chennai", "Kolkata", "Bengaluru", "Hyderabad", "Nagpur",
}

// GeneratorConfig controls synthetic traffic generation.
type GeneratorConfig struct {
	Shipments int
	Workers   int
	Seed      int64
	Verbose   bool
}

// Stats summarizes a seeding run.
type Stats struct {
	Shipments int
	Events    int
	ByState   map[event.State]int
}

// Lines renders the stats as log output.
func (s Stats) Lines() []string {
	lines := []string{
		fmt.Sprintf("seeded %d shipments, %d events", s.Shipments, s.Events),
	}
	states := make([]string, 0, len(s.ByState))
	for state := range s.ByState {
		states = append(states, string(state))
	}
	sort.Strings(states)
	for _, state := range states {
		lines = append(lines, fmt.Sprintf("  %s: %d", state, s.ByState[event.State(state)]))
	}
	return lines
}

// Generator drives randomized legal lifecycles through the engine.
type Generator struct {
	engine *engine.Engine
	config GeneratorConfig

	mu    sync.Mutex
	stats Stats
}

// NewGenerator builds a generator over the provided engine.
func NewGenerator(eng *engine.Engine, cfg GeneratorConfig) *Generator {
	if cfg.Shipments <= 0 {
		cfg.Shipments = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Generator{
		engine: eng,
		config: cfg,
		stats:  Stats{ByState: map[event.State]int{}},
	}
}

// Run generates the configured number of shipments across concurrent workers
// and returns the run summary.
func (g *Generator) Run(ctx context.Context) (Stats, error) {
	jobs := make(chan int)
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(jobs)
		for i := 0; i < g.config.Shipments; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < g.config.Workers; w++ {
		rng := rand.New(rand.NewSource(g.config.Seed + int64(w)))
		group.Go(func() error {
			for range jobs {
				if err := g.seedShipment(ctx, rng); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return Stats{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats, nil
}

func (g *Generator) seedShipment(ctx context.Context, rng *rand.Rand) error {
	payload := map[string]string{
		"origin":      originCities[rng.Intn(len(originCities))],
		"destination": originCities[rng.Intn(len(originCities))],
	}
	proj, err := g.engine.CreateShipment(ctx, payload)
	if err != nil {
		return err
	}
	events := proj.EventCount

	for step := 0; step < maxSteps && !proj.IsClosed(); step++ {
		types := lifecycle.EventTypesFrom(proj.CurrentState)
		if len(types) == 0 {
			break
		}
		eventType := types[rng.Intn(len(types))]
		role, ok := roleFor(proj.CurrentState, eventType)
		if !ok {
			return fmt.Errorf("no role owns %s from %s", eventType, proj.CurrentState)
		}

		proj, err = g.engine.Transition(ctx, proj.ShipmentID, eventType, role, nil)
		if err != nil {
			return err
		}
		events = proj.EventCount
	}

	if g.config.Verbose {
		log.Printf("seeded %s: %d events, final state %s", proj.ShipmentID, events, proj.CurrentState)
	}

	g.mu.Lock()
	g.stats.Shipments++
	g.stats.Events += int(events)
	g.stats.ByState[proj.CurrentState]++
	g.mu.Unlock()
	return nil
}

// roleFor finds the role authorized to emit the event type from the state.
func roleFor(state event.State, eventType event.Type) (event.Role, bool) {
	for _, role := range []event.Role{
		event.RoleSender,
		event.RoleSenderManager,
		event.RoleSenderSupervisor,
		event.RoleSystem,
		event.RoleReceiverManager,
		event.RoleWarehouseManager,
		event.RoleCustomer,
	} {
		if authority.IsPermitted(state, role, eventType) {
			return role, true
		}
	}
	return "", false
}
