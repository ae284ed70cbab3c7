package ident

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/storage"
)

type memoryCounterLog struct {
	mu      sync.Mutex
	entries []storage.CounterEntry
	failed  bool
}

func (m *memoryCounterLog) LastCounter(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return 0, nil
	}
	return m.entries[len(m.entries)-1].Counter, nil
}

func (m *memoryCounterLog) AppendCounter(ctx context.Context, entry storage.CounterEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed {
		return errors.New("disk full")
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryCounterLog) Close() error { return nil }

func TestNextIDFormat(t *testing.T) {
	gen := NewGenerator(&memoryCounterLog{})

	id, err := gen.NextID(context.Background())
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id != "SHP-0000000001" {
		t.Fatalf("id = %q, want SHP-0000000001", id)
	}

	id, err = gen.NextID(context.Background())
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id != "SHP-0000000002" {
		t.Fatalf("id = %q, want SHP-0000000002", id)
	}
}

func TestNextIDResumesFromLog(t *testing.T) {
	log := &memoryCounterLog{entries: []storage.CounterEntry{
		{Counter: 41, Action: storage.CounterActionIssued},
	}}
	gen := NewGenerator(log)

	id, err := gen.NextID(context.Background())
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id != "SHP-0000000042" {
		t.Fatalf("id = %q, want SHP-0000000042", id)
	}
}

func TestNextIDLogFailureDoesNotAdvance(t *testing.T) {
	log := &memoryCounterLog{}
	gen := NewGenerator(log)

	if _, err := gen.NextID(context.Background()); err != nil {
		t.Fatalf("next id: %v", err)
	}

	log.mu.Lock()
	log.failed = true
	log.mu.Unlock()
	if _, err := gen.NextID(context.Background()); err == nil {
		t.Fatal("expected error from failed append")
	}

	log.mu.Lock()
	log.failed = false
	log.mu.Unlock()
	id, err := gen.NextID(context.Background())
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id != "SHP-0000000002" {
		t.Fatalf("id = %q, want SHP-0000000002 after failed attempt", id)
	}
}

func TestNextIDConcurrentUnique(t *testing.T) {
	gen := NewGenerator(&memoryCounterLog{})

	const workers = 50
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := gen.NextID(context.Background())
			if err != nil {
				t.Errorf("next id: %v", err)
				return
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	sort.Strings(ids)
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			t.Fatalf("duplicate id %q", ids[i])
		}
	}
	if ids[0] != "SHP-0000000001" || ids[len(ids)-1] != Format(workers) {
		t.Fatalf("ids span %q..%q, want SHP-0000000001..%s", ids[0], ids[len(ids)-1], Format(workers))
	}
}
