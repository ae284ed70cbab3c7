package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	apperrors "github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/platform/errors"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/event"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/storage"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/storage/jsonl"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	store, err := jsonl.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return New(store)
}

// advance drives a shipment through the listed transitions, failing the test
// on any rejection.
func advance(t *testing.T, eng *Engine, shipmentID string, steps []struct {
	Type event.Type
	Role event.Role
}) {
	t.Helper()
	for _, step := range steps {
		if _, err := eng.Transition(context.Background(), shipmentID, step.Type, step.Role, nil); err != nil {
			t.Fatalf("transition %s as %s: %v", step.Type, step.Role, err)
		}
	}
}

var happyPath = []struct {
	Type event.Type
	Role event.Role
}{
	{event.TypeManagerApproved, event.RoleSenderManager},
	{event.TypeSupervisorApproved, event.RoleSenderSupervisor},
	{event.TypeDispatched, event.RoleSystem},
	{event.TypeReceiverAcknowledged, event.RoleReceiverManager},
	{event.TypeWarehouseIntakeStarted, event.RoleWarehouseManager},
	{event.TypeOutForDelivery, event.RoleWarehouseManager},
	{event.TypeDeliveryConfirmed, event.RoleCustomer},
	{event.TypeLifecycleClosed, event.RoleSystem},
}

func TestCreateShipmentAssignsSequentialIDs(t *testing.T) {
	eng := newTestEngine(t)

	first, err := eng.CreateShipment(context.Background(), map[string]string{"origin": "Pune"})
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	if first.ShipmentID != "SHP-0000000001" {
		t.Fatalf("shipment id = %q, want SHP-0000000001", first.ShipmentID)
	}
	if first.CurrentState != event.StateCreated {
		t.Fatalf("state = %s, want %s", first.CurrentState, event.StateCreated)
	}
	if first.EventCount != 1 {
		t.Fatalf("event count = %d, want 1", first.EventCount)
	}

	second, err := eng.CreateShipment(context.Background(), nil)
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	if second.ShipmentID != "SHP-0000000002" {
		t.Fatalf("shipment id = %q, want SHP-0000000002", second.ShipmentID)
	}
}

func TestWritePathStampsGeneratedEventIDs(t *testing.T) {
	store, err := jsonl.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	eng := New(store)

	proj, err := eng.CreateShipment(context.Background(), nil)
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	if _, err := eng.Transition(context.Background(), proj.ShipmentID, event.TypeManagerApproved, event.RoleSenderManager, nil); err != nil {
		t.Fatalf("transition: %v", err)
	}

	events, err := store.ListEvents(context.Background(), proj.ShipmentID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	seen := map[string]bool{}
	for _, evt := range events {
		if len(evt.EventID) != 26 {
			t.Fatalf("event id %q length = %d, want 26", evt.EventID, len(evt.EventID))
		}
		if seen[evt.EventID] {
			t.Fatalf("duplicate event id %q", evt.EventID)
		}
		seen[evt.EventID] = true
	}
}

func TestFullLifecycleToClosure(t *testing.T) {
	eng := newTestEngine(t)

	created, err := eng.CreateShipment(context.Background(), nil)
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	advance(t, eng, created.ShipmentID, happyPath)

	final, err := eng.GetShipment(context.Background(), created.ShipmentID)
	if err != nil {
		t.Fatalf("get shipment: %v", err)
	}
	if final.CurrentState != event.StateLifecycleClosed {
		t.Fatalf("state = %s, want %s", final.CurrentState, event.StateLifecycleClosed)
	}
	if !final.IsClosed() {
		t.Fatal("expected shipment to be closed")
	}
	if final.EventCount != uint64(len(happyPath))+1 {
		t.Fatalf("event count = %d, want %d", final.EventCount, len(happyPath)+1)
	}
}

func TestHoldAndReleaseCycle(t *testing.T) {
	eng := newTestEngine(t)

	created, err := eng.CreateShipment(context.Background(), nil)
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	advance(t, eng, created.ShipmentID, []struct {
		Type event.Type
		Role event.Role
	}{
		{event.TypeManagerOnHold, event.RoleSenderManager},
		{event.TypeHoldReleased, event.RoleSenderManager},
		{event.TypeManagerApproved, event.RoleSenderManager},
	})

	proj, err := eng.GetShipment(context.Background(), created.ShipmentID)
	if err != nil {
		t.Fatalf("get shipment: %v", err)
	}
	if proj.CurrentState != event.StateManagerApproved {
		t.Fatalf("state = %s, want %s", proj.CurrentState, event.StateManagerApproved)
	}

	// Approval is not repeatable from the approved state.
	_, err = eng.Transition(context.Background(), created.ShipmentID, event.TypeManagerApproved, event.RoleSenderManager, nil)
	if !errors.Is(err, apperrors.New(apperrors.CodeInvalidTransition, "")) {
		t.Fatalf("error = %v, want code %s", err, apperrors.CodeInvalidTransition)
	}
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	eng := newTestEngine(t)

	created, err := eng.CreateShipment(context.Background(), nil)
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}

	_, err = eng.Transition(context.Background(), created.ShipmentID, event.TypeDispatched, event.RoleSystem, nil)
	if !errors.Is(err, apperrors.New(apperrors.CodeInvalidTransition, "")) {
		t.Fatalf("error = %v, want code %s", err, apperrors.CodeInvalidTransition)
	}
}

func TestTransitionRejectsWrongRole(t *testing.T) {
	eng := newTestEngine(t)

	created, err := eng.CreateShipment(context.Background(), nil)
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}

	// The edge exists, the role does not own it.
	_, err = eng.Transition(context.Background(), created.ShipmentID, event.TypeManagerApproved, event.RoleCustomer, nil)
	if !errors.Is(err, apperrors.New(apperrors.CodeUnauthorized, "")) {
		t.Fatalf("error = %v, want code %s", err, apperrors.CodeUnauthorized)
	}
}

func TestGraphCheckedBeforeAuthority(t *testing.T) {
	eng := newTestEngine(t)

	created, err := eng.CreateShipment(context.Background(), nil)
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}

	// Both checks would fail here; the impossible edge wins.
	_, err = eng.Transition(context.Background(), created.ShipmentID, event.TypeDeliveryConfirmed, event.RoleCustomer, nil)
	if !errors.Is(err, apperrors.New(apperrors.CodeInvalidTransition, "")) {
		t.Fatalf("error = %v, want code %s", err, apperrors.CodeInvalidTransition)
	}
}

func TestClosedShipmentRejectsEverything(t *testing.T) {
	eng := newTestEngine(t)

	created, err := eng.CreateShipment(context.Background(), nil)
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	advance(t, eng, created.ShipmentID, happyPath)

	for _, eventType := range event.Types() {
		for _, role := range []event.Role{event.RoleSender, event.RoleSenderManager, event.RoleSystem, event.RoleCustomer} {
			_, err := eng.Transition(context.Background(), created.ShipmentID, eventType, role, nil)
			if !errors.Is(err, apperrors.New(apperrors.CodeInvalidTransition, "")) {
				t.Fatalf("%s as %s: error = %v, want code %s", eventType, role, err, apperrors.CodeInvalidTransition)
			}
		}
	}
}

func TestGetShipmentUnknownID(t *testing.T) {
	eng := newTestEngine(t)

	_, err := eng.GetShipment(context.Background(), "SHP-0000009999")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}

	_, err = eng.GetShipment(context.Background(), "")
	if !errors.Is(err, apperrors.New(apperrors.CodeShipmentIDRequired, "")) {
		t.Fatalf("error = %v, want code %s", err, apperrors.CodeShipmentIDRequired)
	}
}

func TestTransitionRejectsUnknownTypeAndRole(t *testing.T) {
	eng := newTestEngine(t)

	created, err := eng.CreateShipment(context.Background(), nil)
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}

	_, err = eng.Transition(context.Background(), created.ShipmentID, event.Type("TELEPORTED"), event.RoleSystem, nil)
	if !errors.Is(err, apperrors.New(apperrors.CodeEventTypeInvalid, "")) {
		t.Fatalf("error = %v, want code %s", err, apperrors.CodeEventTypeInvalid)
	}

	_, err = eng.Transition(context.Background(), created.ShipmentID, event.TypeManagerApproved, event.Role("INTERN"), nil)
	if !errors.Is(err, apperrors.New(apperrors.CodeEventRoleInvalid, "")) {
		t.Fatalf("error = %v, want code %s", err, apperrors.CodeEventRoleInvalid)
	}
}

func TestShipmentsByState(t *testing.T) {
	eng := newTestEngine(t)

	for i := 0; i < 3; i++ {
		if _, err := eng.CreateShipment(context.Background(), nil); err != nil {
			t.Fatalf("create shipment: %v", err)
		}
	}
	advance(t, eng, "SHP-0000000002", []struct {
		Type event.Type
		Role event.Role
	}{{event.TypeManagerApproved, event.RoleSenderManager}})

	created, err := eng.ShipmentsByState(context.Background(), event.StateCreated)
	if err != nil {
		t.Fatalf("shipments by state: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created shipments = %d, want 2", len(created))
	}
	if created[0].ShipmentID != "SHP-0000000001" || created[1].ShipmentID != "SHP-0000000003" {
		t.Fatalf("ids = %s, %s, want SHP-0000000001, SHP-0000000003", created[0].ShipmentID, created[1].ShipmentID)
	}

	approved, err := eng.ShipmentsByState(context.Background(), event.StateManagerApproved)
	if err != nil {
		t.Fatalf("shipments by state: %v", err)
	}
	if len(approved) != 1 || approved[0].ShipmentID != "SHP-0000000002" {
		t.Fatalf("approved = %v, want just SHP-0000000002", approved)
	}
}

func TestRacingTransitionsExactlyOneWins(t *testing.T) {
	eng := newTestEngine(t)

	created, err := eng.CreateShipment(context.Background(), nil)
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}

	// Approve and hold both leave CREATED, so at most one can land.
	const racers = 8
	var wg sync.WaitGroup
	results := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			eventType := event.TypeManagerApproved
			if i%2 == 1 {
				eventType = event.TypeManagerOnHold
			}
			_, err := eng.Transition(context.Background(), created.ShipmentID, eventType, event.RoleSenderManager, nil)
			results[i] = err
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		conflict := errors.Is(err, storage.ErrConcurrentConflict)
		rejected := errors.Is(err, apperrors.New(apperrors.CodeInvalidTransition, ""))
		if !conflict && !rejected {
			t.Fatalf("unexpected loss reason: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}

	proj, err := eng.GetShipment(context.Background(), created.ShipmentID)
	if err != nil {
		t.Fatalf("get shipment: %v", err)
	}
	if proj.EventCount != 2 {
		t.Fatalf("event count = %d, want 2", proj.EventCount)
	}
}

func TestConcurrentCreatesAreUnique(t *testing.T) {
	eng := newTestEngine(t)

	const workers = 50
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			proj, err := eng.CreateShipment(context.Background(), nil)
			if err != nil {
				t.Errorf("create shipment: %v", err)
				return
			}
			ids[i] = proj.ShipmentID
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, workers)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate shipment id %q", id)
		}
		seen[id] = true
	}
}

func TestAuditReportAfterActivity(t *testing.T) {
	eng := newTestEngine(t)

	closedShipment, err := eng.CreateShipment(context.Background(), nil)
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	advance(t, eng, closedShipment.ShipmentID, happyPath)
	if _, err := eng.CreateShipment(context.Background(), nil); err != nil {
		t.Fatalf("create shipment: %v", err)
	}

	report, err := eng.VerifyIntegrity(context.Background())
	if err != nil {
		t.Fatalf("verify integrity: %v", err)
	}
	if !report.OK() {
		t.Fatalf("integrity findings: %+v", report.Findings)
	}

	summary, err := eng.AuditReport(context.Background())
	if err != nil {
		t.Fatalf("audit report: %v", err)
	}
	if summary.Shipments != 2 {
		t.Fatalf("shipments = %d, want 2", summary.Shipments)
	}
	if summary.Closed != 1 {
		t.Fatalf("closed = %d, want 1", summary.Closed)
	}
	if !summary.IntegrityOK {
		t.Fatal("expected integrity ok")
	}
	if summary.ByState[event.StateLifecycleClosed] != 1 || summary.ByState[event.StateCreated] != 1 {
		t.Fatalf("by state = %v", summary.ByState)
	}
}
