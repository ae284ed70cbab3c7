// Package engine exposes the shipment write and read paths. Commands are
// validated against the lifecycle graph and the authority matrix, then
// appended with an optimistic sequence token so racing writers lose cleanly.
package engine

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/platform/errors"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/platform/id"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/audit"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/authority"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/event"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/ident"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/lifecycle"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/projection"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/storage"
)

const tracerName = "shipment.engine"

// Engine composes identifier issuance, the event store, the lifecycle graph,
// and the authority matrix into the shipment operation set.
type Engine struct {
	store    storage.EventStore
	ids      *ident.Generator
	verifier *audit.Verifier
	tracer   trace.Tracer
}

// New builds an engine over the provided store. The store must also carry
// the counter log used for identifier issuance.
func New(store storage.Store) *Engine {
	return &Engine{
		store:    store,
		ids:      ident.NewGenerator(store),
		verifier: audit.NewVerifier(store),
		tracer:   otel.Tracer(tracerName),
	}
}

// CreateShipment registers a new shipment: issues the next identifier and
// appends the opening event on behalf of the sender.
func (e *Engine) CreateShipment(ctx context.Context, payload map[string]string) (projection.Projection, error) {
	ctx, span := e.tracer.Start(ctx, "CreateShipment")
	defer span.End()

	shipmentID, err := e.ids.NextID(ctx)
	if err != nil {
		return projection.Projection{}, err
	}
	span.SetAttributes(attribute.String("shipment.id", shipmentID))

	eventID, err := id.NewID()
	if err != nil {
		return projection.Projection{}, apperrors.Wrap(apperrors.CodeStorageFailure, "generate event id", err)
	}

	evt := event.Event{
		EventID:       eventID,
		ShipmentID:    shipmentID,
		Type:          event.TypeCreated,
		PreviousState: event.StateInitial,
		NewState:      event.StateCreated,
		Role:          event.RoleSender,
		Payload:       payload,
	}
	if _, err := e.store.AppendEvent(ctx, evt, 0); err != nil {
		return projection.Projection{}, err
	}
	return e.loadProjection(ctx, shipmentID)
}

// Transition applies an event type to a shipment on behalf of a role.
// The lifecycle graph is consulted before the authority matrix, so an
// impossible transition is reported as such even when the role also lacks
// authority.
func (e *Engine) Transition(ctx context.Context, shipmentID string, eventType event.Type, role event.Role, payload map[string]string) (projection.Projection, error) {
	ctx, span := e.tracer.Start(ctx, "Transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("shipment.id", shipmentID),
		attribute.String("shipment.event_type", string(eventType)),
		attribute.String("shipment.role", string(role)),
	)

	if shipmentID == "" {
		return projection.Projection{}, apperrors.New(apperrors.CodeShipmentIDRequired, "shipment id is required")
	}
	if !eventType.IsValid() {
		return projection.Projection{}, apperrors.WithMetadata(apperrors.CodeEventTypeInvalid,
			"unknown event type", map[string]string{"event_type": string(eventType)})
	}
	if !role.IsValid() {
		return projection.Projection{}, apperrors.WithMetadata(apperrors.CodeEventRoleInvalid,
			"unknown role", map[string]string{"role": string(role)})
	}

	current, err := e.loadProjection(ctx, shipmentID)
	if err != nil {
		return projection.Projection{}, err
	}

	newState, ok := lifecycle.Allowed(current.CurrentState, eventType)
	if !ok {
		return projection.Projection{}, apperrors.WithMetadata(apperrors.CodeInvalidTransition,
			fmt.Sprintf("%s is not a legal event from %s", eventType, current.CurrentState),
			map[string]string{
				"shipment_id":   shipmentID,
				"current_state": string(current.CurrentState),
				"event_type":    string(eventType),
			})
	}
	if !authority.IsPermitted(current.CurrentState, role, eventType) {
		return projection.Projection{}, apperrors.WithMetadata(apperrors.CodeUnauthorized,
			fmt.Sprintf("role %s may not emit %s from %s", role, eventType, current.CurrentState),
			map[string]string{
				"shipment_id":   shipmentID,
				"current_state": string(current.CurrentState),
				"event_type":    string(eventType),
				"role":          string(role),
			})
	}

	eventID, err := id.NewID()
	if err != nil {
		return projection.Projection{}, apperrors.Wrap(apperrors.CodeStorageFailure, "generate event id", err)
	}

	evt := event.Event{
		EventID:       eventID,
		ShipmentID:    shipmentID,
		Type:          eventType,
		PreviousState: current.CurrentState,
		NewState:      newState,
		Role:          role,
		Payload:       payload,
	}
	if _, err := e.store.AppendEvent(ctx, evt, current.EventCount); err != nil {
		return projection.Projection{}, err
	}
	return e.loadProjection(ctx, shipmentID)
}

// GetShipment returns the current projection of a shipment.
func (e *Engine) GetShipment(ctx context.Context, shipmentID string) (projection.Projection, error) {
	ctx, span := e.tracer.Start(ctx, "GetShipment")
	defer span.End()

	if shipmentID == "" {
		return projection.Projection{}, apperrors.New(apperrors.CodeShipmentIDRequired, "shipment id is required")
	}
	return e.loadProjection(ctx, shipmentID)
}

// ShipmentsByState returns projections of every shipment currently in the
// given state, ordered by shipment id.
func (e *Engine) ShipmentsByState(ctx context.Context, state event.State) ([]projection.Projection, error) {
	ctx, span := e.tracer.Start(ctx, "ShipmentsByState")
	defer span.End()

	ids, err := e.store.ShipmentIDs(ctx)
	if err != nil {
		return nil, err
	}

	var out []projection.Projection
	for _, shipmentID := range ids {
		proj, err := e.loadProjection(ctx, shipmentID)
		if err != nil {
			return nil, err
		}
		if proj.CurrentState == state {
			out = append(out, proj)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShipmentID < out[j].ShipmentID })
	return out, nil
}

// VerifyIntegrity replays the full log and checks every invariant.
func (e *Engine) VerifyIntegrity(ctx context.Context) (audit.Report, error) {
	ctx, span := e.tracer.Start(ctx, "VerifyIntegrity")
	defer span.End()

	return e.verifier.Verify(ctx)
}

// AuditReport returns log totals together with the integrity outcome.
func (e *Engine) AuditReport(ctx context.Context) (audit.Summary, error) {
	ctx, span := e.tracer.Start(ctx, "AuditReport")
	defer span.End()

	report, err := e.verifier.Verify(ctx)
	if err != nil {
		return audit.Summary{}, err
	}

	summary := audit.Summary{
		Shipments:      report.Shipments,
		Events:         report.EventsChecked,
		ByState:        map[event.State]int{},
		IntegrityOK:    report.OK(),
		Findings:       len(report.Findings),
		CorruptRecords: report.CorruptRecords,
	}

	ids, err := e.store.ShipmentIDs(ctx)
	if err != nil {
		return audit.Summary{}, err
	}
	for _, shipmentID := range ids {
		proj, err := e.loadProjection(ctx, shipmentID)
		if err != nil {
			return audit.Summary{}, err
		}
		summary.ByState[proj.CurrentState]++
		if proj.IsClosed() {
			summary.Closed++
		}
	}
	return summary, nil
}

func (e *Engine) loadProjection(ctx context.Context, shipmentID string) (projection.Projection, error) {
	events, err := e.store.ListEvents(ctx, shipmentID)
	if err != nil {
		return projection.Projection{}, err
	}
	if len(events) == 0 {
		return projection.Projection{}, apperrors.WrapWithMetadata(apperrors.CodeNotFound,
			"shipment has no recorded events",
			map[string]string{"shipment_id": shipmentID}, storage.ErrNotFound)
	}
	return projection.Project(events), nil
}
