package event

import (
	"time"
)

// Type identifies the type of a shipment lifecycle event.
type Type string

// Canonical event catalog. Events represent facts that have occurred,
// not commands or requests.
const (
	// TypeCreated records the registration of a new shipment.
	TypeCreated Type = "CREATED"
	// TypeManagerApproved records sender-manager approval.
	TypeManagerApproved Type = "MANAGER_APPROVED"
	// TypeManagerOnHold records a sender-manager hold.
	TypeManagerOnHold Type = "MANAGER_ON_HOLD"
	// TypeHoldReleased records a hold being released back to the created state.
	TypeHoldReleased Type = "HOLD_RELEASED"
	// TypeSupervisorApproved records sender-supervisor approval.
	TypeSupervisorApproved Type = "SUPERVISOR_APPROVED"
	// TypeDispatched records system dispatch into transit.
	TypeDispatched Type = "DISPATCHED"
	// TypeReceiverAcknowledged records receiver-side acknowledgement.
	TypeReceiverAcknowledged Type = "RECEIVER_ACKNOWLEDGED"
	// TypeWarehouseIntakeStarted records the start of warehouse intake.
	TypeWarehouseIntakeStarted Type = "WAREHOUSE_INTAKE_STARTED"
	// TypeOutForDelivery records handoff to last-mile delivery.
	TypeOutForDelivery Type = "OUT_FOR_DELIVERY"
	// TypeDeliveryConfirmed records customer delivery confirmation.
	TypeDeliveryConfirmed Type = "DELIVERY_CONFIRMED"
	// TypeDeliveryFailed records a failed delivery attempt.
	TypeDeliveryFailed Type = "DELIVERY_FAILED"
	// TypeLifecycleClosed records terminal closure of the shipment.
	TypeLifecycleClosed Type = "LIFECYCLE_CLOSED"
)

// State is a node in the shipment lifecycle graph.
type State string

const (
	// StateInitial is the virtual state a shipment occupies before its first event.
	StateInitial State = ""

	StateCreated              State = "CREATED"
	StateManagerOnHold        State = "MANAGER_ON_HOLD"
	StateManagerApproved      State = "MANAGER_APPROVED"
	StateSupervisorApproved   State = "SUPERVISOR_APPROVED"
	StateInTransit            State = "IN_TRANSIT"
	StateReceiverAcknowledged State = "RECEIVER_ACKNOWLEDGED"
	StateWarehouseIntake      State = "WAREHOUSE_INTAKE"
	StateOutForDelivery       State = "OUT_FOR_DELIVERY"
	StateDeliveryFailed       State = "DELIVERY_FAILED"
	StateDelivered            State = "DELIVERED"
	StateLifecycleClosed      State = "LIFECYCLE_CLOSED"
)

// Role identifies the actor capability that emitted an event.
type Role string

const (
	RoleSender           Role = "SENDER"
	RoleSenderManager    Role = "SENDER_MANAGER"
	RoleSenderSupervisor Role = "SENDER_SUPERVISOR"
	RoleSystem           Role = "SYSTEM"
	RoleReceiverManager  Role = "RECEIVER_MANAGER"
	RoleWarehouseManager Role = "WAREHOUSE_MANAGER"
	RoleCustomer         Role = "CUSTOMER"
)

// SchemaVersion is the envelope version stamped on newly emitted events.
// Older versions remain valid forever; readers never reject by version.
const SchemaVersion = 1

// Event represents an immutable record in the shipment event log.
type Event struct {
	// EventID is the globally unique identifier for this record.
	EventID string
	// ShipmentID is the shipment aggregate this event belongs to.
	ShipmentID string
	// Seq is the event sequence number within the shipment (starts at 1).
	// Assigned by storage on append.
	Seq uint64
	// Type identifies the kind of event.
	Type Type
	// PreviousState is the lifecycle state the shipment held before this event.
	PreviousState State
	// NewState is the lifecycle state the shipment holds after this event.
	NewState State
	// Role identifies the actor capability that emitted the event.
	Role Role
	// Timestamp is when the event occurred (UTC, millisecond precision).
	Timestamp time.Time
	// Payload holds event-specific data merged additively into projections.
	Payload map[string]string
	// SchemaVersion records the envelope version at emission time.
	SchemaVersion int
	// Hash is the content hash of the envelope (SHA-256 truncated to 128-bit).
	// Assigned by storage on append.
	Hash string
	// PrevHash is the chain hash of the predecessor event, empty for seq 1.
	// Assigned by storage on append.
	PrevHash string
	// ChainHash links this event to its predecessor for tamper evidence.
	// Assigned by storage on append.
	ChainHash string
}

var catalog = map[Type]struct{}{
	TypeCreated:                {},
	TypeManagerApproved:        {},
	TypeManagerOnHold:          {},
	TypeHoldReleased:           {},
	TypeSupervisorApproved:     {},
	TypeDispatched:             {},
	TypeReceiverAcknowledged:   {},
	TypeWarehouseIntakeStarted: {},
	TypeOutForDelivery:         {},
	TypeDeliveryConfirmed:      {},
	TypeDeliveryFailed:         {},
	TypeLifecycleClosed:        {},
}

var roles = map[Role]struct{}{
	RoleSender:           {},
	RoleSenderManager:    {},
	RoleSenderSupervisor: {},
	RoleSystem:           {},
	RoleReceiverManager:  {},
	RoleWarehouseManager: {},
	RoleCustomer:         {},
}

var states = map[State]struct{}{
	StateCreated:              {},
	StateManagerOnHold:        {},
	StateManagerApproved:      {},
	StateSupervisorApproved:   {},
	StateInTransit:            {},
	StateReceiverAcknowledged: {},
	StateWarehouseIntake:      {},
	StateOutForDelivery:       {},
	StateDeliveryFailed:       {},
	StateDelivered:            {},
	StateLifecycleClosed:      {},
}

// IsValid reports whether the event type belongs to the canonical catalog.
func (t Type) IsValid() bool {
	_, ok := catalog[t]
	return ok
}

// IsValid reports whether the role belongs to the known role set.
func (r Role) IsValid() bool {
	_, ok := roles[r]
	return ok
}

// IsValid reports whether the state is a known lifecycle state.
// The virtual initial state is not a valid stored state.
func (s State) IsValid() bool {
	_, ok := states[s]
	return ok
}

// IsTerminal reports whether no further events may follow the state.
func (s State) IsTerminal() bool {
	return s == StateLifecycleClosed
}

// Types returns the canonical event catalog in stable order.
func Types() []Type {
	return []Type{
		TypeCreated,
		TypeManagerApproved,
		TypeManagerOnHold,
		TypeHoldReleased,
		TypeSupervisorApproved,
		TypeDispatched,
		TypeReceiverAcknowledged,
		TypeWarehouseIntakeStarted,
		TypeOutForDelivery,
		TypeDeliveryConfirmed,
		TypeDeliveryFailed,
		TypeLifecycleClosed,
	}
}

// States returns all lifecycle states in progression order.
func States() []State {
	return []State{
		StateCreated,
		StateManagerOnHold,
		StateManagerApproved,
		StateSupervisorApproved,
		StateInTransit,
		StateReceiverAcknowledged,
		StateWarehouseIntake,
		StateOutForDelivery,
		StateDeliveryFailed,
		StateDelivered,
		StateLifecycleClosed,
	}
}
