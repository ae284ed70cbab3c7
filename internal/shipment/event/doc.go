// Package event defines the canonical event envelope and catalogs used by
// the shipment lifecycle write path.
//
// Events are immutable business facts: each one records a single lifecycle
// transition, the role that emitted it, and the payload attached at emission
// time. Normalization enforces envelope validity before persistence assigns
// sequence and integrity fields.
//
// A stable event contract is the foundation for replay, projection
// correctness, and audit verification over the full log.
package event
