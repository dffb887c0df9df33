// Package events defines the typed orchestration event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - queue.*: acceptance, rejection and eviction decisions of the
//     bounded priority queue, plus queue shutdown.
//   - response.*: reply generation milestones for the in-flight item.
//   - playback.*: speech playback boundaries for the in-flight item.
//   - pipeline.*: terminal per-item outcomes (completed, aborted, skipped).
//   - connection.*: supervised external link state transitions.
//   - lifecycle.*: process-level stop boundaries.
//
// Every event carries the item or link it refers to, so receivers never need
// to correlate by time. Events are emitted inline on the orchestration path
// and handlers should not block.
package events
