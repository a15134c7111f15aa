// Package events defines the optimisation events emitted on the event bus.
//
// Available event types:
//   - GenerationEvent: a search generation completed
//   - RunEvent: a run started, finished or failed
package events
