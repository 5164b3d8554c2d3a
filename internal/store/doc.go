// Package store provides the observable state container shared by every
// console component.
//
// A [Store] holds a single value-typed state. Readers take copies with
// [Store.Get]; writers replace the state through [Store.Set] or
// [Store.Update], after which every registered listener is invoked
// synchronously with the new state. Two delivery styles are offered:
//
//   - [Store.Subscribe]: callback listeners, invoked in registration order
//   - [Store.Watch]: buffered channel views for streaming transports (SSE,
//     WebSocket). Sends are non-blocking, so a slow reader misses updates
//     rather than stalling writers.
//
// Mutations are serialized. A listener always observes the state produced
// by the mutation that triggered it, and listeners must not mutate the
// store that is notifying them from inside the callback.
package store
