// Package limiter provides local and distributed request throttling based
// on a windowed counter with a lockout.
//
// The primary entry point is the Limiter interface:
//
//	dec, err := lim.Consume(ctx, key, limiter.Pages)
//
// The returned Decision reports whether the request is allowed, how many
// consumptions remain in the window, and — on denial — how long the caller
// must wait before the key is usable again.
//
// # Overview
//
// Unlike a refilling token bucket, this limiter counts consumptions inside
// a fixed window and then punishes overruns:
//
//   - Each key gets Points consumptions per Duration-long window.
//   - Exceeding Points inside one window puts the key into a block of
//     BlockDuration; every attempt during the block is denied immediately
//     with the remaining block time.
//   - Once the block lifts, the next consumption starts a fresh window.
//
// The block is the point of the design. A page-traffic policy of 30
// requests per 30 seconds with a 60 second block means an abusive client
// is shut out for a full minute rather than trickled through at the
// average rate, while a well-behaved client never notices the limiter.
//
// # Core Types
//
// Policy defines one named limit:
//
//   - Points: consumptions allowed per window
//   - Duration: window length
//   - BlockDuration: lockout once Points is exceeded
//   - KeyPrefix: namespace, so policies sharing a store never collide
//
// Four policies ship with the package (Pages, Actions, PublicActions,
// ReadOnlyActions), matching the budgets every app in the suite uses. They
// are plain values: hand them to explicitly constructed limiters owned by
// your application container rather than reaching for globals.
//
// # Backends
//
// Two implementations share the Consume API:
//
//   - MemoryLimiter: an in-process backend. State is local to the process,
//     so with N replicas an actor's effective budget is Points×N — fine for
//     soft abuse mitigation, and ideal for tests (inject a manual clock via
//     WithClock and never sleep).
//
//   - RedisLimiter: a distributed backend. A Lua script performs the
//     read/compute/write cycle atomically, enforcing one global budget per
//     key across every instance.
//
// # Concurrency
//
// MemoryLimiter guards its key map with a mutex, making the
// read-check-increment cycle atomic per key. RedisLimiter delegates
// atomicity to Redis script execution.
//
// # Error Policy
//
// Denial is not an error: Consume returns Decision{Allowed: false} with a
// retry delay. Errors mean the caller misused the API (ErrEmptyKey) or the
// backend failed; with RedisLimiter the caller chooses fail-open or
// fail-closed.
//
// # Display Semantics
//
// RetryAfterSeconds rounds a retry delay up to whole seconds and floors at
// 1, guaranteeing the wait a user sees is never shorter than the real one
// and never zero.
package limiter
