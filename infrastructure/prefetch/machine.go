// Package prefetch observes access patterns per key namespace and issues
// speculative warm fetches for keys that are likely to be requested next.
// Prefetching is a pure optimization: failures are dropped silently and
// nothing here ever blocks a request-serving path.
package prefetch

import (
	"time"

	"github.com/felixgeelhaar/statekit"
)

// Machine states for one observed namespace.
const (
	stateIdle      statekit.StateID = "idle"
	stateObserving statekit.StateID = "observing"
	stateArmed     statekit.StateID = "armed"
	stateFired     statekit.StateID = "fired"
)

// Events driving the namespace machine.
const (
	eventAccess     statekit.EventType = "ACCESS"
	eventFire       statekit.EventType = "FIRE"
	eventReset      statekit.EventType = "RESET"
	eventInvalidate statekit.EventType = "INVALIDATE"
)

// nsContext carries per-namespace observation state through the machine.
type nsContext struct {
	Prefix   string // "org:42:risk:"
	Window   time.Duration
	Trigger  int
	Accesses []time.Time
	LastKey  string
	Now      func() time.Time
}

// accessPayload carries the observed key with an ACCESS event.
type accessPayload struct {
	Key string
	At  time.Time
}

// recordAccess appends the access time and prunes entries older than the
// observation window.
func recordAccess(ctx **nsContext, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	c := *ctx

	payload, ok := event.Payload.(accessPayload)
	if !ok {
		return
	}
	c.LastKey = payload.Key

	cutoff := payload.At.Add(-c.Window)
	kept := c.Accesses[:0]
	for _, at := range c.Accesses {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	c.Accesses = append(kept, payload.At)
}

// clearAccesses resets the observation window.
func clearAccesses(ctx **nsContext, _ statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	(*ctx).Accesses = (*ctx).Accesses[:0]
}

// guardThresholdReached reports whether this access puts the namespace at
// or over the trigger count within the window.
func guardThresholdReached(ctx *nsContext, event statekit.Event) bool {
	if ctx == nil {
		return false
	}
	payload, ok := event.Payload.(accessPayload)
	if !ok {
		return false
	}

	cutoff := payload.At.Add(-ctx.Window)
	recent := 1 // the access carried by this event
	for _, at := range ctx.Accesses {
		if at.After(cutoff) {
			recent++
		}
	}
	return recent >= ctx.Trigger
}

// newNamespaceMachine builds the per-namespace statechart:
// idle -> observing -> armed -> fired -> idle. Invalidation from any
// non-idle state drops back to idle and discards the window.
func newNamespaceMachine() (*statekit.MachineConfig[*nsContext], error) {
	return statekit.NewMachine[*nsContext]("prefetch-namespace").
		WithInitial(stateIdle).
		WithContext(&nsContext{}).
		WithAction("recordAccess", recordAccess).
		WithAction("clearAccesses", clearAccesses).
		WithGuard("thresholdReached", guardThresholdReached).
		State(stateIdle).
			On(eventAccess).Target(stateObserving).Do("recordAccess").
			Done().
		State(stateObserving).
			On(eventAccess).Target(stateArmed).Guard("thresholdReached").Do("recordAccess").
			On(eventAccess).Target(stateObserving).Do("recordAccess").
			On(eventInvalidate).Target(stateIdle).Do("clearAccesses").
			Done().
		State(stateArmed).
			On(eventFire).Target(stateFired).
			On(eventInvalidate).Target(stateIdle).Do("clearAccesses").
			Done().
		State(stateFired).
			On(eventReset).Target(stateIdle).Do("clearAccesses").
			On(eventInvalidate).Target(stateIdle).Do("clearAccesses").
			Done().
		Build()
}
