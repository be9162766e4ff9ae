// Package metrics records planner activity.
package metrics

// Recorder is the set of measurements taken by the planner, the bus and the surfaces.
type Recorder interface {
	RecordPublish(topic string)
	RecordAutoAssign(assigned, unfilledSlots int)
	RecordAssignment(phase string)
	RecordStoreFailure(op string)
	SetPendingChanges(surface string, n int)
}

// Nop discards every measurement.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) RecordPublish(string)          {}
func (Nop) RecordAutoAssign(int, int)     {}
func (Nop) RecordAssignment(string)       {}
func (Nop) RecordStoreFailure(string)     {}
func (Nop) SetPendingChanges(string, int) {}
