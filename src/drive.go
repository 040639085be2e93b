package main

import (
	"sync"
	"time"

	"github.com/heron-ugv/drivectl/src/governor"
)

// DriveCommand is a two-channel normalized effort request.
// Range clamping, if any, is the actuator's concern, not ours.
type DriveCommand struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// Shape advances current one tick toward target, each channel slew-limited
// independently by maxDelta.
func Shape(target, current DriveCommand, maxDelta float64) DriveCommand {
	return DriveCommand{
		Left:  governor.Slew(current.Left, target.Left, maxDelta),
		Right: governor.Slew(current.Right, target.Right, maxDelta),
	}
}

// CommandState is the shared record between the MQTT ingress callback and the
// publish loop. The mutex guarantees target and lastUpdate are observed
// together-or-not-at-all by the loop.
type CommandState struct {
	mu         sync.Mutex
	target     DriveCommand
	current    DriveCommand
	lastUpdate time.Time
}

// NewCommandState returns a state at rest: target = current = {0,0}.
func NewCommandState(now time.Time) *CommandState {
	return &CommandState{lastUpdate: now}
}

// SetTarget overwrites the requested command and stamps its arrival time.
// Last write wins; deliveries arriving faster than the loop drains them are
// intentionally overwritten since only the latest target matters.
func (s *CommandState) SetTarget(cmd DriveCommand, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = cmd
	s.lastUpdate = now
}

// Tick runs one publish-loop step under a single lock: watchdog first, then
// shaping. If the last command is older than timeout (strictly greater;
// exactly at the boundary is still fresh) the target is forced to zero before
// shaping, so the stop itself ramps down rather than cutting out. Returns the
// new current command and whether the watchdog fired.
func (s *CommandState) Tick(now time.Time, timeout time.Duration, maxDelta float64) (DriveCommand, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timedOut := now.Sub(s.lastUpdate) > timeout
	if timedOut {
		s.target = DriveCommand{}
	}
	s.current = Shape(s.target, s.current, maxDelta)
	return s.current, timedOut
}

// Snapshot returns a consistent view of the state for inspection.
func (s *CommandState) Snapshot() (target, current DriveCommand, lastUpdate time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, s.current, s.lastUpdate
}
