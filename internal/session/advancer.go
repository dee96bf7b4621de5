package session

import "time"

// MaxCountdownSeconds caps the countdown shown on the next-episode overlay
const MaxCountdownSeconds = 30

// AdvanceState is the state of the next-episode advancer
type AdvanceState int

const (
	AdvanceIdle AdvanceState = iota
	AdvanceArmed
	// AdvanceAdvancing is entered once the advance fired and holds until Reset
	AdvanceAdvancing
)

func (s AdvanceState) String() string {
	switch s {
	case AdvanceIdle:
		return "idle"
	case AdvanceArmed:
		return "armed"
	case AdvanceAdvancing:
		return "advancing"
	default:
		return "unknown"
	}
}

// NextEpisodeState is what the overlay renders.
// OverlayVisible implies Armed; CountdownSeconds is within [0, MaxCountdownSeconds].
type NextEpisodeState struct {
	Armed            bool
	OverlayVisible   bool
	CountdownSeconds int
}

// Advancer decides when to offer and trigger the next episode from sampled
// playback position. It is not safe for concurrent use; the coordinator
// serializes access.
type Advancer struct {
	threshold time.Duration
	state     AdvanceState
	countdown int
	dismissed bool
}

// NewAdvancer creates an advancer. A zero threshold disables the countdown
// but still advances when playback ends.
func NewAdvancer(threshold time.Duration) *Advancer {
	if threshold < 0 {
		threshold = 0
	}
	return &Advancer{threshold: threshold}
}

// Threshold returns the configured threshold
func (a *Advancer) Threshold() time.Duration {
	return a.threshold
}

// Phase returns the current state
func (a *Advancer) Phase() AdvanceState {
	return a.state
}

// Sample feeds one position/duration reading. Readings without a positive
// position and duration are ignored. An armed advancer stays armed once the
// position reaches the end.
func (a *Advancer) Sample(position, duration time.Duration) NextEpisodeState {
	if a.state == AdvanceAdvancing || position <= 0 || duration <= 0 {
		return a.State()
	}

	remaining := duration - position
	if a.state == AdvanceArmed && remaining <= 0 {
		// Reached the end; the terminal transition decides from here
		a.countdown = 0
		return a.State()
	}
	if a.threshold > 0 && remaining > 0 && remaining <= a.threshold {
		a.state = AdvanceArmed
		a.countdown = clampCountdown(int(remaining / time.Second))
	} else {
		a.toIdle()
	}
	return a.State()
}

// Ended handles the engine's terminal state. It reports whether the
// advance fires; it fires at most once until Reset.
func (a *Advancer) Ended() bool {
	if a.state == AdvanceAdvancing {
		return false
	}
	if a.state == AdvanceArmed || a.threshold == 0 {
		a.fire()
		return true
	}
	return false
}

// AdvanceNow fires the advance immediately, skipping the countdown
func (a *Advancer) AdvanceNow() bool {
	if a.state == AdvanceAdvancing {
		return false
	}
	a.fire()
	return true
}

// DismissOverlay hides the overlay. The advancer stays armed so the end of
// playback still advances.
func (a *Advancer) DismissOverlay() {
	if a.state == AdvanceArmed {
		a.dismissed = true
	}
}

// Reset returns to Idle for a new session or when eligibility is lost
func (a *Advancer) Reset() {
	a.toIdle()
}

// State returns the overlay view of the advancer
func (a *Advancer) State() NextEpisodeState {
	armed := a.state == AdvanceArmed
	s := NextEpisodeState{
		Armed:          armed,
		OverlayVisible: armed && !a.dismissed,
	}
	if armed {
		s.CountdownSeconds = a.countdown
	}
	return s
}

func (a *Advancer) fire() {
	a.state = AdvanceAdvancing
	a.countdown = 0
	a.dismissed = false
}

func (a *Advancer) toIdle() {
	a.state = AdvanceIdle
	a.countdown = 0
	a.dismissed = false
}

func clampCountdown(s int) int {
	if s < 0 {
		return 0
	}
	if s > MaxCountdownSeconds {
		return MaxCountdownSeconds
	}
	return s
}
