package installer

import "github.com/oshokin/roguelike-launcher/internal/domain/game"

// Stage is a step of the install state machine.
type Stage int

// Install stages in execution order. Failed can follow any of them.
const (
	StageIdle Stage = iota
	StageDownloading
	StageMounting
	StageLocatingBundle
	StageBackingUpUserData
	StageReplacingBundle
	StageRestoringUserData
	StageUnmounting
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageIdle:              "idle",
	StageDownloading:       "downloading",
	StageMounting:          "mounting",
	StageLocatingBundle:    "locating-bundle",
	StageBackingUpUserData: "backing-up-userdata",
	StageReplacingBundle:   "replacing-bundle",
	StageRestoringUserData: "restoring-userdata",
	StageUnmounting:        "unmounting",
	StageDone:              "done",
	StageFailed:            "failed",
}

// String implements fmt.Stringer.
func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}

	return stageNames[s]
}

// Terminal reports whether no further events follow.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Event is one progress message of an install.
type Event struct {
	// Channel is the channel being installed.
	Channel game.Channel
	// Stage is the current step.
	Stage Stage
	// Fraction is download progress in [0, 1], or -1 when unknown.
	Fraction float64
	// Text is a human-readable status line.
	Text string
	// Warning marks non-fatal problems.
	Warning bool
	// Tag is the installed version, set on Done.
	Tag string
	// Err is the failure, set on Failed.
	Err error
}

// Handler receives install events in order.
type Handler func(Event)
