package installer

import (
	"errors"
	"fmt"

	"github.com/oshokin/roguelike-launcher/internal/domain/game"
)

// Kind classifies install failures for the UI.
type Kind string

// Failure kinds.
const (
	KindNetwork       Kind = "network"
	KindMount         Kind = "mount"
	KindMissingBundle Kind = "missing-bundle"
	KindFilesystem    Kind = "filesystem"
	KindBusy          Kind = "busy"
	KindNoBuild       Kind = "no-build"
)

// ErrInstallInProgress rejects a second install of a channel that is already installing.
var ErrInstallInProgress = errors.New("install already in progress")

var (
	// errNoMountPoint is returned when hdiutil output names no volume.
	errNoMountPoint = errors.New("could not find disk image mount point")
	// errNoBundle is returned when the mounted image holds no application.
	errNoBundle = errors.New("could not find .app in mounted image")
	// errAmbiguousBundle is returned when several applications are present.
	errAmbiguousBundle = errors.New("several .app bundles in mounted image")
	// errIncomplete is returned when the body is shorter than announced.
	errIncomplete = errors.New("download incomplete")
	// errGameRunning is returned when the channel game is still open.
	errGameRunning = errors.New("game is running")
	// errUnsafePath is returned for archive entries escaping the target.
	errUnsafePath = errors.New("archive entry escapes destination")
)

// Error is an install failure tagged with its Kind.
type Error struct {
	// Kind classifies the failure.
	Kind Kind
	// Channel is the channel being installed.
	Channel game.Channel
	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("install %s (%s): %v", e.Channel, e.Kind, e.Err)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of an install error, or "" for other errors.
func KindOf(err error) Kind {
	var installErr *Error
	if errors.As(err, &installErr) {
		return installErr.Kind
	}

	return ""
}

func newError(kind Kind, ch game.Channel, err error) *Error {
	return &Error{Kind: kind, Channel: ch, Err: err}
}
