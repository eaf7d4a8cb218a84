package playback

import "errors"

var (
	// ErrSourceUnavailable is returned when no candidate passed verification.
	ErrSourceUnavailable = errors.New("no stream source available")

	// ErrSuperseded is returned to a resolve that lost to a newer request or a stop.
	ErrSuperseded = errors.New("resolve superseded by a newer request")

	// ErrNoSession is returned by controls that need an active session.
	ErrNoSession = errors.New("no active playback session")
)
