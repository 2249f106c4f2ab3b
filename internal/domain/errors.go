package domain

import "errors"

var (
	// ErrAcquisition marks microphone or audio clock setup failures. Fatal to the session.
	ErrAcquisition = errors.New("audio acquisition failed")
	// ErrChannel marks remote- or transport-signaled channel failures.
	ErrChannel = errors.New("channel failure")
	// ErrDecode marks a malformed audio payload. Only the offending chunk is dropped.
	ErrDecode = errors.New("malformed audio payload")
	// ErrDispatch marks an unknown or malformed tool invocation.
	ErrDispatch = errors.New("tool dispatch failed")

	ErrNoActiveSession = errors.New("no active session")
	ErrChannelNotOpen  = errors.New("channel is not open")
	ErrChannelClosed   = errors.New("channel is closed")
	ErrSchedulerClosed = errors.New("playback scheduler is shut down")
)
