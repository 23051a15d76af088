package game

import "errors"

var (
	ErrInvalidParams     = errors.New("invalid game params")
	ErrUnknownActivity   = errors.New("unknown activity")
	ErrWrongActivity     = errors.New("operation not supported by this activity")
	ErrNotStarted        = errors.New("game not started")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAlreadyGraded     = errors.New("current word already graded")
	ErrGameCompleted     = errors.New("game completed")
	ErrNotCompleted      = errors.New("game not completed")
	ErrNoWords           = errors.New("no vocabulary available")
	ErrClosed            = errors.New("game closed")
	ErrCorruptSnapshot   = errors.New("corrupt snapshot")
	ErrSnapshotNotFound  = errors.New("snapshot not found")
)
