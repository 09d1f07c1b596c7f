package lifecycle

import "errors"

var (
	ErrLockNotAcquired = errors.New("scheduling lock not acquired")
	ErrTimeslotMissing = errors.New("timeslot not offered by doctor")
)
