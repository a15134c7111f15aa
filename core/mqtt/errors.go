package mqtt

import "errors"

var (
	// ErrScheduleAckTimeout reports that the plant controller did not
	// acknowledge a published schedule in time.
	ErrScheduleAckTimeout = errors.New("schedule not acknowledged before timeout")
	// ErrUnknownSchedule reports a wait on a schedule message id this
	// publisher never sent.
	ErrUnknownSchedule = errors.New("unknown schedule message")
)
