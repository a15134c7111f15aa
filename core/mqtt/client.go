package mqtt

import (
	"time"

	"github.com/kilianp07/vpp/core/report"
)

// Publisher sends dispatch schedules to the plant controllers and tracks
// their acknowledgments.
type Publisher interface {
	// PublishSchedule sends s and returns the message identifier used to
	// track the acknowledgment.
	PublishSchedule(s *report.Schedule) (messageID string, err error)

	// WaitForAck waits for an acknowledgment for the provided message
	// identifier or until the timeout expires.
	WaitForAck(messageID string, timeout time.Duration) (bool, error)
}
