package mqtt

import (
	"fmt"
	"sync"
	"time"

	coremqtt "github.com/kilianp07/vpp/core/mqtt"
	"github.com/kilianp07/vpp/core/report"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	Schedules  map[string]*report.Schedule
	FailRuns   map[string]bool
	AckResults map[string]bool
	mu         sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Schedules:  make(map[string]*report.Schedule),
		FailRuns:   make(map[string]bool),
		AckResults: make(map[string]bool),
	}
}

// PublishSchedule records the schedule or returns an error if configured to fail.
func (m *MockPublisher) PublishSchedule(s *report.Schedule) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRuns[s.Run.ID] {
		return "", fmt.Errorf("publish failed")
	}
	m.Schedules[s.Run.ID] = s
	id := fmt.Sprintf("msg-%s", s.Run.ID)
	m.AckResults[id] = true
	return id, nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockPublisher) WaitForAck(messageID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[messageID]
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("%w: %s", coremqtt.ErrUnknownSchedule, messageID)
	}
	return ok, nil
}
