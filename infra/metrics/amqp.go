package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kilianp07/vpp/core/events"
	"github.com/kilianp07/vpp/infra/logger"
)

// amqpChannel is the subset of *amqp.Channel used by AMQPSink.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// runMessage is the JSON body published for every run event.
type runMessage struct {
	RunID       string  `json:"run_id"`
	Scenario    string  `json:"scenario"`
	Status      string  `json:"status"`
	Objective   float64 `json:"objective"`
	Violation   float64 `json:"violation"`
	Feasible    bool    `json:"feasible"`
	Generations int     `json:"generations"`
	Evaluations int     `json:"evaluations"`
	Termination string  `json:"termination,omitempty"`
	DurationMS  int64   `json:"duration_ms"`
	Error       string  `json:"error,omitempty"`
	Time        string  `json:"time"`
}

// AMQPSink publishes run lifecycle events to a durable RabbitMQ queue.
// Generation events are not forwarded.
type AMQPSink struct {
	conn    *amqp.Connection
	ch      amqpChannel
	queue   string
	timeout time.Duration
	log     logger.Logger
}

// NewAMQPSink dials dsn and declares queue.
func NewAMQPSink(dsn, queue string, timeout time.Duration) (*AMQPSink, error) {
	conn, err := amqp.Dial(dsn)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp declare %s: %w", queue, err)
	}
	s := newAMQPSink(ch, queue, timeout)
	s.conn = conn
	return s, nil
}

func newAMQPSink(ch amqpChannel, queue string, timeout time.Duration) *AMQPSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AMQPSink{ch: ch, queue: queue, timeout: timeout, log: logger.New("amqp-sink")}
}

func (s *AMQPSink) RecordGeneration(events.GenerationEvent) error { return nil }

// RecordRun publishes ev as a persistent JSON message.
func (s *AMQPSink) RecordRun(ev events.RunEvent) error {
	body, err := json.Marshal(runMessage{
		RunID:       ev.RunID,
		Scenario:    ev.Scenario,
		Status:      string(ev.Status),
		Objective:   ev.Objective,
		Violation:   ev.Violation,
		Feasible:    ev.Feasible,
		Generations: ev.Generations,
		Evaluations: ev.Evaluations,
		Termination: ev.Termination,
		DurationMS:  ev.Duration.Milliseconds(),
		Error:       ev.Error,
		Time:        ev.Time.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err = s.ch.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.RunID + "/" + string(ev.Status),
		Timestamp:    ev.Time,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish run %s: %w", ev.RunID, err)
	}
	return nil
}

// Close releases the channel and the connection.
func (s *AMQPSink) Close() {
	if err := s.ch.Close(); err != nil {
		s.log.Warnf("amqp channel close: %v", err)
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Warnf("amqp connection close: %v", err)
		}
	}
}
