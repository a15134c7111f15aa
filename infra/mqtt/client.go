package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremqtt "github.com/kilianp07/vpp/core/mqtt"
	"github.com/kilianp07/vpp/core/report"
	"github.com/kilianp07/vpp/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string          `json:"broker"`
	ClientID    string          `json:"client_id"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	TopicPrefix string          `json:"topic_prefix"`
	AckTopic    string          `json:"ack_topic"`
	UseTLS      bool            `json:"use_tls"`
	ClientCert  string          `json:"client_cert"`
	ClientKey   string          `json:"client_key"`
	CABundle    string          `json:"ca_bundle"`
	AuthMethod  string          `json:"auth_method"`
	QoS         map[string]byte `json:"qos"`
	Retain      bool            `json:"retain"`
	LWTTopic    string          `json:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain"`
	MaxRetries  int             `json:"max_retries"`
	BackoffMS   int             `json:"backoff_ms"`
	TLSConfig   *tls.Config     `json:"-"`
}

const defaultPrefix = "vpp"

func (c Config) prefix() string {
	if c.TopicPrefix == "" {
		return defaultPrefix
	}
	return strings.TrimSuffix(c.TopicPrefix, "/")
}

// ScheduleTopic returns the topic a schedule for runID is published on.
func (c Config) ScheduleTopic(runID string) string {
	return fmt.Sprintf("%s/%s/schedule", c.prefix(), runID)
}

func (c Config) ackTopic() string {
	if c.AckTopic != "" {
		return c.AckTopic
	}
	return c.prefix() + "/+/ack"
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient implements the core Publisher interface using Eclipse Paho.
type PahoClient struct {
	cli pahoClient
	cfg Config
	qos map[string]byte

	mu         sync.Mutex
	ackChans   map[string]chan struct{}
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var _ coremqtt.Publisher = (*PahoClient)(nil)

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and subscribes to the ack topic.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		cfg:        cfg,
		qos:        cfg.QoS,
		ackChans:   make(map[string]chan struct{}),
		logger:     log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	if pc.maxRetries <= 0 {
		pc.maxRetries = 3
	}
	if pc.backoff <= 0 {
		pc.backoff = 100 * time.Millisecond
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(cfg.ackTopic(), pc.qosFor("ack"), pc.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (p *PahoClient) qosFor(key string) byte {
	if q, ok := p.qos[key]; ok {
		return q
	}
	return 0
}

// Ack is the payload a controller sends back once a schedule is applied.
type Ack struct {
	MessageID string `json:"message_id"`
	RunID     string `json:"run_id"`
}

func (p *PahoClient) onAck(_ paho.Client, msg paho.Message) {
	var m Ack
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		p.logger.Errorf("failed to decode ack: %v", err)
		return
	}
	p.mu.Lock()
	ch, ok := p.ackChans[m.MessageID]
	if ok {
		select {
		case ch <- struct{}{}:
		default:
		}
		p.logger.Infof("received ack %s", m.MessageID)
	}
	p.mu.Unlock()
}

// Message is the JSON document published for a schedule.
type Message struct {
	MessageID string        `json:"message_id"`
	RunID     string        `json:"run_id"`
	Scenario  string        `json:"scenario"`
	Timestamp int64         `json:"timestamp"`
	Feasible  bool          `json:"feasible"`
	Profit    float64       `json:"profit"`
	Setpoints []report.Step `json:"setpoints"`
	Biomass   [][]float64   `json:"biomass,omitempty"`
	Storage   []StorageRow  `json:"storage,omitempty"`
	Loads     [][]float64   `json:"dispatchable_loads,omitempty"`
}

// StorageRow holds the per-unit storage setpoints.
type StorageRow struct {
	Charge    []float64 `json:"charge"`
	Discharge []float64 `json:"discharge"`
	Soc       []float64 `json:"soc"`
}

// NewMessage converts a schedule into its wire form.
func NewMessage(id string, s *report.Schedule) Message {
	m := Message{
		MessageID: id,
		RunID:     s.Run.ID,
		Scenario:  s.Run.Scenario,
		Timestamp: time.Now().UnixMilli(),
		Feasible:  s.Feasible,
		Profit:    s.Profit,
		Setpoints: s.Steps,
	}
	v := s.Variables
	if v == nil {
		return m
	}
	for i := 0; i < v.PBm.Rows; i++ {
		m.Biomass = append(m.Biomass, append([]float64(nil), v.PBm.Row(i)...))
	}
	for i := 0; i < v.Soc.Rows; i++ {
		m.Storage = append(m.Storage, StorageRow{
			Charge:    append([]float64(nil), v.PChg.Row(i)...),
			Discharge: append([]float64(nil), v.PDch.Row(i)...),
			Soc:       append([]float64(nil), v.Soc.Row(i)...),
		})
	}
	for i := 0; i < v.PDl.Rows; i++ {
		m.Loads = append(m.Loads, append([]float64(nil), v.PDl.Row(i)...))
	}
	return m
}

// PublishSchedule publishes s on the run's schedule topic and returns the
// message identifier used for acknowledgment tracking.
func (p *PahoClient) PublishSchedule(s *report.Schedule) (string, error) {
	msgID := uuid.NewString()
	payload, err := json.Marshal(NewMessage(msgID, s))
	if err != nil {
		return "", err
	}

	topic := p.cfg.ScheduleTopic(s.Run.ID)
	qos := p.qosFor("schedule")
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, p.cfg.Retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Infof("sent schedule %s to %s", msgID, topic)
			break
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	if publishErr != nil {
		return "", fmt.Errorf("publish schedule %s: %w", s.Run.ID, publishErr)
	}

	p.mu.Lock()
	p.ackChans[msgID] = make(chan struct{}, 1)
	p.mu.Unlock()

	return msgID, nil
}

// WaitForAck blocks until an ack for the given message ID is received or timeout.
func (p *PahoClient) WaitForAck(messageID string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	ch := p.ackChans[messageID]
	p.mu.Unlock()
	if ch == nil {
		return false, fmt.Errorf("%w: %s", coremqtt.ErrUnknownSchedule, messageID)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	defer func() {
		p.mu.Lock()
		delete(p.ackChans, messageID)
		p.mu.Unlock()
	}()
	select {
	case <-ch:
		return true, nil
	case <-timer.C:
		return false, fmt.Errorf("%w", coremqtt.ErrScheduleAckTimeout)
	}
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
