// Package mqtt sends dispatch orders to vehicle crews over an MQTT broker
// and tracks their acknowledgments.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/erdispatch/core/logger"
	"github.com/kilianp07/erdispatch/core/monitoring"
	coremqtt "github.com/kilianp07/erdispatch/core/mqtt"
	infralogger "github.com/kilianp07/erdispatch/infra/logger"
)

// pahoClient is the subset of paho.Client used here.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Ack is what a crew sends back on <prefix>/<vehicle>/ack.
type Ack struct {
	CommandID string `json:"command_id"`
	VehicleID int    `json:"vehicle_id"`
	Accepted  bool   `json:"accepted"`
}

// PahoClient implements core/mqtt.Notifier with Eclipse Paho.
type PahoClient struct {
	cli     pahoClient
	cfg     Config
	backoff time.Duration
	log     logger.Logger

	mu      sync.Mutex
	pending map[string]pendingAck
}

type pendingAck struct {
	ch chan Ack
	at time.Time
}

// ackTTL bounds how long an unacknowledged order is tracked.
const ackTTL = 10 * time.Minute

// NewPahoClient connects to the broker and subscribes to crew
// acknowledgments.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := infralogger.New("mqtt_client")
	pc := &PahoClient{
		cfg:     cfg,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:     log,
		pending: make(map[string]pendingAck),
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
		if token := c.Subscribe(cfg.AckTopic(), cfg.QoS, pc.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe %s: %v", cfg.AckTopic(), token.Error())
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

// NewClientOptions builds paho options from cfg.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.QoS, false)
	}
	return opts, nil
}

func (p *PahoClient) onAck(_ paho.Client, msg paho.Message) {
	var ack Ack
	if err := json.Unmarshal(msg.Payload(), &ack); err != nil {
		p.log.Errorf("failed to decode ack: %v", err)
		return
	}
	p.mu.Lock()
	pa, ok := p.pending[ack.CommandID]
	p.mu.Unlock()
	if !ok {
		p.log.Debugf("ack for unknown command %s", ack.CommandID)
		return
	}
	select {
	case pa.ch <- ack:
	default:
	}
	p.log.Infof("vehicle %d acknowledged %s (accepted=%t)", ack.VehicleID, ack.CommandID, ack.Accepted)
}

// NotifyDispatch publishes order on the vehicle's dispatch topic, retrying
// with exponential backoff. Failures are reported to the monitor.
func (p *PahoClient) NotifyDispatch(ctx context.Context, order coremqtt.DispatchOrder) (string, error) {
	if order.CommandID == "" {
		order.CommandID = uuid.NewString()
	}
	if order.IssuedAt.IsZero() {
		order.IssuedAt = time.Now()
	}
	payload, err := json.Marshal(order)
	if err != nil {
		return "", err
	}
	if !p.cli.IsConnected() {
		return "", coremqtt.ErrNotConnected
	}
	p.track(order.CommandID)

	topic := p.cfg.DispatchTopic(order.VehicleID)
	var publishErr error
retry:
	for attempt := 0; ; attempt++ {
		token := p.cli.Publish(topic, p.cfg.QoS, false, payload)
		publishErr = p.wait(ctx, token)
		if publishErr == nil {
			p.log.Infof("sent order %s to %s", order.CommandID, topic)
			return order.CommandID, nil
		}
		p.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt >= p.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			publishErr = ctx.Err()
			break retry
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	p.forget(order.CommandID)
	monitoring.CaptureException(publishErr, map[string]string{
		"module":     "mqtt",
		"vehicle_id": strconv.Itoa(order.VehicleID),
	})
	return "", fmt.Errorf("mqtt: publish to %s: %w", topic, publishErr)
}

func (p *PahoClient) wait(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitForAck blocks until the crew acknowledges commandID or ctx is done.
func (p *PahoClient) WaitForAck(ctx context.Context, commandID string) (Ack, error) {
	p.mu.Lock()
	pa, ok := p.pending[commandID]
	p.mu.Unlock()
	if !ok {
		return Ack{}, fmt.Errorf("mqtt: unknown command %s", commandID)
	}
	defer p.forget(commandID)
	select {
	case ack := <-pa.ch:
		return ack, nil
	case <-ctx.Done():
		return Ack{}, fmt.Errorf("%w: %s", coremqtt.ErrAckTimeout, commandID)
	}
}

// track registers commandID and drops entries older than ackTTL.
func (p *PahoClient) track(commandID string) {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, pa := range p.pending {
		if now.Sub(pa.at) > ackTTL {
			delete(p.pending, id)
		}
	}
	p.pending[commandID] = pendingAck{ch: make(chan Ack, 1), at: now}
}

func (p *PahoClient) forget(commandID string) {
	p.mu.Lock()
	delete(p.pending, commandID)
	p.mu.Unlock()
}

// Pending returns the number of orders waiting for an acknowledgment.
func (p *PahoClient) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Disconnect closes the connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
