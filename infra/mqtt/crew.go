package mqtt

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/erdispatch/core/logger"
	coremqtt "github.com/kilianp07/erdispatch/core/mqtt"
	infralogger "github.com/kilianp07/erdispatch/infra/logger"
)

// AckStrategy decides how a simulated crew answers an order. It returns
// false when no acknowledgment should be sent.
type AckStrategy interface {
	Ack(ctx context.Context, order coremqtt.DispatchOrder) (Ack, bool)
}

// AutoAck accepts every order after an optional fixed delay.
type AutoAck struct {
	Delay time.Duration
}

// Ack implements AckStrategy.
func (a AutoAck) Ack(ctx context.Context, o coremqtt.DispatchOrder) (Ack, bool) {
	if !sleep(ctx, a.Delay) {
		return Ack{}, false
	}
	return Ack{CommandID: o.CommandID, VehicleID: o.VehicleID, Accepted: true}, true
}

// RandomAck drops orders with probability DropRate and rejects the
// remaining ones with probability RejectRate.
type RandomAck struct {
	Delay      time.Duration
	DropRate   float64
	RejectRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomAck returns a RandomAck seeded with seed, or with the clock when
// seed is zero.
func NewRandomAck(delay time.Duration, dropRate, rejectRate float64, seed int64) *RandomAck {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomAck{
		Delay:      delay,
		DropRate:   dropRate,
		RejectRate: rejectRate,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Ack implements AckStrategy.
func (r *RandomAck) Ack(ctx context.Context, o coremqtt.DispatchOrder) (Ack, bool) {
	r.mu.Lock()
	drop := r.rng.Float64() < r.DropRate
	reject := r.rng.Float64() < r.RejectRate
	r.mu.Unlock()
	if drop || !sleep(ctx, r.Delay) {
		return Ack{}, false
	}
	return Ack{CommandID: o.CommandID, VehicleID: o.VehicleID, Accepted: !reject}, true
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Crew simulates the crews of every vehicle: it listens to all dispatch
// topics and answers with the configured strategy.
type Crew struct {
	cfg   Config
	strat AckStrategy
	log   logger.Logger

	mu       sync.Mutex
	answered int
	wg       sync.WaitGroup
}

// NewCrew returns a crew simulator. A nil strategy accepts every order
// immediately.
func NewCrew(cfg Config, strat AckStrategy) (*Crew, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strat == nil {
		strat = AutoAck{}
	}
	return &Crew{cfg: cfg, strat: strat, log: infralogger.New("crew_sim")}, nil
}

// Run connects to the broker and answers orders until ctx is done.
func (c *Crew) Run(ctx context.Context) error {
	cfg := c.cfg
	cfg.ClientID += "-crew"
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return err
	}
	opts.OnConnect = func(cli paho.Client) {
		topic := c.cfg.AllDispatchTopic()
		if token := cli.Subscribe(topic, c.cfg.QoS, c.handler(ctx, cli)); token.Wait() && token.Error() != nil {
			c.log.Errorf("subscribe %s: %v", topic, token.Error())
			return
		}
		c.log.Infof("crew simulator listening on %s", topic)
	}
	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	<-ctx.Done()
	c.wg.Wait()
	cli.Disconnect(250)
	return nil
}

func (c *Crew) handler(ctx context.Context, cli paho.Client) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		var o coremqtt.DispatchOrder
		if err := json.Unmarshal(msg.Payload(), &o); err != nil {
			c.log.Errorf("failed to decode order: %v", err)
			return
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			ack, ok := c.strat.Ack(ctx, o)
			if !ok {
				c.log.Debugf("vehicle %d ignored order %s", o.VehicleID, o.CommandID)
				return
			}
			c.publish(cli, ack)
		}()
	}
}

func (c *Crew) publish(cli paho.Client, ack Ack) {
	payload, err := json.Marshal(ack)
	if err != nil {
		c.log.Errorf("marshal ack: %v", err)
		return
	}
	token := cli.Publish(c.cfg.VehicleAckTopic(ack.VehicleID), c.cfg.QoS, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		c.log.Warnf("ack publish timeout for vehicle %d", ack.VehicleID)
		return
	}
	if err := token.Error(); err != nil {
		c.log.Errorf("publish ack for vehicle %d: %v", ack.VehicleID, err)
		return
	}
	c.mu.Lock()
	c.answered++
	c.mu.Unlock()
}

// Answered returns the number of acknowledgments published so far.
func (c *Crew) Answered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answered
}
