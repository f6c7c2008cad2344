package sal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/utils"
)

// Proxy owns the driver's topic handles on a Bus
type Proxy struct {
	bus     Bus
	backoff utils.BackoffStrategy
	log     *slog.Logger

	mu     sync.Mutex
	subs   map[string]*Subscription
	kinds  map[string]Kind
	acks   *Subscription
	cmdSeq int
}

// NewProxy wraps bus. backoff paces the poll loops; nil polls with a
// 10µs constant sleep.
func NewProxy(bus Bus, backoff utils.BackoffStrategy, log *slog.Logger) *Proxy {
	if backoff == nil {
		backoff = utils.NewConstantBackoff(10 * time.Microsecond)
	}
	return &Proxy{
		bus:     bus,
		backoff: backoff,
		log:     logger.OrDefault(log),
		subs:    make(map[string]*Subscription),
		kinds:   make(map[string]Kind),
	}
}

// SubscribeTelemetry starts listening on a telemetry topic
func (p *Proxy) SubscribeTelemetry(ctx context.Context, topic string) error {
	return p.subscribe(ctx, topic, KindTelemetry)
}

// SubscribeEvent starts listening on an event topic
func (p *Proxy) SubscribeEvent(ctx context.Context, topic string) error {
	return p.subscribe(ctx, topic, KindEvent)
}

func (p *Proxy) subscribe(ctx context.Context, topic string, kind Kind) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.subs[topic]; ok {
		return nil
	}
	sub, err := p.bus.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	p.subs[topic] = sub
	p.kinds[topic] = kind
	p.log.Debug("subscribed", "topic", topic, "kind", kind)
	return nil
}

// Publish sends v as telemetry on topic
func (p *Proxy) Publish(ctx context.Context, topic string, v any) error {
	return p.publish(ctx, topic, KindTelemetry, v)
}

// PublishEvent sends v as an event on topic
func (p *Proxy) PublishEvent(ctx context.Context, topic string, v any) error {
	return p.publish(ctx, topic, KindEvent, v)
}

func (p *Proxy) publish(ctx context.Context, topic string, kind Kind, v any) error {
	msg, err := NewMessage(topic, kind, v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", topic, err)
	}
	if err := p.bus.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	return nil
}

// SendCommand issues a command and returns its id
func (p *Proxy) SendCommand(ctx context.Context, name string, settingsToApply string) (int, error) {
	p.mu.Lock()
	if p.acks == nil {
		acks, err := p.bus.Subscribe(ctx, TopicAck)
		if err != nil {
			p.mu.Unlock()
			return 0, fmt.Errorf("failed to subscribe to %s: %w", TopicAck, err)
		}
		p.acks = acks
	}
	p.cmdSeq++
	cmd := Command{CmdID: p.cmdSeq, Name: name, SettingsToApply: settingsToApply}
	p.mu.Unlock()

	if err := p.publish(ctx, CommandTopic(name), KindCommand, cmd); err != nil {
		return 0, err
	}
	p.log.Debug("command sent", "command", name, "cmd_id", cmd.CmdID)
	return cmd.CmdID, nil
}

// WaitForCompletion blocks until the command is acknowledged or the
// timeout elapses.
func (p *Proxy) WaitForCompletion(ctx context.Context, cmdID int, timeout time.Duration) error {
	p.mu.Lock()
	acks := p.acks
	p.mu.Unlock()
	if acks == nil {
		return fmt.Errorf("command %d: %w", cmdID, ErrNotSubscribed)
	}

	var ack Ack
	err := p.poll(ctx, acks, TopicAck, timeout, &ack, func() bool { return ack.CmdID == cmdID })
	if err != nil {
		return err
	}
	if ack.Ack != AckComplete {
		return fmt.Errorf("command %d: %w: %s", cmdID, ErrCommandFailed, ack.Result)
	}
	return nil
}

// TryRead decodes the next queued message on topic into v. It reports
// false when nothing is queued.
func (p *Proxy) TryRead(topic string, v any) (bool, error) {
	sub, err := p.subscription(topic)
	if err != nil {
		return false, err
	}
	return tryRead(sub, v)
}

func tryRead(sub *Subscription, v any) (bool, error) {
	msg, ok := sub.TryRead()
	if !ok {
		return false, nil
	}
	if err := msg.Decode(v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", msg.Topic, err)
	}
	return true, nil
}

// Poll reads topic into v until ready reports true or the timeout elapses,
// in which case it returns a SchedulerTimeoutError. A nil ready accepts the
// first message.
func (p *Proxy) Poll(ctx context.Context, topic string, timeout time.Duration, v any, ready func() bool) error {
	sub, err := p.subscription(topic)
	if err != nil {
		return err
	}
	return p.poll(ctx, sub, topic, timeout, v, ready)
}

func (p *Proxy) poll(ctx context.Context, sub *Subscription, topic string, timeout time.Duration, v any, ready func() bool) error {
	start := time.Now()
	attempt := 0
	for {
		ok, err := tryRead(sub, v)
		if err != nil {
			p.log.Warn("skipping undecodable message", "topic", topic, "error", err)
		} else if ok && (ready == nil || ready()) {
			return nil
		}
		if time.Since(start) > timeout {
			return &SchedulerTimeoutError{Topic: topic, Timeout: timeout}
		}
		if ok || err != nil {
			// more may be queued
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff.NextDelay(attempt)):
		}
		attempt++
	}
}

// Drain discards messages queued on topic
func (p *Proxy) Drain(topic string) int {
	sub, err := p.subscription(topic)
	if err != nil {
		return 0
	}
	return sub.Drain()
}

func (p *Proxy) subscription(topic string) (*Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sub, ok := p.subs[topic]
	if !ok {
		return nil, fmt.Errorf("%s: %w", topic, ErrNotSubscribed)
	}
	return sub, nil
}

// Finalize closes every subscription. The bus itself stays open.
func (p *Proxy) Finalize() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for topic, sub := range p.subs {
		sub.Close()
		delete(p.subs, topic)
	}
	if p.acks != nil {
		p.acks.Close()
		p.acks = nil
	}
	p.log.Debug("proxy finalized")
}
