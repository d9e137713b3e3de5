package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// subscriberBuffer bounds both the raw NATS channel and the decoded
	// Message channel handed to callers.
	subscriberBuffer = 64

	contentTypeJSON = "application/json"
)

func dial(url, name string, extra []nats.Option) (*nats.Conn, error) {
	opts := append([]nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}, extra...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher sends each event as a JSON message on the subject named by
// its topic.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := dial(url, "passin-publisher", opts)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", topic, err)
	}
	msg := nats.NewMsg(topic)
	msg.Header.Set("Content-Type", contentTypeJSON)
	msg.Data = data
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// Close drains in-flight messages. If draining fails the connection is
// closed outright.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}

// NATSSubscriber fans NATS subjects out to Go channels.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber dials url with unlimited reconnects. Callers can pass
// disconnect and reconnect handlers through opts.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := dial(url, "passin-subscriber", opts)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Subscribe delivers messages for topic, which may use NATS wildcards such
// as "passin.>". When the caller falls behind, NATS drops messages for this
// subscription instead of blocking the connection. The returned cancel func
// unsubscribes and closes the channel; it is safe to call more than once.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan Message, func(), error) {
	raw := make(chan *nats.Msg, subscriberBuffer)
	sub, err := s.conn.ChanSubscribe(topic, raw)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, nil, fmt.Errorf("flushing subscription to %s: %w", topic, err)
	}

	out := make(chan Message, subscriberBuffer)
	done := make(chan struct{})
	go forward(raw, out, done)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			close(done)
		})
	}
	return out, cancel, nil
}

func forward(raw <-chan *nats.Msg, out chan<- Message, done <-chan struct{}) {
	defer close(out)
	for {
		select {
		case <-done:
			return
		case msg := <-raw:
			select {
			case out <- Message{Topic: msg.Subject, Data: msg.Data}:
			case <-done:
				return
			}
		}
	}
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
