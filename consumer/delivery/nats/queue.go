package nats

import (
	"log/slog"

	"github.com/4406arthur/copilot/domain"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/pquerna/ffjson/ffjson"
)

//MessageQueue ...
type MessageQueue struct {
	natConn *nats.Conn
	logger  *slog.Logger
}

//NewMessageQueue ...
func NewMessageQueue(conn string, logger *slog.Logger) (*MessageQueue, error) {
	q := &MessageQueue{logger: logger}
	opts := []nats.Option{nats.Name("copilot"), nats.ErrorHandler(q.logSlowConsumer)}
	nc, err := nats.Connect(conn, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "connect nats")
	}
	q.natConn = nc
	return q, nil
}

//Subscribe delivers messages on subj to ch, load balanced across queueName
func (s *MessageQueue) Subscribe(subj, queueName string, ch chan *nats.Msg) (*nats.Subscription, error) {
	sub, err := s.natConn.QueueSubscribeSyncWithChan(subj, queueName, ch)
	return sub, errors.Wrapf(err, "subscribe %s", subj)
}

//Publish sends everything from ch to subj until ch is closed
func (s *MessageQueue) Publish(subj string, ch <-chan []byte) {
	for msg := range ch {
		if err := s.natConn.Publish(subj, msg); err != nil {
			s.logger.Error("publish failed", "subject", subj, "error", err)
		}
	}
}

// Submit enqueues one tracking request.
func (s *MessageQueue) Submit(subj string, rq domain.TrackRequest) error {
	data, err := ffjson.Marshal(&rq)
	if err != nil {
		return errors.Wrap(err, "encode track request")
	}
	if err := s.natConn.Publish(subj, data); err != nil {
		return errors.Wrapf(err, "publish %s", subj)
	}
	return s.natConn.Flush()
}

// Close drains subscriptions and publishes in flight, then closes.
func (s *MessageQueue) Close() error {
	return s.natConn.Drain()
}

func (s *MessageQueue) logSlowConsumer(nc *nats.Conn, sub *nats.Subscription, err error) {
	if err == nats.ErrSlowConsumer {
		dropped, _ := sub.Dropped()
		s.logger.Warn("slow consumer", "subject", sub.Subject, "dropped", dropped)
		return
	}
	s.logger.Error("nats async error", "error", err)
}
