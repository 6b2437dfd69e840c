package notify

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/straye-as/crm-api/internal/config"
	"go.uber.org/zap"
)

// NatsPublisher publishes JSON encoded events on a NATS connection
type NatsPublisher struct {
	conn   *nats.Conn
	enc    *nats.EncodedConn
	prefix string
}

// NewPublisher connects to cfg.URL, or returns Noop when no URL is set
func NewPublisher(cfg *config.NATSConfig, logger *zap.Logger) (Publisher, error) {
	if cfg.URL == "" {
		logger.Info("NATS URL not set, domain notifications disabled")
		return Noop{}, nil
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect failed: %w", err)
	}

	enc, err := nats.NewEncodedConn(nc, nats.JSON_ENCODER)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats encoded conn failed: %w", err)
	}

	logger.Info("NATS publisher connected",
		zap.String("url", nc.ConnectedUrl()),
		zap.String("subject_prefix", cfg.SubjectPrefix),
	)
	return &NatsPublisher{conn: nc, enc: enc, prefix: cfg.SubjectPrefix}, nil
}

// Subject returns the subject an event type is published on
func Subject(prefix string, t Type) string {
	if prefix == "" {
		return string(t)
	}
	return prefix + "." + string(t)
}

func (p *NatsPublisher) Publish(e Event) error {
	return p.enc.Publish(Subject(p.prefix, e.Type), e)
}

// Close flushes pending messages and closes the connection
func (p *NatsPublisher) Close() {
	_ = p.conn.Flush()
	p.enc.Close()
}
