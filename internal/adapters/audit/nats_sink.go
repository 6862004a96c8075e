package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// publisher is the subset of jetstream.JetStream the sink needs.
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSSink publishes audit records to <prefix>.audit.<action> after the operation commits.
type NATSSink struct {
	js     publisher
	prefix string
}

var _ collaborators.AuditSink = (*NATSSink)(nil)

func NewNATSSink(js publisher, prefix string) *NATSSink {
	return &NATSSink{js: js, prefix: prefix}
}

// Subject returns the subject a record with the given action is published on.
func (s *NATSSink) Subject(action string) string {
	return fmt.Sprintf("%s.audit.%s", s.prefix, strings.ToLower(action))
}

func (s *NATSSink) Record(ctx context.Context, record collaborators.AuditRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	if _, err := s.js.Publish(ctx, s.Subject(record.Action), data); err != nil {
		return fmt.Errorf("publish audit record %s: %w", record.Action, err)
	}
	return nil
}

// StreamName is the JetStream stream holding audit records for prefix.
func StreamName(prefix string) string {
	return strings.ToUpper(strings.ReplaceAll(prefix, ".", "_")) + "_AUDIT"
}

// EnsureAuditStream creates or updates the stream that captures <prefix>.audit.>.
func EnsureAuditStream(ctx context.Context, js jetstream.JetStream, prefix string) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName(prefix),
		Subjects:  []string{prefix + ".audit.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    30 * 24 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create audit stream: %w", err)
	}
	return nil
}

// ConnectNATS establishes a NATS connection that reconnects forever and returns a JetStream context.
func ConnectNATS(url string, logger *slog.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.Name("deal_ledger"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	return nc, js, nil
}
