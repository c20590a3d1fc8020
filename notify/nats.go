package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"suggestguard/utils"
)

// DefaultSubject is the subject prefix alerts are published on. The brand ID
// is appended.
const DefaultSubject = "suggestguard.alerts"

// NATSNotifier publishes events to a NATS subject per brand.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

// ConnectNATS opens a connection with reconnect handling.
func ConnectNATS(url string, logger *utils.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.Name("suggestguard"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.Timeout(5 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("[nats] Disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("[nats] Reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("[nats] Connection closed")
		}),
	}

	nc, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("nats: connect %s: %w", url, err)
	}
	return nc, nil
}

// NewNATSNotifier publishes on subject.<brandID>. An empty subject uses
// DefaultSubject.
func NewNATSNotifier(conn *nats.Conn, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{conn: conn, subject: subject}
}

func (n *NATSNotifier) Name() string {
	return "nats"
}

// Subject returns the subject an event of brandID is published on.
func (n *NATSNotifier) Subject(brandID string) string {
	return n.subject + "." + brandID
}

func (n *NATSNotifier) Notify(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("nats: encode: %w", err)
	}
	if err := n.conn.Publish(n.Subject(ev.BrandID), data); err != nil {
		return fmt.Errorf("nats: publish: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		return n.conn.FlushTimeout(5 * time.Second)
	}
	return n.conn.FlushWithContext(ctx)
}
