package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/uyan/internal/logging"
)

// Header names set on published messages.
const (
	HeaderAction = "Uyan-Action"
	HeaderTag    = "Uyan-Tag"
)

// Actions carried in HeaderAction.
const (
	ActionAlert = "alert"
	ActionShow  = "show"
	ActionClear = "clear"
)

type natsConn interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	IsConnected() bool
	Close()
}

// NATS publishes notifications on <subject>.alerts and
// <subject>.persistent.<id>. Subscribers tell show from clear through the
// Uyan-Action header.
type NATS struct {
	conn    natsConn
	subject string
	logger  zerolog.Logger
}

var _ Sink = (*NATS)(nil)

// NewNATS connects to url. subject defaults to "uyan".
func NewNATS(url, subject string) (*NATS, error) {
	logger := logging.GetLogger("nats")
	conn, err := nats.Connect(url,
		nats.Name("uyan"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info().Str("url", url).Msg("Connected to NATS")
	return newNATS(conn, subject), nil
}

func newNATS(conn natsConn, subject string) *NATS {
	if subject == "" {
		subject = "uyan"
	}
	return &NATS{conn: conn, subject: subject, logger: logging.GetLogger("nats")}
}

func (n *NATS) send(ctx context.Context, subject, action, tag string, payload []byte) error {
	msg := nats.NewMsg(subject)
	msg.Header.Set(HeaderAction, action)
	if tag != "" {
		msg.Header.Set(HeaderTag, tag)
	}
	msg.Data = payload

	if err := n.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}
	return nil
}

func (n *NATS) NotifyOnce(ctx context.Context, title, body string) error {
	data, err := json.Marshal(newMessage("", title, body))
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	return n.send(ctx, n.subject+".alerts", ActionAlert, "", data)
}

func (n *NATS) ShowPersistent(ctx context.Context, id, title, body string) error {
	data, err := json.Marshal(newMessage(id, title, body))
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	return n.send(ctx, n.subject+".persistent."+id, ActionShow, id, data)
}

func (n *NATS) Clear(ctx context.Context, id string) error {
	return n.send(ctx, n.subject+".persistent."+id, ActionClear, id, nil)
}

func (n *NATS) Ready() bool { return n.conn.IsConnected() }

// Close drops the connection.
func (n *NATS) Close() { n.conn.Close() }
