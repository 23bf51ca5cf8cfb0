package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeMQTTClient struct {
	mqtt.Client

	mu           sync.Mutex
	open         bool
	err          error
	msgs         []published
	disconnected bool
}

func (c *fakeMQTTClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var data []byte
	if b, ok := payload.([]byte); ok {
		data = b
	}
	c.msgs = append(c.msgs, published{topic: topic, retained: retained, payload: data})
	return &fakeToken{err: c.err}
}

func (c *fakeMQTTClient) IsConnectionOpen() bool { return c.open }

func (c *fakeMQTTClient) Disconnect(uint) { c.disconnected = true }

type fakeNATSConn struct {
	mu        sync.Mutex
	connected bool
	err       error
	msgs      []*nats.Msg
	closed    bool
}

func (c *fakeNATSConn) PublishMsg(m *nats.Msg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *fakeNATSConn) FlushWithContext(context.Context) error { return nil }
func (c *fakeNATSConn) IsConnected() bool                      { return c.connected }
func (c *fakeNATSConn) Close()                                 { c.closed = true }

type recordingSink struct {
	ready   bool
	err     error
	alerts  []string
	shown   []string
	cleared []string
}

func (s *recordingSink) NotifyOnce(_ context.Context, title, _ string) error {
	s.alerts = append(s.alerts, title)
	return s.err
}

func (s *recordingSink) ShowPersistent(_ context.Context, id, _, _ string) error {
	s.shown = append(s.shown, id)
	return s.err
}

func (s *recordingSink) Clear(_ context.Context, id string) error {
	s.cleared = append(s.cleared, id)
	return s.err
}

func (s *recordingSink) Ready() bool { return s.ready }

func TestMQTT_NotifyOnce(t *testing.T) {
	client := &fakeMQTTClient{open: true}
	m := newMQTT(client, "")

	require.NoError(t, m.NotifyOnce(context.Background(), "Akşam Vakti Girdi!", "Namaz vakti geldi."))
	require.Len(t, client.msgs, 1)

	msg := client.msgs[0]
	assert.Equal(t, "uyan/alerts", msg.topic)
	assert.False(t, msg.retained)

	var got Message
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, "Akşam Vakti Girdi!", got.Title)
	assert.Equal(t, "Namaz vakti geldi.", got.Body)
	assert.NotEmpty(t, got.ID)
	assert.Empty(t, got.Tag)
}

func TestMQTT_PersistentAndClear(t *testing.T) {
	client := &fakeMQTTClient{open: true}
	m := newMQTT(client, "home/uyan")
	ctx := context.Background()

	require.NoError(t, m.ShowPersistent(ctx, "uyan-countdown", "Öğle Vaktine Kalan", "summary"))
	require.NoError(t, m.Clear(ctx, "uyan-countdown"))
	require.Len(t, client.msgs, 2)

	show := client.msgs[0]
	assert.Equal(t, "home/uyan/persistent/uyan-countdown", show.topic)
	assert.True(t, show.retained)
	var got Message
	require.NoError(t, json.Unmarshal(show.payload, &got))
	assert.Equal(t, "uyan-countdown", got.Tag)

	clear := client.msgs[1]
	assert.Equal(t, show.topic, clear.topic)
	assert.True(t, clear.retained)
	assert.Empty(t, clear.payload)
}

func TestMQTT_NowPlaying(t *testing.T) {
	client := &fakeMQTTClient{open: true}
	m := newMQTT(client, "")
	ctx := context.Background()

	np := NowPlaying{Title: "Akşam Vaktine Kalan", Artist: "Kalan Süre: 00:12:04", Album: "Uyan! Namaz Vakitleri"}
	require.NoError(t, m.SetNowPlaying(ctx, np))
	require.NoError(t, m.ResetNowPlaying(ctx))
	require.Len(t, client.msgs, 2)

	var got NowPlaying
	require.NoError(t, json.Unmarshal(client.msgs[0].payload, &got))
	assert.Equal(t, np, got)
	assert.Equal(t, "uyan/nowplaying", client.msgs[1].topic)
	assert.Empty(t, client.msgs[1].payload)
}

func TestMQTT_PublishError(t *testing.T) {
	client := &fakeMQTTClient{open: true, err: errors.New("not connected")}
	m := newMQTT(client, "")

	err := m.NotifyOnce(context.Background(), "t", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uyan/alerts")
}

func TestMQTT_ReadyAndClose(t *testing.T) {
	client := &fakeMQTTClient{}
	m := newMQTT(client, "")
	assert.False(t, m.Ready())

	client.open = true
	assert.True(t, m.Ready())

	m.Close()
	assert.True(t, client.disconnected)
}

func TestNATS_Subjects(t *testing.T) {
	conn := &fakeNATSConn{connected: true}
	n := newNATS(conn, "")
	ctx := context.Background()

	require.NoError(t, n.NotifyOnce(ctx, "İkindi Vakti Girdi!", "Namaz vakti geldi."))
	require.NoError(t, n.ShowPersistent(ctx, "uyan-countdown", "title", "body"))
	require.NoError(t, n.Clear(ctx, "uyan-countdown"))
	require.Len(t, conn.msgs, 3)

	tests := []struct {
		subject string
		action  string
		tag     string
		empty   bool
	}{
		{"uyan.alerts", ActionAlert, "", false},
		{"uyan.persistent.uyan-countdown", ActionShow, "uyan-countdown", false},
		{"uyan.persistent.uyan-countdown", ActionClear, "uyan-countdown", true},
	}
	for i, tt := range tests {
		msg := conn.msgs[i]
		assert.Equal(t, tt.subject, msg.Subject)
		assert.Equal(t, tt.action, msg.Header.Get(HeaderAction))
		assert.Equal(t, tt.tag, msg.Header.Get(HeaderTag))
		assert.Equal(t, tt.empty, len(msg.Data) == 0)
	}
}

func TestNATS_PublishError(t *testing.T) {
	conn := &fakeNATSConn{connected: false, err: nats.ErrConnectionClosed}
	n := newNATS(conn, "prayer")

	err := n.NotifyOnce(context.Background(), "t", "b")
	require.Error(t, err)
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)
	assert.False(t, n.Ready())

	n.Close()
	assert.True(t, conn.closed)
}

func TestMulti_FansOutAndAggregates(t *testing.T) {
	failing := &recordingSink{err: errors.New("boom")}
	ok := &recordingSink{ready: true}
	m := Multi{failing, ok}
	ctx := context.Background()

	err := m.NotifyOnce(ctx, "title", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"title"}, failing.alerts)
	assert.Equal(t, []string{"title"}, ok.alerts)

	require.Error(t, m.ShowPersistent(ctx, "tag", "t", "b"))
	require.Error(t, m.Clear(ctx, "tag"))
	assert.Equal(t, []string{"tag"}, ok.shown)
	assert.Equal(t, []string{"tag"}, ok.cleared)
}

func TestMulti_Ready(t *testing.T) {
	assert.False(t, Multi{}.Ready())
	assert.False(t, Multi{&recordingSink{}}.Ready())
	assert.True(t, Multi{&recordingSink{}, &recordingSink{ready: true}}.Ready())
}

func TestMulti_NoErrors(t *testing.T) {
	m := Multi{&recordingSink{}, NewLog()}
	assert.NoError(t, m.NotifyOnce(context.Background(), "t", "b"))
}
