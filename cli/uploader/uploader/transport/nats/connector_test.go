package nats

import (
	"context"
	"io/ioutil"
	"testing"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/uploader/transport"
	"github.com/nats-io/nats.go"
	natsserver "github.com/nats-io/nats-server/v2/test"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectorPublishes(t *testing.T) {
	log.SetOutput(ioutil.Discard)

	srv := natsserver.RunRandClientPortServer()
	defer srv.Shutdown()

	sub, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer sub.Close()
	messages, err := sub.SubscribeSync("positions")
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	c := &Connector{}
	require.NoError(t, c.Init(map[string]string{"servers": srv.ClientURL(), "subject": "positions"}))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req := transport.Request{Records: []string{"id=D1&timestamp=1", "id=D1&timestamp=2"}}
	require.NoError(t, c.Send(ctx, req))

	msg, err := messages.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "id=D1&timestamp=1\nid=D1&timestamp=2", string(msg.Data))
}

func TestConnectorFailsWhenServerIsGone(t *testing.T) {
	log.SetOutput(ioutil.Discard)

	srv := natsserver.RunRandClientPortServer()
	c := &Connector{}
	require.NoError(t, c.Init(map[string]string{"servers": srv.ClientURL(), "max_reconnects": "0"}))
	defer c.Close()

	srv.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	assert.Error(t, c.Send(ctx, transport.Request{Records: []string{"id=D1"}}))
}

func TestConnectorInitFails(t *testing.T) {
	log.SetOutput(ioutil.Discard)

	c := &Connector{}
	assert.Error(t, c.Init(map[string]string{"servers": "nats://127.0.0.1:1"}))
	assert.Error(t, c.Init(nil))
}
