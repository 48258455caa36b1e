package tarantool_queue

import (
	"context"
	"io/ioutil"
	"os"
	"testing"

	"github.com/daniil11ru/tracker/cli/uploader/uploader/transport"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Требует Tarantool с модулем queue и очередью positions, хост берется из TRACKER_TEST_TARANTOOL
func TestConnector(t *testing.T) {
	host := os.Getenv("TRACKER_TEST_TARANTOOL")
	if host == "" {
		t.Skip("TRACKER_TEST_TARANTOOL is not set")
	}
	log.SetOutput(ioutil.Discard)

	c := &Connector{}
	require.NoError(t, c.Init(map[string]string{"host": host, "user": "guest"}))
	defer c.Close()

	require.NoError(t, c.Send(context.Background(), transport.Request{Records: []string{"id=D1&timestamp=1"}}))

	task, err := c.queue.Take()
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "id=D1&timestamp=1", task.Data())
	assert.NoError(t, task.Ack())
}

func TestConnectorNotInitialized(t *testing.T) {
	c := &Connector{}
	assert.Error(t, c.Send(context.Background(), transport.Request{Records: []string{"id=D1"}}))
	assert.NoError(t, c.Close())
}
