package http

import (
	"context"
	"io/ioutil"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/uploader/transport"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	method        string
	path          string
	rawQuery      string
	body          string
	contentLength int64
}

type recorder struct {
	mu       sync.Mutex
	requests []captured
}

func (r *recorder) all() []captured {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]captured(nil), r.requests...)
}

func startServer(t *testing.T, status int) (*Connector, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := ioutil.ReadAll(r.Body)
		rec.mu.Lock()
		rec.requests = append(rec.requests, captured{
			method:        r.Method,
			path:          r.URL.Path,
			rawQuery:      r.URL.RawQuery,
			body:          string(body),
			contentLength: r.ContentLength,
		})
		rec.mu.Unlock()
		w.WriteHeader(status)
		w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)

	c := &Connector{}
	require.NoError(t, c.Init(map[string]string{"address": host, "port": port, "timeout": "2"}))
	t.Cleanup(func() { c.Close() })
	return c, rec
}

func TestSendSingle(t *testing.T) {
	log.SetOutput(ioutil.Discard)
	c, requests := startServer(t, http.StatusOK)

	err := c.Send(context.Background(), transport.Request{Records: []string{"id=D1&timestamp=1"}})
	require.NoError(t, err)

	all := requests.all()
	require.Len(t, all, 1)
	r := all[0]
	assert.Equal(t, http.MethodGet, r.method)
	assert.Equal(t, "/", r.path)
	assert.Equal(t, "id=D1&timestamp=1", r.rawQuery)
	assert.Empty(t, r.body)
}

func TestSendBatch(t *testing.T) {
	log.SetOutput(ioutil.Discard)
	c, requests := startServer(t, http.StatusOK)

	records := []string{"id=D1&timestamp=1", "id=D1&timestamp=2", "id=D1&timestamp=3"}
	err := c.Send(context.Background(), transport.Request{Records: records})
	require.NoError(t, err)

	all := requests.all()
	require.Len(t, all, 1)
	r := all[0]
	expected := "id=D1&timestamp=1\nid=D1&timestamp=2\nid=D1&timestamp=3"
	assert.Equal(t, http.MethodPost, r.method)
	assert.Equal(t, "/", r.path)
	assert.Empty(t, r.rawQuery)
	assert.Equal(t, expected, r.body)
	assert.Equal(t, int64(len(expected)), r.contentLength)
}

func TestSendFailures(t *testing.T) {
	log.SetOutput(ioutil.Discard)

	t.Run("error status", func(t *testing.T) {
		c, _ := startServer(t, http.StatusInternalServerError)
		assert.Error(t, c.Send(context.Background(), transport.Request{Records: []string{"id=D1"}}))
	})

	t.Run("no content is success", func(t *testing.T) {
		c, _ := startServer(t, http.StatusNoContent)
		assert.NoError(t, c.Send(context.Background(), transport.Request{Records: []string{"id=D1"}}))
	})

	t.Run("connection refused", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		_, port, _ := net.SplitHostPort(l.Addr().String())
		l.Close()

		c := &Connector{}
		require.NoError(t, c.Init(map[string]string{"address": "127.0.0.1", "port": port, "timeout": "1"}))
		assert.Error(t, c.Send(context.Background(), transport.Request{Records: []string{"id=D1"}}))
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		}))
		defer srv.Close()
		host, port, _ := net.SplitHostPort(srv.Listener.Addr().String())

		c := &Connector{}
		require.NoError(t, c.Init(map[string]string{"address": host, "port": port}))
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		assert.Error(t, c.Send(ctx, transport.Request{Records: []string{"id=D1"}}))
	})

	t.Run("missing address", func(t *testing.T) {
		c := &Connector{}
		assert.Error(t, c.Init(map[string]string{"port": "5055"}))
	})
}
