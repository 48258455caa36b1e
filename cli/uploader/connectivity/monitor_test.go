package connectivity

import (
	"context"
	"errors"
	"io/ioutil"
	"sync"
	"testing"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/types"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type scriptedProber struct {
	mu      sync.Mutex
	results []types.Connectivity
	err     error
}

func (p *scriptedProber) Probe(context.Context) (types.Connectivity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return types.OnlineUnmetered, p.err
	}
	status := p.results[0]
	if len(p.results) > 1 {
		p.results = p.results[1:]
	}
	return status, nil
}

type eventLog struct {
	mu     sync.Mutex
	events []types.Connectivity
}

func (e *eventLog) add(c types.Connectivity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, c)
}

func (e *eventLog) all() []types.Connectivity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]types.Connectivity(nil), e.events...)
}

func TestMonitorEmitsOnlyChanges(t *testing.T) {
	log.SetOutput(ioutil.Discard)
	prober := &scriptedProber{results: []types.Connectivity{
		types.Offline,
		types.OnlineMetered,
		types.OnlineMetered,
		types.OnlineUnmetered,
		types.OnlineUnmetered,
		types.Offline,
	}}
	m := NewMonitor(prober, time.Second)
	events := &eventLog{}
	m.Subscribe(events.add)

	assert.Equal(t, types.Offline, m.CurrentStatus())
	for i := 0; i < 6; i++ {
		m.Poll(context.Background())
	}

	assert.Equal(t, []types.Connectivity{types.OnlineMetered, types.OnlineUnmetered, types.Offline}, events.all())
	assert.Equal(t, types.Offline, m.CurrentStatus())
}

func TestMonitorProbeErrorIsOffline(t *testing.T) {
	log.SetOutput(ioutil.Discard)
	prober := &scriptedProber{results: []types.Connectivity{types.OnlineMetered}}
	m := NewMonitor(prober, time.Second)
	events := &eventLog{}
	m.Subscribe(events.add)

	assert.Equal(t, types.OnlineMetered, m.Poll(context.Background()))

	prober.mu.Lock()
	prober.err = errors.New("netlink unavailable")
	prober.mu.Unlock()
	assert.Equal(t, types.Offline, m.Poll(context.Background()))
	assert.Equal(t, []types.Connectivity{types.OnlineMetered, types.Offline}, events.all())
}

func TestMonitorRun(t *testing.T) {
	log.SetOutput(ioutil.Discard)
	prober := &scriptedProber{results: []types.Connectivity{types.OnlineUnmetered}}
	m := NewMonitor(prober, 10*time.Millisecond)
	events := &eventLog{}
	m.Subscribe(events.add)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return m.CurrentStatus() == types.OnlineUnmetered
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, []types.Connectivity{types.OnlineUnmetered}, events.all())
}
