package pipeline

import (
	"context"
	"errors"
	"io"
	"iter"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/filter"
	"github.com/daniil11ru/tracker/cli/uploader/types"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu        sync.Mutex
	positions []types.Position
	fail      error
}

func (s *recordingSink) OnSampleAccepted(_ context.Context, p types.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.positions = append(s.positions, p)
	return nil
}

func (s *recordingSink) times() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []int64
	for _, p := range s.positions {
		result = append(result, p.Time.Unix())
	}
	return result
}

type sliceProvider []types.Sample

func (p sliceProvider) Samples(context.Context) iter.Seq[types.Sample] {
	return slices.Values(p)
}

func sample(sec int64, accuracy float64) types.Sample {
	return types.Sample{Time: time.Unix(sec, 0), Latitude: 55, Longitude: 37, Accuracy: accuracy, HasAccuracy: true}
}

func newFilter() *filter.Filter {
	return filter.New(filter.Config{DeviceID: "D1", MinAccuracy: 50}, nil)
}

func TestPipelineFiltersAndStores(t *testing.T) {
	log.SetOutput(io.Discard)

	sink := &recordingSink{}
	p := New(newFilter(), sink, 4)

	require.NoError(t, p.Run(context.Background(), sliceProvider{
		sample(10, 5),
		sample(10, 5),  // то же время
		sample(11, 80), // плохая точность
		sample(12, 5),
	}))
	p.Close()

	assert.Equal(t, []int64{10, 12}, sink.times())
	assert.Equal(t, Stats{Received: 4, Accepted: 2}, p.Stats())
}

func TestPipelineSinkFailure(t *testing.T) {
	log.SetOutput(io.Discard)

	sink := &recordingSink{fail: errors.New("disk full")}
	p := New(newFilter(), sink, 0)

	require.NoError(t, p.Save(sample(1, 5)))
	p.Close()

	assert.Equal(t, Stats{Received: 1, Accepted: 1, Failed: 1}, p.Stats())
}

func TestPipelineSaveAfterClose(t *testing.T) {
	log.SetOutput(io.Discard)

	p := New(newFilter(), &recordingSink{}, 1)
	p.Close()
	p.Close()

	assert.ErrorIs(t, p.Save(sample(1, 5)), ErrClosed)
	assert.ErrorIs(t, p.Run(context.Background(), sliceProvider{sample(1, 5)}), ErrClosed)
}

func TestPipelineConcurrentSave(t *testing.T) {
	log.SetOutput(io.Discard)

	sink := &recordingSink{}
	p := New(newFilter(), sink, DefaultBuffer)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, p.Save(sample(int64(100+i), 5)))
		}(i)
	}
	wg.Wait()
	p.Close()

	assert.EqualValues(t, 10, p.Stats().Received)
	assert.NotEmpty(t, sink.times())
}
