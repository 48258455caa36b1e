package filter

import (
	"io/ioutil"
	"slices"
	"testing"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/types"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sample(offset time.Duration, accuracy float64) *types.Sample {
	return &types.Sample{
		Time:        start.Add(offset),
		Latitude:    55.7558,
		Longitude:   37.6173,
		Accuracy:    accuracy,
		HasAccuracy: true,
	}
}

func strictConfig() Config {
	return Config{
		DeviceID:             "D1",
		Period:               time.Hour,
		MinAccuracy:          50,
		DistanceThreshold:    100,
		SpeedDeltaThreshold:  10 / 3.6,
		CourseDeltaThreshold: 30,
	}
}

func TestAcceptFirstSample(t *testing.T) {
	log.SetOutput(ioutil.Discard)
	f := New(strictConfig(), func() float64 { return 42 })

	s := sample(0, 10)
	s.Altitude = 150
	s.Speed = 3
	s.HasSpeed = true
	s.Bearing = 90
	s.HasBearing = true

	p, ok := f.Accept(s)
	require.True(t, ok)
	assert.Equal(t, types.Position{
		DeviceID:           "D1",
		Time:               start,
		Latitude:           55.7558,
		Longitude:          37.6173,
		HorizontalAccuracy: 10,
		Altitude:           150,
		Speed:              3,
		Course:             90,
		Battery:            42,
	}, p)
}

func TestAcceptRejections(t *testing.T) {
	log.SetOutput(ioutil.Discard)

	tests := []struct {
		name   string
		sample func() *types.Sample
	}{
		{
			name:   "nil sample",
			sample: func() *types.Sample { return nil },
		},
		{
			name: "no accuracy",
			sample: func() *types.Sample {
				s := sample(time.Minute, 0)
				s.HasAccuracy = false
				return s
			},
		},
		{
			name:   "accuracy worse than minimum",
			sample: func() *types.Sample { return sample(time.Minute, 51) },
		},
		{
			name: "same time as last accepted",
			sample: func() *types.Sample {
				s := sample(0, 1)
				s.Latitude = 10
				return s
			},
		},
		{
			name:   "nothing significant changed",
			sample: func() *types.Sample { return sample(time.Minute, 20) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(strictConfig(), nil)
			_, ok := f.Accept(sample(0, 20))
			require.True(t, ok)

			_, ok = f.Accept(tt.sample())
			assert.False(t, ok)
		})
	}
}

func TestAcceptSignificance(t *testing.T) {
	log.SetOutput(ioutil.Discard)

	tests := []struct {
		name   string
		last   func() *types.Sample
		next   func() *types.Sample
		accept bool
	}{
		{
			name:   "better accuracy",
			last:   func() *types.Sample { return sample(0, 20) },
			next:   func() *types.Sample { return sample(time.Second, 19) },
			accept: true,
		},
		{
			name: "speed appears",
			last: func() *types.Sample { return sample(0, 20) },
			next: func() *types.Sample {
				s := sample(time.Second, 20)
				s.Speed, s.HasSpeed = 1, true
				return s
			},
			accept: true,
		},
		{
			name: "speed change above threshold",
			last: func() *types.Sample {
				s := sample(0, 20)
				s.Speed, s.HasSpeed = 1, true
				return s
			},
			next: func() *types.Sample {
				s := sample(time.Second, 20)
				s.Speed, s.HasSpeed = 1+10/3.6, true
				return s
			},
			accept: true,
		},
		{
			name: "speed change below threshold",
			last: func() *types.Sample {
				s := sample(0, 20)
				s.Speed, s.HasSpeed = 1, true
				return s
			},
			next: func() *types.Sample {
				s := sample(time.Second, 20)
				s.Speed, s.HasSpeed = 2, true
				return s
			},
			accept: false,
		},
		{
			name: "bearing appears",
			last: func() *types.Sample { return sample(0, 20) },
			next: func() *types.Sample {
				s := sample(time.Second, 20)
				s.Bearing, s.HasBearing = 10, true
				return s
			},
			accept: true,
		},
		{
			name: "course change above threshold",
			last: func() *types.Sample {
				s := sample(0, 20)
				s.Bearing, s.HasBearing = 10, true
				return s
			},
			next: func() *types.Sample {
				s := sample(time.Second, 20)
				s.Bearing, s.HasBearing = 40, true
				return s
			},
			accept: true,
		},
		{
			name: "course change below threshold",
			last: func() *types.Sample {
				s := sample(0, 20)
				s.Bearing, s.HasBearing = 10, true
				return s
			},
			next: func() *types.Sample {
				s := sample(time.Second, 20)
				s.Bearing, s.HasBearing = 39, true
				return s
			},
			accept: false,
		},
		{
			name:   "period elapsed",
			last:   func() *types.Sample { return sample(0, 20) },
			next:   func() *types.Sample { return sample(time.Hour, 20) },
			accept: true,
		},
		{
			name: "distance above threshold",
			last: func() *types.Sample { return sample(0, 20) },
			next: func() *types.Sample {
				s := sample(time.Second, 20)
				// ~111 m to the north
				s.Latitude += 0.001
				return s
			},
			accept: true,
		},
		{
			name: "distance below threshold",
			last: func() *types.Sample { return sample(0, 20) },
			next: func() *types.Sample {
				s := sample(time.Second, 20)
				s.Latitude += 0.0005
				return s
			},
			accept: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(strictConfig(), nil)
			_, ok := f.Accept(tt.last())
			require.True(t, ok)

			_, ok = f.Accept(tt.next())
			assert.Equal(t, tt.accept, ok)
		})
	}
}

func TestRejectedSampleDoesNotMoveLastAccepted(t *testing.T) {
	log.SetOutput(ioutil.Discard)
	f := New(strictConfig(), nil)

	_, ok := f.Accept(sample(0, 20))
	require.True(t, ok)

	// each step is ~55 m, below the threshold, but the sum crosses it
	near := sample(time.Second, 20)
	near.Latitude += 0.0005
	_, ok = f.Accept(near)
	require.False(t, ok)

	far := sample(2*time.Second, 20)
	far.Latitude += 0.001
	_, ok = f.Accept(far)
	assert.True(t, ok)
}

func TestZeroPeriodAcceptsEverySample(t *testing.T) {
	log.SetOutput(ioutil.Discard)
	f := New(Config{DeviceID: "D1"}, nil)

	for i := 0; i < 3; i++ {
		_, ok := f.Accept(sample(time.Duration(i)*time.Second, 20))
		assert.True(t, ok)
	}
}

func TestPositions(t *testing.T) {
	log.SetOutput(ioutil.Discard)
	f := New(strictConfig(), nil)

	samples := []types.Sample{
		*sample(0, 20),
		*sample(time.Second, 20),
		*sample(0, 10),
		*sample(time.Hour, 20),
		*sample(2*time.Hour, 80),
	}

	var times []time.Time
	for p := range f.Positions(slices.Values(samples)) {
		times = append(times, p.Time)
	}
	assert.Equal(t, []time.Time{start, start.Add(time.Hour)}, times)
}

func TestPositionsStopsEarly(t *testing.T) {
	log.SetOutput(ioutil.Discard)
	f := New(Config{DeviceID: "D1"}, nil)

	samples := []types.Sample{*sample(0, 20), *sample(time.Second, 20), *sample(2*time.Second, 20)}
	count := 0
	for range f.Positions(slices.Values(samples)) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
