package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		lat1     float64
		lon1     float64
		lat2     float64
		lon2     float64
		expected float64
		delta    float64
	}{
		{name: "Same point", lat1: 55.75, lon1: 37.61, lat2: 55.75, lon2: 37.61, expected: 0, delta: 0.001},
		{name: "One degree of latitude", lat1: 0, lon1: 0, lat2: 1, lon2: 0, expected: 111195, delta: 1},
		{name: "One degree of longitude on equator", lat1: 0, lon1: 0, lat2: 0, lon2: 1, expected: 111195, delta: 1},
		{name: "Moscow to Saint Petersburg", lat1: 55.7558, lon1: 37.6173, lat2: 59.9343, lon2: 30.3351, expected: 634000, delta: 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2), tt.delta)
		})
	}
}

func TestSampleDistanceToNil(t *testing.T) {
	s := &Sample{Latitude: 1, Longitude: 1}
	assert.Equal(t, 0.0, s.DistanceTo(nil))
}

func TestPositionTimestamp(t *testing.T) {
	p := Position{Time: time.Date(2024, time.March, 1, 12, 0, 0, 123456789, time.UTC)}
	assert.Equal(t, int64(1709294400123), p.Timestamp())
}

func TestIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, IDs([]Position{{ID: 3}, {ID: 1}, {ID: 2}}))
	assert.Empty(t, IDs(nil))
}

func TestConnectivityOnline(t *testing.T) {
	assert.False(t, Offline.Online())
	assert.True(t, OnlineMetered.Online())
	assert.True(t, OnlineUnmetered.Online())
	assert.Equal(t, "OnlineMetered", OnlineMetered.String())
}
