package types

import (
	"math"
	"time"
)

const earthRadius = 6371000.0

// Position принятая фильтром точка, неизменяемая после создания
type Position struct {
	ID                 int64
	DeviceID           string
	Time               time.Time
	Latitude           float64
	Longitude          float64
	HorizontalAccuracy float64
	Altitude           float64
	Speed              float64
	Course             float64
	Battery            float64
}

// Timestamp время фиксации в миллисекундах с начала эпохи
func (p Position) Timestamp() int64 {
	return p.Time.UnixMilli()
}

// Sample сырое показание источника координат
type Sample struct {
	Time      time.Time
	Latitude  float64
	Longitude float64
	Altitude  float64

	Accuracy    float64
	HasAccuracy bool
	Speed       float64
	HasSpeed    bool
	Bearing     float64
	HasBearing  bool

	Provider string
}

// DistanceTo расстояние по большому кругу в метрах
func (s *Sample) DistanceTo(other *Sample) float64 {
	if s == nil || other == nil {
		return 0
	}
	return Distance(s.Latitude, s.Longitude, other.Latitude, other.Longitude)
}

func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}

func IDs(positions []Position) []int64 {
	ids := make([]int64, len(positions))
	for i, p := range positions {
		ids[i] = p.ID
	}
	return ids
}
