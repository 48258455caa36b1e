package filter

import (
	"iter"
	"math"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/types"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	DeviceID string
	// Period интервал, после которого точка принимается независимо от других порогов
	Period time.Duration
	// MinAccuracy максимально допустимая погрешность в метрах, 0 отключает проверку
	MinAccuracy          float64
	DistanceThreshold    float64
	SpeedDeltaThreshold  float64
	CourseDeltaThreshold float64
}

// Filter отбирает значимые показания. Не предназначен для конкурентного вызова Accept.
type Filter struct {
	cfg     Config
	battery func() float64
	last    *types.Sample
}

func New(cfg Config, battery func() float64) *Filter {
	if battery == nil {
		battery = func() float64 { return 0 }
	}
	return &Filter{cfg: cfg, battery: battery}
}

// Accept возвращает точку и true, если показание прошло фильтр
func (f *Filter) Accept(s *types.Sample) (types.Position, bool) {
	if s == nil {
		log.Debug("Пустое показание отброшено")
		return types.Position{}, false
	}
	if f.last != nil && s.Time.Equal(f.last.Time) {
		log.WithField("time", s.Time).Debug("Показание с тем же временем отброшено")
		return types.Position{}, false
	}
	if !s.HasAccuracy || (f.cfg.MinAccuracy > 0 && s.Accuracy > f.cfg.MinAccuracy) {
		log.WithField("accuracy", s.Accuracy).Debug("Показание с недостаточной точностью отброшено")
		return types.Position{}, false
	}
	if !f.significant(s) {
		log.Debug("Показание не отличается от предыдущего")
		return types.Position{}, false
	}

	accepted := *s
	f.last = &accepted

	p := types.Position{
		DeviceID:           f.cfg.DeviceID,
		Time:               s.Time,
		Latitude:           s.Latitude,
		Longitude:          s.Longitude,
		HorizontalAccuracy: s.Accuracy,
		Altitude:           s.Altitude,
		Speed:              s.Speed,
		Course:             s.Bearing,
		Battery:            f.battery(),
	}
	log.WithFields(log.Fields{"lat": p.Latitude, "lon": p.Longitude}).Debug("Новая точка")
	return p, true
}

func (f *Filter) significant(s *types.Sample) bool {
	last := f.last
	switch {
	case last == nil:
		return true
	case s.Accuracy < last.Accuracy:
		return true
	case s.HasSpeed && (!last.HasSpeed ||
		f.cfg.SpeedDeltaThreshold > 0 && math.Abs(s.Speed-last.Speed) >= f.cfg.SpeedDeltaThreshold):
		return true
	case s.HasBearing && (!last.HasBearing ||
		f.cfg.CourseDeltaThreshold > 0 && math.Abs(s.Bearing-last.Bearing) >= f.cfg.CourseDeltaThreshold):
		return true
	case s.Time.Sub(last.Time) >= f.cfg.Period:
		return true
	case f.cfg.DistanceThreshold > 0 && s.DistanceTo(last) >= f.cfg.DistanceThreshold:
		return true
	}
	return false
}

// Positions ленивая последовательность принятых точек
func (f *Filter) Positions(samples iter.Seq[types.Sample]) iter.Seq[types.Position] {
	return func(yield func(types.Position) bool) {
		for s := range samples {
			if p, ok := f.Accept(&s); ok {
				if !yield(p) {
					return
				}
			}
		}
	}
}
