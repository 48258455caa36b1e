package source

/*
Воспроизведение записанного трека NMEA. При rate > 0 показания отдаются с
интервалами из записи, ускоренными в rate раз, при rate = 0 без пауз.

Раздел настроек в конфиге:

path = "track.nmea"
rate = "1"
loop = "false"
*/

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/connector"
	"github.com/daniil11ru/tracker/cli/uploader/types"
	log "github.com/sirupsen/logrus"
)

type FileReader struct {
	name string
	path string
	rate float64
	loop bool
}

func NewFileReader(name string, params map[string]string) (*FileReader, error) {
	path := params["path"]
	if path == "" {
		return nil, fmt.Errorf("не задан path для источника %s", name)
	}

	rate, err := strconv.ParseFloat(connector.GetOptionValue("rate", "1", params), 64)
	if err != nil || rate < 0 {
		return nil, fmt.Errorf("некорректный rate для источника %s: %s", name, params["rate"])
	}
	loop, err := strconv.ParseBool(connector.GetOptionValue("loop", "false", params))
	if err != nil {
		return nil, fmt.Errorf("некорректный loop для источника %s: %v", name, err)
	}

	return &FileReader{name: name, path: path, rate: rate, loop: loop}, nil
}

func (r *FileReader) Run(ctx context.Context, out chan<- types.Sample) error {
	for {
		if err := r.replay(ctx, out); err != nil {
			return err
		}
		if !r.loop || ctx.Err() != nil {
			return nil
		}
		log.WithField("source", r.name).Debug("Трек воспроизведен, повтор")
	}
}

func (r *FileReader) replay(ctx context.Context, out chan<- types.Sample) error {
	file, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("не удалось открыть трек %s: %w", r.path, err)
	}
	defer file.Close()

	return scan(ctx, file, &Parser{Provider: r.name}, out, r.pacer(ctx))
}

func (r *FileReader) pacer(ctx context.Context) func(types.Sample) error {
	if r.rate == 0 {
		return nil
	}

	var previous time.Time
	return func(s types.Sample) error {
		defer func() { previous = s.Time }()
		if previous.IsZero() || !s.Time.After(previous) {
			return nil
		}

		timer := time.NewTimer(time.Duration(float64(s.Time.Sub(previous)) / r.rate))
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
