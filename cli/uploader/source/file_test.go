package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/types"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTrack(t *testing.T, lines ...string) string {
	path := filepath.Join(t.TempDir(), "track.nmea")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\r\n")+"\r\n"), 0o644))
	return path
}

func collect(ctx context.Context, t *testing.T, r Reader) ([]types.Sample, error) {
	out := make(chan types.Sample)
	errs := make(chan error, 1)
	go func() {
		errs <- r.Run(ctx, out)
		close(out)
	}()

	var samples []types.Sample
	for s := range out {
		samples = append(samples, s)
	}
	return samples, <-errs
}

func TestFileReaderReplay(t *testing.T) {
	log.SetOutput(io.Discard)

	path := writeTrack(t,
		ggaFixed,
		rmcFixed,
		"garbage",
		rmcVoid,
		"$GPRMC,123523,A,4807.138,N,01131.000,E,010.0,090.0,230394,,*1D",
		"$GPRMC,123524,A,4807.238,N,01131.000,E,010.0,090.0,230394,,*19",
	)

	r, err := NewReader("nmea_file", map[string]string{"path": path, "rate": "0"})
	require.NoError(t, err)

	samples, err := collect(context.Background(), t, r)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.True(t, samples[0].HasAccuracy)
	assert.Equal(t, "nmea_file", samples[0].Provider)
	assert.Equal(t, 4*time.Second, samples[2].Time.Sub(samples[0].Time))
}

func TestFileReaderPacing(t *testing.T) {
	log.SetOutput(io.Discard)

	path := writeTrack(t,
		"$GPRMC,123523,A,4807.138,N,01131.000,E,010.0,090.0,230394,,*1D",
		"$GPRMC,123524,A,4807.238,N,01131.000,E,010.0,090.0,230394,,*19",
	)

	// секунда записи за 100 мс
	r, err := NewFileReader("replay", map[string]string{"path": path, "rate": "10"})
	require.NoError(t, err)

	started := time.Now()
	samples, err := collect(context.Background(), t, r)
	require.NoError(t, err)
	assert.Len(t, samples, 2)
	assert.GreaterOrEqual(t, time.Since(started), 90*time.Millisecond)
}

func TestFileReaderLoopStopsOnCancel(t *testing.T) {
	log.SetOutput(io.Discard)

	path := writeTrack(t, rmcFixed)
	r, err := NewFileReader("replay", map[string]string{"path": path, "rate": "0", "loop": "true"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan types.Sample)
	errs := make(chan error, 1)
	go func() { errs <- r.Run(ctx, out) }()

	for i := 0; i < 3; i++ {
		select {
		case <-out:
		case <-time.After(time.Second):
			t.Fatal("no sample from looped track")
		}
	}
	cancel()

	select {
	case err = <-errs:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reader did not stop")
	}
}

func TestFileReaderMissingFile(t *testing.T) {
	r, err := NewFileReader("replay", map[string]string{"path": filepath.Join(t.TempDir(), "absent.nmea")})
	require.NoError(t, err)

	_, err = collect(context.Background(), t, r)
	assert.Error(t, err)
}

func TestNewReaderErrors(t *testing.T) {
	log.SetOutput(io.Discard)

	tests := []struct {
		name   string
		source string
		params map[string]string
		want   error
	}{
		{"unknown type", "lidar", map[string]string{}, ErrUnknownSource},
		{"unknown explicit type", "gps", map[string]string{"type": "gpsd"}, ErrUnknownSource},
		{"file without path", "nmea_file", map[string]string{}, nil},
		{"negative rate", "nmea_file", map[string]string{"path": "t.nmea", "rate": "-1"}, nil},
		{"bad loop", "nmea_file", map[string]string{"path": "t.nmea", "loop": "sometimes"}, nil},
		{"serial without port", "nmea_serial", map[string]string{}, nil},
		{"serial bad baud", "nmea_serial", map[string]string{"port": "/dev/ttyS0", "baud_rate": "fast"}, nil},
		{"serial bad parity", "nmea_serial", map[string]string{"port": "/dev/ttyS0", "parity": "X"}, nil},
		{"serial bad stop bits", "nmea_serial", map[string]string{"port": "/dev/ttyS0", "stop_bits": "3"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(tt.source, tt.params)
			assert.Error(t, err)
			assert.Nil(t, r)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
