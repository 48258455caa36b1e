package uploader

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/daniil11ru/tracker/cli/uploader/uploader/transport"
	"github.com/daniil11ru/tracker/cli/uploader/types"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// FormatRecord кодирует точку строкой параметров в фиксированном порядке полей
func FormatRecord(p types.Position) string {
	params := [][2]string{
		{"id", p.DeviceID},
		{"timestamp", strconv.FormatInt(p.Timestamp(), 10)},
		{"lat", formatFloat(p.Latitude)},
		{"lon", formatFloat(p.Longitude)},
		{"hacc", formatFloat(p.HorizontalAccuracy)},
		{"speed", formatFloat(p.Speed)},
		{"bearing", formatFloat(p.Course)},
		{"altitude", formatFloat(p.Altitude)},
		{"batt", formatFloat(p.Battery)},
	}

	var b strings.Builder
	for i, param := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(param[0])
		b.WriteByte('=')
		b.WriteString(escape(param[1]))
	}
	return b.String()
}

func FormatRequest(batch []types.Position) transport.Request {
	records := make([]string, len(batch))
	for i, p := range batch {
		records[i] = FormatRecord(p)
	}
	return transport.Request{Records: records}
}
