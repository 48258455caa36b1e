package source

/*
Разбор NMEA 0183. Точка формируется по предложению RMC, высота и точность берутся
из GGA той же эпохи, если он пришел раньше RMC.

	$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47
	$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A
*/

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/types"
)

const (
	knotsToMetersPerSecond = 0.514444
	// ошибка измерения псевдодальности, умножается на HDOP
	userEquivalentRangeError = 5.0
)

var (
	ErrChecksum = errors.New("неверная контрольная сумма NMEA")
	ErrSentence = errors.New("некорректное предложение NMEA")
)

type ggaFix struct {
	clock    string
	altitude float64
	hdop     float64
	hasHdop  bool
}

// Parser собирает показания из потока предложений одного приемника
type Parser struct {
	Provider string
	gga      *ggaFix
}

// Parse разбирает одно предложение. ok = true, если предложение дало новое показание.
func (p *Parser) Parse(line string) (sample types.Sample, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return sample, false, nil
	}
	if line[0] != '$' {
		return sample, false, fmt.Errorf("%w: %q", ErrSentence, line)
	}

	body := line[1:]
	if star := strings.LastIndexByte(body, '*'); star >= 0 {
		if err = verifyChecksum(body[:star], body[star+1:]); err != nil {
			return sample, false, err
		}
		body = body[:star]
	}

	fields := strings.Split(body, ",")
	if len(fields[0]) < 5 {
		return sample, false, fmt.Errorf("%w: %q", ErrSentence, line)
	}

	switch fields[0][len(fields[0])-3:] {
	case "GGA":
		return sample, false, p.parseGGA(fields)
	case "RMC":
		return p.parseRMC(fields)
	}
	return sample, false, nil
}

func verifyChecksum(data, sum string) error {
	expected, err := strconv.ParseUint(strings.TrimSpace(sum), 16, 8)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrChecksum, sum)
	}

	var actual byte
	for i := 0; i < len(data); i++ {
		actual ^= data[i]
	}
	if actual != byte(expected) {
		return fmt.Errorf("%w: ожидалось %02X, получено %02X", ErrChecksum, expected, actual)
	}
	return nil
}

func (p *Parser) parseGGA(fields []string) error {
	if len(fields) < 10 {
		return fmt.Errorf("%w: GGA содержит %d полей", ErrSentence, len(fields))
	}
	if fields[6] == "" || fields[6] == "0" {
		p.gga = nil
		return nil
	}

	fix := &ggaFix{clock: fields[1]}
	if fields[8] != "" {
		hdop, err := strconv.ParseFloat(fields[8], 64)
		if err != nil {
			return fmt.Errorf("%w: HDOP %q", ErrSentence, fields[8])
		}
		fix.hdop, fix.hasHdop = hdop, true
	}
	if fields[9] != "" {
		alt, err := strconv.ParseFloat(fields[9], 64)
		if err != nil {
			return fmt.Errorf("%w: высота %q", ErrSentence, fields[9])
		}
		fix.altitude = alt
	}
	p.gga = fix
	return nil
}

func (p *Parser) parseRMC(fields []string) (sample types.Sample, ok bool, err error) {
	if len(fields) < 10 {
		return sample, false, fmt.Errorf("%w: RMC содержит %d полей", ErrSentence, len(fields))
	}
	// V - приемник не определил координаты
	if fields[2] != "A" {
		return sample, false, nil
	}

	if sample.Time, err = parseDateTime(fields[9], fields[1]); err != nil {
		return sample, false, err
	}
	if sample.Latitude, err = parseCoordinate(fields[3], fields[4], 2); err != nil {
		return sample, false, err
	}
	if sample.Longitude, err = parseCoordinate(fields[5], fields[6], 3); err != nil {
		return sample, false, err
	}

	if fields[7] != "" {
		knots, err := strconv.ParseFloat(fields[7], 64)
		if err != nil {
			return sample, false, fmt.Errorf("%w: скорость %q", ErrSentence, fields[7])
		}
		sample.Speed, sample.HasSpeed = knots*knotsToMetersPerSecond, true
	}
	if fields[8] != "" {
		course, err := strconv.ParseFloat(fields[8], 64)
		if err != nil {
			return sample, false, fmt.Errorf("%w: курс %q", ErrSentence, fields[8])
		}
		sample.Bearing, sample.HasBearing = course, true
	}

	if p.gga != nil && p.gga.clock == fields[1] {
		sample.Altitude = p.gga.altitude
		if p.gga.hasHdop {
			sample.Accuracy, sample.HasAccuracy = p.gga.hdop*userEquivalentRangeError, true
		}
	}
	sample.Provider = p.Provider
	return sample, true, nil
}

func parseDateTime(date, clock string) (time.Time, error) {
	if len(date) != 6 || len(clock) < 6 {
		return time.Time{}, fmt.Errorf("%w: время %q %q", ErrSentence, date, clock)
	}

	layout := "020106150405"
	if len(clock) > 6 {
		layout += clock[6:7] + strings.Repeat("0", len(clock)-7)
	}
	t, err := time.ParseInLocation(layout, date+clock, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: время %q %q", ErrSentence, date, clock)
	}
	return t, nil
}

// parseCoordinate переводит ddmm.mmmm / dddmm.mmmm в десятичные градусы
func parseCoordinate(value, hemisphere string, degreeDigits int) (float64, error) {
	if len(value) < degreeDigits+2 {
		return 0, fmt.Errorf("%w: координата %q", ErrSentence, value)
	}

	degrees, err := strconv.ParseFloat(value[:degreeDigits], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: координата %q", ErrSentence, value)
	}
	minutes, err := strconv.ParseFloat(value[degreeDigits:], 64)
	if err != nil || minutes >= 60 {
		return 0, fmt.Errorf("%w: координата %q", ErrSentence, value)
	}

	result := degrees + minutes/60
	switch hemisphere {
	case "N", "E":
	case "S", "W":
		result = -result
	default:
		return 0, fmt.Errorf("%w: полушарие %q", ErrSentence, hemisphere)
	}
	return result, nil
}
