package battery

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const powerSupplyDir = "/sys/class/power_supply"

// Reader читает уровень заряда батареи из sysfs
type Reader struct {
	dir string
}

func NewReader() *Reader {
	return &Reader{dir: powerSupplyDir}
}

// Level уровень заряда в процентах, 0 если батареи нет или значение не прочитать
func (r *Reader) Level() float64 {
	matches, err := filepath.Glob(filepath.Join(r.dir, "BAT*", "capacity"))
	if err != nil || len(matches) == 0 {
		return 0
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		log.WithField("err", err).Debug("Не удалось прочитать уровень заряда")
		return 0
	}

	level, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil || level < 0 || level > 100 {
		log.WithField("value", string(data)).Debug("Некорректный уровень заряда")
		return 0
	}
	return level
}
