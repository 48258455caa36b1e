package config

/*
Описание конфигурационного файла трекера
*/

import (
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"gopkg.in/yaml.v2"
)

var ErrConfiguration = errors.New("ошибка конфигурации")

const (
	ProviderSimple = "simple"
	ProviderMixed  = "mixed"

	WakeLockNone    = "none"
	WakeLockSystemd = "systemd"

	defaultPort            = 5055
	defaultRetryDelay      = 30
	defaultRequestTimeout  = 15
	defaultWakeLockTimeout = 60
	defaultProbeInterval   = 5
	defaultFallbackAfter   = 30
	defaultSqlitePath      = "data/positions.db"
)

var defaultMeteredInterfaces = []string{"wwan*", "wwp*", "ppp*", "rmnet*", "usb*"}

type Connectivity struct {
	MeteredInterfaces []string `yaml:"metered_interfaces"`
	ProbeInterval     int      `yaml:"probe_interval"`
	ProbeAddress      string   `yaml:"probe_address"`
}

type Settings struct {
	DeviceID string `yaml:"device_id"`
	Address  string `yaml:"address"`
	Port     int    `yaml:"port"`

	Interval             int `yaml:"interval"`
	MinAccuracy          int `yaml:"min_accuracy"`
	DistanceThreshold    int `yaml:"distance_threshold"`
	SpeedDeltaThreshold  int `yaml:"speed_delta_threshold"`
	CourseDeltaThreshold int `yaml:"course_delta_threshold"`

	ReportInterval  int   `yaml:"report_interval"`
	BatchReportNum  int   `yaml:"batch_report_num"`
	SaveTraffic     *bool `yaml:"save_traffic"`
	RetryDelay      int   `yaml:"retry_delay"`
	RequestTimeout  int   `yaml:"request_timeout"`
	WakeLockTimeout int   `yaml:"wake_lock_timeout"`

	WakeLock      string `yaml:"wake_lock"`
	Provider      string `yaml:"provider"`
	FallbackAfter int    `yaml:"fallback_after"`

	Source    map[string]map[string]string `yaml:"source"`
	Storage   map[string]map[string]string `yaml:"storage"`
	Transport map[string]map[string]string `yaml:"transport"`

	Connectivity Connectivity `yaml:"connectivity"`

	ApiPort int `yaml:"api_port"`

	LogLevel      string `yaml:"log_level"`
	LogFilePath   string `yaml:"log_file_path"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`
}

func (s *Settings) GetLogLevel() log.Level {
	var lvl log.Level

	switch s.LogLevel {
	case "DEBUG":
		lvl = log.DebugLevel
	case "INFO":
		lvl = log.InfoLevel
	case "WARN":
		lvl = log.WarnLevel
	case "ERROR":
		lvl = log.ErrorLevel
	default:
		lvl = log.InfoLevel
	}
	return lvl
}

func (s *Settings) GetPeriod() time.Duration {
	return time.Duration(s.Interval) * time.Second
}

// GetSpeedDeltaThreshold порог изменения скорости в м/с, в конфиге задается в км/ч
func (s *Settings) GetSpeedDeltaThreshold() float64 {
	return float64(s.SpeedDeltaThreshold) / 3.6
}

func (s *Settings) GetReportInterval() time.Duration {
	return time.Duration(s.ReportInterval) * time.Second
}

func (s *Settings) GetRetryDelay() time.Duration {
	return time.Duration(s.RetryDelay) * time.Second
}

func (s *Settings) GetRequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

func (s *Settings) GetWakeLockTimeout() time.Duration {
	return time.Duration(s.WakeLockTimeout) * time.Second
}

func (s *Settings) GetProbeInterval() time.Duration {
	return time.Duration(s.Connectivity.ProbeInterval) * time.Second
}

// GetFallbackAfter сколько основной источник может молчать, прежде чем провайдер mixed возьмет точки у резервного
func (s *Settings) GetFallbackAfter() time.Duration {
	return time.Duration(s.FallbackAfter) * time.Second
}

func (s *Settings) GetSaveTraffic() bool {
	return s.SaveTraffic == nil || *s.SaveTraffic
}

// GetTransportName имя транспорта и его настройки, по умолчанию http
func (s *Settings) GetTransportName() (string, map[string]string) {
	for name, params := range s.Transport {
		return name, params
	}
	return "http", map[string]string{}
}

func New(confPath string) (Settings, error) {
	c := Settings{}
	data, err := os.ReadFile(confPath)
	if err != nil {
		return c, err
	}
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return c, err
	}

	c.fillDefaults()

	if err = c.Validate(); err != nil {
		return c, err
	}

	return c, nil
}

func (s *Settings) fillDefaults() {
	if s.Port == 0 {
		s.Port = defaultPort
	}
	if s.BatchReportNum < 1 {
		if s.BatchReportNum < 0 {
			log.Warnf("Некорректный batch_report_num (%d), используется 1", s.BatchReportNum)
		}
		s.BatchReportNum = 1
	}
	if s.RetryDelay == 0 {
		s.RetryDelay = defaultRetryDelay
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = defaultRequestTimeout
	}
	if s.WakeLockTimeout == 0 {
		s.WakeLockTimeout = defaultWakeLockTimeout
	}
	if s.WakeLock == "" {
		s.WakeLock = WakeLockNone
	}
	if s.Provider == "" {
		s.Provider = ProviderSimple
	}
	if s.FallbackAfter == 0 {
		s.FallbackAfter = defaultFallbackAfter
	}
	if len(s.Storage) == 0 {
		s.Storage = map[string]map[string]string{
			"sqlite": {"path": defaultSqlitePath},
		}
	}
	if s.Connectivity.ProbeInterval == 0 {
		s.Connectivity.ProbeInterval = defaultProbeInterval
	}
	if len(s.Connectivity.MeteredInterfaces) == 0 {
		s.Connectivity.MeteredInterfaces = defaultMeteredInterfaces
	}
}

func (s *Settings) Validate() error {
	if s.DeviceID == "" {
		return fmt.Errorf("%w: не задан device_id", ErrConfiguration)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("%w: некорректный port %d", ErrConfiguration, s.Port)
	}

	transport, _ := s.GetTransportName()
	if transport == "http" && s.Address == "" {
		return fmt.Errorf("%w: не задан address сервера", ErrConfiguration)
	}
	if len(s.Transport) > 1 {
		return fmt.Errorf("%w: допускается только один транспорт, задано %d", ErrConfiguration, len(s.Transport))
	}
	if len(s.Storage) > 1 {
		return fmt.Errorf("%w: допускается только одно хранилище, задано %d", ErrConfiguration, len(s.Storage))
	}
	if len(s.Source) == 0 {
		return fmt.Errorf("%w: не задан ни один источник координат", ErrConfiguration)
	}

	for name, value := range map[string]int{
		"interval":               s.Interval,
		"min_accuracy":           s.MinAccuracy,
		"distance_threshold":     s.DistanceThreshold,
		"speed_delta_threshold":  s.SpeedDeltaThreshold,
		"course_delta_threshold": s.CourseDeltaThreshold,
		"report_interval":        s.ReportInterval,
	} {
		if value < 0 {
			return fmt.Errorf("%w: %s не может быть отрицательным (%d)", ErrConfiguration, name, value)
		}
	}

	for name, value := range map[string]int{
		"retry_delay":       s.RetryDelay,
		"request_timeout":   s.RequestTimeout,
		"wake_lock_timeout": s.WakeLockTimeout,
		"probe_interval":    s.Connectivity.ProbeInterval,
		"fallback_after":    s.FallbackAfter,
	} {
		if value <= 0 {
			return fmt.Errorf("%w: %s должен быть положительным (%d)", ErrConfiguration, name, value)
		}
	}

	switch s.WakeLock {
	case WakeLockNone, WakeLockSystemd:
	default:
		return fmt.Errorf("%w: неизвестный wake_lock '%s'", ErrConfiguration, s.WakeLock)
	}

	switch s.Provider {
	case ProviderSimple:
		if len(s.Source) != 1 {
			return fmt.Errorf("%w: для провайдера simple нужен ровно один источник, задано %d", ErrConfiguration, len(s.Source))
		}
	case ProviderMixed:
		if len(s.Source) < 2 {
			return fmt.Errorf("%w: для провайдера mixed нужно минимум два источника", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: неизвестный provider '%s'", ErrConfiguration, s.Provider)
	}

	return nil
}
