package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/daniil11ru/tracker/cli/uploader/api"
	"github.com/daniil11ru/tracker/cli/uploader/battery"
	"github.com/daniil11ru/tracker/cli/uploader/config"
	"github.com/daniil11ru/tracker/cli/uploader/connectivity"
	"github.com/daniil11ru/tracker/cli/uploader/controller"
	"github.com/daniil11ru/tracker/cli/uploader/filter"
	"github.com/daniil11ru/tracker/cli/uploader/pipeline"
	"github.com/daniil11ru/tracker/cli/uploader/source"
	"github.com/daniil11ru/tracker/cli/uploader/status"
	"github.com/daniil11ru/tracker/cli/uploader/storage"
	"github.com/daniil11ru/tracker/cli/uploader/uploader"
	"github.com/daniil11ru/tracker/cli/uploader/wakelock"
	"github.com/gin-gonic/gin"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	configFilePath := ""
	flag.StringVar(&configFilePath, "c", "", "")
	flag.Parse()
	settings, err := getConfig(configFilePath)
	if err != nil {
		log.Fatalf("Не удалось получить конфиг: %v", err)
		return
	}

	configureLogging(settings)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, settings); err != nil {
		log.Fatalf("Трекер остановлен с ошибкой: %v", err)
	}
	log.Info("Трекер остановлен")
}

func getConfig(configFilePath string) (config.Settings, error) {
	var c config.Settings
	var err error

	if configFilePath == "" {
		return c, errors.New("не задан путь до конфига")
	}

	c, err = config.New(configFilePath)
	if err != nil {
		return c, fmt.Errorf("ошибка парсинга конфига: %v", err)
	}

	return c, nil
}

func configureLogging(settings config.Settings) {
	log.SetLevel(settings.GetLogLevel())

	consoleFmt := &log.TextFormatter{ForceColors: true, FullTimestamp: false}
	log.SetFormatter(consoleFmt)
	log.SetOutput(os.Stdout)

	if settings.LogFilePath != "" {
		logDir := filepath.Dir(settings.LogFilePath)
		if _, err := os.Stat(logDir); os.IsNotExist(err) {
			if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
				log.Fatalf("Не получилось создать директорию для логов: %v", err)
			}
		}

		log.AddHook(newFileHook(settings))
	}
}

func newFileHook(settings config.Settings) *lfshook.LfsHook {
	lumberjackLogger := &lumberjack.Logger{
		Filename:   settings.LogFilePath,
		MaxSize:    100,
		MaxBackups: 366,
		MaxAge:     settings.LogMaxAgeDays,
		Compress:   true,
	}

	fileFmt := &log.TextFormatter{DisableColors: true, FullTimestamp: true}
	return lfshook.NewHook(lfshook.WriterMap{
		log.PanicLevel: lumberjackLogger,
		log.FatalLevel: lumberjackLogger,
		log.ErrorLevel: lumberjackLogger,
		log.WarnLevel:  lumberjackLogger,
		log.InfoLevel:  lumberjackLogger,
		log.DebugLevel: lumberjackLogger,
		log.TraceLevel: lumberjackLogger,
	}, fileFmt)
}

// transportParams дополняет настройки http транспорта адресом сервера из основного раздела
func transportParams(settings config.Settings) (string, map[string]string) {
	name, params := settings.GetTransportName()
	result := make(map[string]string, len(params)+3)
	for k, v := range params {
		result[k] = v
	}

	if name == "http" {
		if result["address"] == "" {
			result["address"] = settings.Address
		}
		if result["port"] == "" {
			result["port"] = strconv.Itoa(settings.Port)
		}
		if result["timeout"] == "" {
			result["timeout"] = strconv.Itoa(settings.RequestTimeout)
		}
	}
	return name, result
}

func newWakeLock(settings config.Settings) *wakelock.Lock {
	var host wakelock.Host = wakelock.None{}
	if settings.WakeLock == config.WakeLockSystemd {
		host = &wakelock.Systemd{Who: "tracker", Why: "Отправка координат"}
	}
	return wakelock.New(host, settings.GetWakeLockTimeout())
}

func run(ctx context.Context, settings config.Settings) error {
	store, err := storage.LoadStore(settings.Storage)
	if err != nil {
		return fmt.Errorf("не удалось подключить хранилище: %w", err)
	}
	defer store.Close()
	queue := storage.NewQueue(store)

	name, params := transportParams(settings)
	t, err := uploader.LoadTransport(name, params)
	if err != nil {
		return fmt.Errorf("не удалось подключить транспорт %s: %w", name, err)
	}
	up := uploader.New(t, settings.GetRequestTimeout())
	defer up.Close()

	provider, err := source.LoadProvider(settings.Provider, settings.Source, settings.GetFallbackAfter())
	if err != nil {
		return fmt.Errorf("не удалось создать источник координат: %w", err)
	}

	prober := connectivity.NewInterfaceProber(
		settings.Connectivity.MeteredInterfaces,
		settings.Connectivity.ProbeAddress,
		settings.GetProbeInterval(),
	)
	monitor := connectivity.NewMonitor(prober, settings.GetProbeInterval())
	monitor.Poll(ctx)

	lock := newWakeLock(settings)
	defer lock.Close()

	journal := status.NewJournal(status.DefaultCapacity)

	ctrl := controller.New(controller.Config{
		BatchSize:      settings.BatchReportNum,
		ReportInterval: settings.GetReportInterval(),
		RetryDelay:     settings.GetRetryDelay(),
		SaveTraffic:    settings.GetSaveTraffic(),
	}, queue, up, monitor, lock, journal)
	monitor.Subscribe(ctrl.OnConnectivityChanged)
	ctrl.Start(ctx)
	defer ctrl.Stop()

	go monitor.Run(ctx)

	f := filter.New(filter.Config{
		DeviceID:             settings.DeviceID,
		Period:               settings.GetPeriod(),
		MinAccuracy:          float64(settings.MinAccuracy),
		DistanceThreshold:    float64(settings.DistanceThreshold),
		SpeedDeltaThreshold:  settings.GetSpeedDeltaThreshold(),
		CourseDeltaThreshold: float64(settings.CourseDeltaThreshold),
	}, battery.NewReader().Level)
	p := pipeline.New(f, ctrl, pipeline.DefaultBuffer)
	defer p.Close()

	if settings.ApiPort > 0 {
		go runApi(ctx, settings.ApiPort, &api.Handler{
			Reporter: ctrl,
			Journal:  journal,
			Counter:  p,
			WakeLock: lock,
			Queue:    queue,
		})
	}

	log.WithFields(log.Fields{
		"device":    settings.DeviceID,
		"transport": name,
		"provider":  settings.Provider,
	}).Info("Трекер запущен")

	if err = p.Run(ctx, provider); err != nil {
		return err
	}
	if ctx.Err() == nil {
		log.Info("Источники координат завершили работу, отправка оставшихся точек до остановки")
		<-ctx.Done()
	}
	return nil
}

func runApi(ctx context.Context, port int, handler *api.Handler) {
	gin.SetMode(gin.ReleaseMode)
	apiController := api.NewController(handler)

	log.Infof("Запуск API на порту %d", port)
	if err := apiController.Run(ctx, port); err != nil {
		log.Errorf("API остановлен с ошибкой: %v", err)
	}
}
