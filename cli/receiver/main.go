package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/api"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/appconfig"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/cache"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/config"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/connector/implementation"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/domain"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/server"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/source"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/storage"
	"github.com/robfig/cron/v3"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logLevelKey - ключ кэша, через который уровень логирования меняется без перезапуска.
const logLevelKey = "log_level"

func main() {
	configFilePath := ""
	flag.StringVar(&configFilePath, "c", "", "")
	flag.Parse()
	config, err := getConfig(configFilePath)
	if err != nil {
		log.Fatalf("Не удалось получить конфиг: %v", err)
		return
	}

	if _, err := configureLogging(config); err != nil {
		log.Fatalf("Не удалось настроить логирование: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config); err != nil {
		log.Fatal(err)
	}
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

func configureLogging(config config.Settings) (*lumberjack.Logger, error) {
	log.SetLevel(config.GetLogLevel())

	consoleFmt := &log.TextFormatter{ForceColors: true, FullTimestamp: false}
	log.SetFormatter(consoleFmt)
	log.SetOutput(os.Stdout)

	if config.LogFilePath == "" {
		return nil, nil
	}

	logDir := filepath.Dir(config.LogFilePath)
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("не получилось создать директорию для логов: %v", err)
		}
	}

	lumberjackLogger := &lumberjack.Logger{
		Filename:   config.LogFilePath,
		MaxSize:    100,
		MaxBackups: 366,
		MaxAge:     config.LogMaxAgeDays,
		Compress:   true,
	}

	fileFmt := &log.TextFormatter{DisableColors: true, FullTimestamp: true}
	hook := lfshook.NewHook(lfshook.WriterMap{
		log.PanicLevel: lumberjackLogger,
		log.FatalLevel: lumberjackLogger,
		log.ErrorLevel: lumberjackLogger,
		log.WarnLevel:  lumberjackLogger,
		log.InfoLevel:  lumberjackLogger,
		log.DebugLevel: lumberjackLogger,
		log.TraceLevel: lumberjackLogger,
	}, fileFmt)

	log.AddHook(hook)
	return lumberjackLogger, nil
}

// applyLogLevel выставляет уровень из кэша. Если ключа нет или значение
// некорректно, возвращается уровень из конфига.
func applyLogLevel(ctx context.Context, c cache.Cache, configured log.Level) log.Level {
	raw, ok, err := c.Get(ctx, logLevelKey)
	if err != nil {
		log.WithField("err", err).Debug("Не удалось прочитать уровень логирования из кэша")
		return log.GetLevel()
	}

	lvl := configured
	if ok {
		if parsed, valid := config.ParseLogLevel(raw); valid {
			lvl = parsed
		} else {
			log.WithField("value", raw).Warn("Некорректный уровень логирования в кэше")
		}
	}

	if lvl != log.GetLevel() {
		log.SetLevel(lvl)
		log.WithField("level", lvl.String()).Info("Уровень логирования изменён")
	}
	return lvl
}

func newCache(ctx context.Context, settings map[string]string) (cache.Cache, error) {
	if len(settings) == 0 {
		log.Warn("Раздел cache не задан, используется кэш в памяти процесса")
		return cache.NewMemory(), nil
	}
	return cache.NewRedis(ctx, settings)
}

func run(ctx context.Context, config config.Settings) error {
	kv, err := newCache(ctx, config.Cache)
	if err != nil {
		return fmt.Errorf("не удалось подключиться к кэшу: %v", err)
	}
	if closer, ok := kv.(io.Closer); ok {
		defer closer.Close()
	}

	dbConnector := &implementation.Connector{}
	if err := dbConnector.Connect(config.Registry); err != nil {
		return fmt.Errorf("не удалось подключиться к справочнику транспорта: %v", err)
	}
	defer dbConnector.Close()
	registry, err := source.NewRegistry(dbConnector, config.Registry)
	if err != nil {
		return fmt.Errorf("не удалось открыть справочник транспорта: %v", err)
	}

	repo := storage.NewRepository()
	if err := repo.LoadStorages(config.Store); err != nil {
		return fmt.Errorf("не удалось загрузить хранилища: %v", err)
	}
	defer repo.Close()

	queue := storage.NewAsyncRepository(repo, config.QueueSize, config.QueueWorkers)
	defer queue.Close()

	dynamic := appconfig.NewCached(kv, registry, config.GetAppConfigCacheTTL())

	fallback := &domain.LocationFallback{}
	if history := repo.LocationReader(); history != nil {
		fallback.History = history
	} else {
		log.Warn("Ни одно хранилище не отдаёт последние координаты, подстановка координат отключена")
	}

	ingest := &domain.Ingest{
		Limiter: &domain.Limiter{
			Cache:               kv,
			Config:              dynamic,
			ThrottleInterval:    config.GetThrottleInterval(),
			IgnitionOffInterval: config.GetIgnitionOffInterval(),
		},
		Resolver: &domain.Resolver{
			Cache:    kv,
			Registry: registry,
			TTL:      config.GetVehicleCacheTTL(),
		},
		Fallback:         fallback,
		Queue:            queue,
		Archive:          repo,
		Config:           dynamic,
		GeohashPrecision: config.GeohashPrecision,
	}

	scheduler := cron.New()
	spec := fmt.Sprintf("@every %s", config.GetLogLevelPollInterval())
	if _, err := scheduler.AddFunc(spec, func() {
		pollCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		applyLogLevel(pollCtx, kv, config.GetLogLevel())
	}); err != nil {
		return fmt.Errorf("не удалось запланировать обновление уровня логирования: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	var pinger api.Pinger
	if p, ok := kv.(api.Pinger); ok {
		pinger = p
	}
	ops := api.New(api.NewHandler(queue, pinger), config.OpsPort)
	go ops.Run()

	srv := server.New(config.GetListenAddress(), config.GetEmptyConnTTL(), ingest, server.Options{
		MaxFrameSize: config.MaxFrameSize,
		Echo:         config.Echo,
		WhiteList:    config.IPWhiteList,
	})
	if err := srv.Listen(); err != nil {
		return fmt.Errorf("не удалось открыть соединение: %v", err)
	}
	go srv.Serve()

	<-ctx.Done()
	log.Info("Получен сигнал остановки")

	if err := srv.Stop(); err != nil {
		log.WithField("err", err).Warn("Ошибка при остановке сервера")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ops.Stop(shutdownCtx); err != nil {
		log.WithField("err", err).Warn("Ошибка при остановке служебного HTTP сервера")
	}
	return nil
}
