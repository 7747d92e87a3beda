package config

/*
Описание конфигурационного файла
*/

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"gopkg.in/yaml.v2"
)

const (
	defaultConnTTL              = 120
	defaultMaxFrameSize         = 16 * 1024
	defaultLogLevelPollInterval = 30
	defaultOpsPort              = "9000"
	defaultQueueSize            = 10000
	defaultVehicleCacheTTL      = 36000
	defaultThrottleInterval     = 30
	defaultIgnitionOffInterval  = 120
	defaultGeohashPrecision     = 30
	defaultAppConfigCacheTTL    = 60
)

type Settings struct {
	Host                 string                       `yaml:"host"`
	Port                 string                       `yaml:"port"`
	ConnTTL              int                          `yaml:"conn_ttl"`
	MaxFrameSize         int                          `yaml:"max_frame_size"`
	Echo                 bool                         `yaml:"echo"`
	IPWhiteList          []string                     `yaml:"ip_white_list"`
	LogLevel             string                       `yaml:"log_level"`
	LogFilePath          string                       `yaml:"log_file_path"`
	LogMaxAgeDays        int                          `yaml:"log_max_age_days"`
	LogLevelPollInterval int                          `yaml:"log_level_poll_interval"`
	OpsPort              string                       `yaml:"ops_port"`
	QueueSize            int                          `yaml:"queue_size"`
	QueueWorkers         int                          `yaml:"queue_workers"`
	VehicleCacheTTL      int                          `yaml:"vehicle_cache_ttl"`
	AppConfigCacheTTL    int                          `yaml:"app_config_cache_ttl"`
	ThrottleInterval     int                          `yaml:"throttle_interval"`
	IgnitionOffInterval  int                          `yaml:"ignition_off_interval"`
	GeohashPrecision     int                          `yaml:"geohash_precision"`
	Cache                map[string]string            `yaml:"cache"`
	Registry             map[string]string            `yaml:"registry"`
	Store                map[string]map[string]string `yaml:"storage"`
}

func seconds(v int) time.Duration {
	return time.Duration(v) * time.Second
}

func (s *Settings) GetEmptyConnTTL() time.Duration {
	return seconds(s.ConnTTL)
}

func (s *Settings) GetListenAddress() string {
	return s.Host + ":" + s.Port
}

func (s *Settings) GetLogLevelPollInterval() time.Duration {
	return seconds(s.LogLevelPollInterval)
}

func (s *Settings) GetVehicleCacheTTL() time.Duration {
	return seconds(s.VehicleCacheTTL)
}

func (s *Settings) GetAppConfigCacheTTL() time.Duration {
	return seconds(s.AppConfigCacheTTL)
}

func (s *Settings) GetThrottleInterval() time.Duration {
	return seconds(s.ThrottleInterval)
}

func (s *Settings) GetIgnitionOffInterval() time.Duration {
	return seconds(s.IgnitionOffInterval)
}

// ParseLogLevel разбирает уровень логирования без учёта регистра.
func ParseLogLevel(level string) (log.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return log.DebugLevel, true
	case "INFO":
		return log.InfoLevel, true
	case "WARN":
		return log.WarnLevel, true
	case "ERROR":
		return log.ErrorLevel, true
	default:
		return log.InfoLevel, false
	}
}

func (s *Settings) GetLogLevel() log.Level {
	lvl, _ := ParseLogLevel(s.LogLevel)
	return lvl
}

func positive(name string, value *int, def int) {
	if *value == 0 {
		*value = def
		return
	}
	if *value < 0 {
		log.Errorf("Некорректное значение %s (%d). Используется значение по умолчанию %d.", name, *value, def)
		*value = def
	}
}

func (s *Settings) applyDefaults() {
	positive("conn_ttl", &s.ConnTTL, defaultConnTTL)
	positive("max_frame_size", &s.MaxFrameSize, defaultMaxFrameSize)
	positive("log_level_poll_interval", &s.LogLevelPollInterval, defaultLogLevelPollInterval)
	positive("queue_size", &s.QueueSize, defaultQueueSize)
	positive("queue_workers", &s.QueueWorkers, runtime.NumCPU())
	positive("vehicle_cache_ttl", &s.VehicleCacheTTL, defaultVehicleCacheTTL)
	positive("app_config_cache_ttl", &s.AppConfigCacheTTL, defaultAppConfigCacheTTL)
	positive("throttle_interval", &s.ThrottleInterval, defaultThrottleInterval)
	positive("ignition_off_interval", &s.IgnitionOffInterval, defaultIgnitionOffInterval)
	positive("geohash_precision", &s.GeohashPrecision, defaultGeohashPrecision)

	if s.OpsPort == "" {
		s.OpsPort = defaultOpsPort
	}
	if _, ok := ParseLogLevel(s.LogLevel); !ok && s.LogLevel != "" {
		log.Errorf("Неизвестный уровень логирования '%s'. Используется INFO.", s.LogLevel)
	}
}

func (s *Settings) validate() error {
	if s.Port == "" {
		return fmt.Errorf("не задан порт приёма телематики")
	}
	if s.GeohashPrecision > 60 {
		return fmt.Errorf("точность geohash %d превышает 60 бит", s.GeohashPrecision)
	}
	return nil
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

	c.applyDefaults()
	return c, c.validate()
}
