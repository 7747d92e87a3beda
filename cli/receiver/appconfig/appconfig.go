package appconfig

import (
	"context"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// Source отдает значение динамической настройки по ключу и, при необходимости, организации.
type Source interface {
	Get(ctx context.Context, key, orgID string) (string, bool, error)
}

const (
	KeyThrottleInterval    = "rate_limiter_tcp"
	KeyIgnitionOffInterval = "rate_limiter_vehicle_off"
	KeyGeohashPrecision    = "geohash_precision"
)

// Static хранит локальные значения по умолчанию.
type Static map[string]string

func (s Static) Get(_ context.Context, key, _ string) (string, bool, error) {
	v, ok := s[key]
	return v, ok, nil
}

// Int читает целое значение. При ошибке источника или некорректном значении возвращается def.
func Int(ctx context.Context, src Source, key string, def int) int {
	if src == nil {
		return def
	}
	raw, ok, err := src.Get(ctx, key, "")
	if err != nil {
		log.WithFields(log.Fields{"key": key, "err": err}).Warn("Не удалось получить настройку, используется значение по умолчанию")
		return def
	}
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.WithFields(log.Fields{"key": key, "value": raw}).Warn("Некорректное значение настройки, используется значение по умолчанию")
		return def
	}
	return v
}

// Seconds читает интервал, заданный в секундах.
func Seconds(ctx context.Context, src Source, key string, def time.Duration) time.Duration {
	return time.Duration(Int(ctx, src, key, int(def/time.Second))) * time.Second
}
