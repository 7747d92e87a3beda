package appconfig

import (
	"context"
	"time"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/cache"
	log "github.com/sirupsen/logrus"
)

// Lookup читает настройку из постоянного хранилища.
type Lookup interface {
	GetAppConfig(ctx context.Context, key, orgID string) (string, bool, error)
}

// Cached сначала смотрит в кэш, затем в базу и заполняет кэш найденным значением.
type Cached struct {
	cache    cache.Cache
	registry Lookup
	ttl      time.Duration
}

func NewCached(c cache.Cache, registry Lookup, ttl time.Duration) *Cached {
	return &Cached{cache: c, registry: registry, ttl: ttl}
}

func cacheKey(key, orgID string) string {
	if orgID == "" {
		return "app_config:" + key
	}
	return "app_config:" + key + ":" + orgID
}

func (c *Cached) Get(ctx context.Context, key, orgID string) (string, bool, error) {
	ck := cacheKey(key, orgID)
	if c.cache != nil {
		v, ok, err := c.cache.Get(ctx, ck)
		if err != nil {
			log.WithFields(log.Fields{"key": key, "err": err}).Warn("Кэш настроек недоступен")
		} else if ok {
			return v, true, nil
		}
	}

	if c.registry == nil {
		return "", false, nil
	}
	v, ok, err := c.registry.GetAppConfig(ctx, key, orgID)
	if err != nil || !ok {
		return "", false, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, ck, v, c.ttl); err != nil {
			log.WithFields(log.Fields{"key": key, "err": err}).Warn("Не удалось сохранить настройку в кэш")
		}
	}
	return v, true, nil
}
