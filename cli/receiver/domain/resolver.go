package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/cache"
	log "github.com/sirupsen/logrus"
)

var ErrVehicleNotFound = errors.New("транспорт не найден")

const DefaultVehicleCacheTTL = 36000 * time.Second

// VehicleCacheKey - ключ кэша номера транспорта для серийного номера трекера.
func VehicleCacheKey(serial string) string {
	return "vehicle:" + serial
}

// VehicleLookup ищет номера транспорта по серийному номеру трекера.
type VehicleLookup interface {
	FindVehicleNumbers(ctx context.Context, serial string) ([]string, error)
}

// Resolver сопоставляет серийный номер трекера номеру транспорта через кэш.
type Resolver struct {
	Cache    cache.Cache
	Registry VehicleLookup
	TTL      time.Duration
}

func (r *Resolver) Resolve(ctx context.Context, serial string) (string, error) {
	key := VehicleCacheKey(serial)
	number, ok, err := r.Cache.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("не удалось прочитать кэш транспорта: %w", err)
	}
	if ok {
		return number, nil
	}

	numbers, err := r.Registry.FindVehicleNumbers(ctx, serial)
	if err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return "", fmt.Errorf("%w: серийный номер %s", ErrVehicleNotFound, serial)
	}
	if len(numbers) > 1 {
		log.WithFields(log.Fields{"serial": serial, "vehicles": numbers}).Error("Серийному номеру соответствует несколько единиц транспорта, используется первая")
	}

	number = numbers[0]
	ttl := r.TTL
	if ttl <= 0 {
		ttl = DefaultVehicleCacheTTL
	}
	if err := r.Cache.Set(ctx, key, number, ttl); err != nil {
		log.WithFields(log.Fields{"serial": serial, "err": err}).Warn("Не удалось сохранить номер транспорта в кэш")
	}
	return number, nil
}
