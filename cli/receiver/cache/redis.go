package cache

/*
Настройки подключения, которые могут быть в конфиге:

host = "localhost"
port = "6379"
password = ""
db = "0"
pool_size = "10"
*/

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

type Redis struct {
	client *redis.Client
}

func getOptionValue(optionName string, optionDefaultValue string, settings map[string]string) string {
	optionValue := settings[optionName]
	if optionValue == "" {
		log.Debugf("Ключ '%s' не найден в конфигурации кэша. Используется значение по умолчанию '%s'.", optionName, optionDefaultValue)
		optionValue = optionDefaultValue
	}

	return optionValue
}

func NewRedis(ctx context.Context, settings map[string]string) (*Redis, error) {
	db, err := strconv.Atoi(getOptionValue("db", "0", settings))
	if err != nil {
		return nil, fmt.Errorf("некорректный номер базы Redis: %w", err)
	}
	poolSize, err := strconv.Atoi(getOptionValue("pool_size", "10", settings))
	if err != nil {
		return nil, fmt.Errorf("некорректный размер пула Redis: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     getOptionValue("host", "localhost", settings) + ":" + getOptionValue("port", "6379", settings),
		Password: settings["password"],
		DB:       db,
		PoolSize: poolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redis недоступен: %w", err)
	}

	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ошибка чтения ключа %s из Redis: %w", key, err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("ошибка записи ключа %s в Redis: %w", key, err)
	}
	return nil
}

func (r *Redis) Del(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("ошибка удаления ключа %s из Redis: %w", key, err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
