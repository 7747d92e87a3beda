package domain

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/appconfig"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/cache"
)

const (
	DefaultThrottleInterval    = 30 * time.Second
	DefaultIgnitionOffInterval = 120 * time.Second

	throttleKeyPrefix = "tcp:"
)

// Limiter объединяет два фильтра: ограничение частоты приёма по адресу
// устройства и подавление повторных сообщений с выключенным зажиганием.
type Limiter struct {
	Cache  cache.Cache
	Config appconfig.Source

	ThrottleInterval    time.Duration
	IgnitionOffInterval time.Duration
}

// ThrottleKey нормализует удалённый адрес: порт отбрасывается, двоеточия удаляются.
// IPv6 приводится к полной шестнадцатеричной форме, чтобы сокращённые записи
// разных адресов не совпадали после удаления разделителей.
func ThrottleKey(remoteAddr string) string {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			host = v4.String()
		} else {
			host = hex.EncodeToString(ip.To16())
		}
	}
	return throttleKeyPrefix + strings.ReplaceAll(host, ":", "")
}

// IgnitionOffKey - ключ маркера подавления для выключенного зажигания.
func IgnitionOffKey(serial string) string {
	return serial + "_0"
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (l *Limiter) throttleInterval(ctx context.Context) time.Duration {
	def := orDefault(l.ThrottleInterval, DefaultThrottleInterval)
	return appconfig.Seconds(ctx, l.Config, appconfig.KeyThrottleInterval, def)
}

func (l *Limiter) ignitionOffInterval(ctx context.Context) time.Duration {
	def := orDefault(l.IgnitionOffInterval, DefaultIgnitionOffInterval)
	return appconfig.Seconds(ctx, l.Config, appconfig.KeyIgnitionOffInterval, def)
}

// Allow пропускает не более одного сообщения с ключа за интервал.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	_, seen, err := l.Cache.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("не удалось проверить ограничение частоты: %w", err)
	}
	if seen {
		return false, nil
	}

	if err := l.Cache.Set(ctx, key, "1", l.throttleInterval(ctx)); err != nil {
		return false, fmt.Errorf("не удалось установить ограничение частоты: %w", err)
	}
	return true, nil
}

// AllowIgnition пропускает первое сообщение с выключенным зажиганием и подавляет
// последующие, продлевая окно подавления. Включение зажигания снимает подавление,
// прочие значения пропускаются без изменения маркера.
func (l *Limiter) AllowIgnition(ctx context.Context, serial string, ignition int) (bool, error) {
	key := IgnitionOffKey(serial)

	if ignition == 1 {
		if err := l.Cache.Del(ctx, key); err != nil {
			return false, fmt.Errorf("не удалось снять подавление: %w", err)
		}
		return true, nil
	}
	if ignition != 0 {
		return true, nil
	}

	_, suppressed, err := l.Cache.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("не удалось проверить подавление: %w", err)
	}

	if err := l.Cache.Set(ctx, key, "1", l.ignitionOffInterval(ctx)); err != nil {
		return false, fmt.Errorf("не удалось установить подавление: %w", err)
	}
	return !suppressed, nil
}
