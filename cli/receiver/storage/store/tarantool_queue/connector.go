package tarantool_queue

/*
Плагин для постановки телеметрии в Tarantool queue.

Раздел настроек, которые должны отвечають в конфиге для подключения хранилища:

host = "localhost"
port = "3301"
user = "user"
password = "pass"
max_recons = 5
timeout = 1
reconnect = 1
queue = "points"
encoding = "msgpack"
*/

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/types"
	"github.com/tarantool/go-tarantool"
	"github.com/tarantool/go-tarantool/queue"
)

type Connector struct {
	connection *tarantool.Connection
	queue      queue.Queue
	encoding   string
}

func intOption(cfg map[string]string, name string, def int) (int, error) {
	raw, ok := cfg[name]
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("не удалось получить %s: %v", name, err)
	}
	return v, nil
}

func options(cfg map[string]string) (tarantool.Opts, error) {
	maxRecons, err := intOption(cfg, "max_recons", 5)
	if err != nil {
		return tarantool.Opts{}, err
	}
	timeout, err := intOption(cfg, "timeout", 1)
	if err != nil {
		return tarantool.Opts{}, err
	}
	reconnect, err := intOption(cfg, "reconnect", 1)
	if err != nil {
		return tarantool.Opts{}, err
	}
	return tarantool.Opts{
		Timeout:       time.Duration(timeout) * time.Second,
		Reconnect:     time.Duration(reconnect) * time.Second,
		MaxReconnects: uint(maxRecons),
		User:          cfg["user"],
		Pass:          cfg["password"],
	}, nil
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	opts, err := options(cfg)
	if err != nil {
		return err
	}

	c.encoding = cfg["encoding"]
	if c.encoding == "" {
		c.encoding = types.EncodingMsgpack
	}

	c.connection, err = tarantool.Connect(fmt.Sprintf("%s:%s", cfg["host"], cfg["port"]), opts)
	if err != nil {
		return fmt.Errorf("не удалось подключиться к Tarantool: %v", err)
	}
	c.queue = queue.New(c.connection, cfg["queue"])

	return nil
}

func (c *Connector) Save(_ context.Context, r *types.Record) error {
	if r == nil {
		return fmt.Errorf("некорректная ссылка на запись")
	}

	data, err := types.Encode(r, c.encoding)
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи: %v", err)
	}

	if _, err = c.queue.Put(data); err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.connection == nil {
		return nil
	}
	return c.connection.Close()
}
