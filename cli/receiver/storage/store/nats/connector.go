package nats

/*
Плагин для публикации телеметрии в NATS.

Раздел настроек, которые должны отвечають в конфиге для подключения хранилища:

servers = "nats://localhost:4222"
subject = "telemetry"
encoding = "json"
*/

import (
	"context"
	"fmt"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/types"
	"github.com/nats-io/nats.go"
)

type Connector struct {
	connection *nats.Conn
	subject    string
	encoding   string
}

func (c *Connector) Init(cfg map[string]string) error {
	var err error
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	servers := cfg["servers"]
	if servers == "" {
		servers = nats.DefaultURL
	}
	c.subject = cfg["subject"]
	if c.subject == "" {
		c.subject = "telemetry"
	}
	c.encoding = cfg["encoding"]

	if c.connection, err = nats.Connect(servers, nats.Name("fleetcontrol-receiver")); err != nil {
		return fmt.Errorf("ошибка подключения к NATS: %v", err)
	}
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

	if err = c.connection.Publish(c.subject, data); err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.connection != nil {
		c.connection.Close()
	}
	return nil
}
