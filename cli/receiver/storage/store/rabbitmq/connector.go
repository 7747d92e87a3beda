package rabbitmq

/*
Плагин для работы с RabbitMQ через amqp.

Раздел настроек, которые должны отвечають в конфиге для подключения хранилища:

host = "localhost"
port = "5672"
user = "guest"
password = "guest"
exchange = "receiver"
routing_key = "telemetry"
encoding = "json"
*/

import (
	"context"
	"fmt"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/types"
	"github.com/streadway/amqp"
)

type Connector struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	config     map[string]string
}

func url(cfg map[string]string) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg["user"], cfg["password"], cfg["host"], cfg["port"])
}

func contentType(encoding string) string {
	switch encoding {
	case types.EncodingMsgpack:
		return "application/msgpack"
	case types.EncodingProtobuf:
		return "application/x-protobuf"
	default:
		return "application/json"
	}
}

func (c *Connector) Init(cfg map[string]string) error {
	var err error
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}
	c.config = cfg

	if c.connection, err = amqp.Dial(url(cfg)); err != nil {
		return fmt.Errorf("ошибка установки соединения с RabbitMQ: %v", err)
	}

	if c.channel, err = c.connection.Channel(); err != nil {
		return fmt.Errorf("ошибка открытия канала RabbitMQ: %v", err)
	}

	if err = c.channel.ExchangeDeclare(cfg["exchange"], "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("не удалось объявить exchange %s: %v", cfg["exchange"], err)
	}
	return nil
}

func (c *Connector) Save(_ context.Context, r *types.Record) error {
	if r == nil {
		return fmt.Errorf("некорректная ссылка на запись")
	}

	data, err := types.Encode(r, c.config["encoding"])
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи: %v", err)
	}

	err = c.channel.Publish(c.config["exchange"], c.config["routing_key"], false, false,
		amqp.Publishing{
			ContentType:  contentType(c.config["encoding"]),
			DeliveryMode: amqp.Persistent,
			MessageId:    r.ID.String(),
			Timestamp:    r.Timestamp,
			Body:         data,
		})
	if err != nil {
		return fmt.Errorf("не удалось отправить сообщение в RabbitMQ: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	var err error
	if c.channel != nil {
		err = c.channel.Close()
	}
	if c.connection != nil {
		if cerr := c.connection.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
