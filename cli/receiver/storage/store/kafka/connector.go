package kafka

/*
Плагин для публикации телеметрии в Kafka.

Раздел настроек, которые должны отвечають в конфиге для подключения хранилища:

brokers = "localhost:9092,localhost:9093"
topic = "vehicle-telemetry"
encoding = "json"
*/

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/types"
	"github.com/segmentio/kafka-go"
)

type Connector struct {
	writer   *kafka.Writer
	encoding string
}

func brokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	addrs := brokers(cfg["brokers"])
	if len(addrs) == 0 {
		return fmt.Errorf("не заданы адреса брокеров Kafka")
	}
	topic := cfg["topic"]
	if topic == "" {
		topic = "vehicle-telemetry"
	}
	c.encoding = cfg["encoding"]

	// Ключ сообщения - номер транспорта, поэтому записи одной машины попадают в одну партицию.
	c.writer = &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 5 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return nil
}

func message(r *types.Record, data []byte) kafka.Message {
	return kafka.Message{
		Key:   []byte(r.VehicleNumber),
		Value: data,
		Time:  r.Timestamp,
		Headers: []kafka.Header{
			{Key: "id", Value: []byte(r.ID.String())},
			{Key: "serialNumber", Value: []byte(r.SerialNumber)},
		},
	}
}

func (c *Connector) Save(ctx context.Context, r *types.Record) error {
	if r == nil {
		return fmt.Errorf("некорректная ссылка на запись")
	}

	data, err := types.Encode(r, c.encoding)
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи: %v", err)
	}

	if err = c.writer.WriteMessages(ctx, message(r, data)); err != nil {
		return fmt.Errorf("не удалось отправить сообщение в Kafka: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.writer == nil {
		return nil
	}
	return c.writer.Close()
}
