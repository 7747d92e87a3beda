package questdb

/*
Хранилище телеметрии в QuestDB через протокол PostgreSQL.

Настройки, которые могут быть в конфиге для подключения хранилища:

host = "localhost"
port = "8812"
user = "admin"
password = "quest"
database = "qdb"
sslmode = "disable"
table = "VehicleTelemetry"
raw_table = "VehicleTelemetryTcpMessage"
*/

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/types"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

type Connector struct {
	connection *sql.DB
	table      string
	rawTable   string
}

func getOptionValue(optionName string, optionDefaultValue string, settings map[string]string) string {
	optionValue := settings[optionName]
	if optionValue == "" {
		log.Warnf("Ключ '%s' не найден в конфигурации хранилища. Используется значение по умолчанию '%s'.", optionName, optionDefaultValue)
		optionValue = optionDefaultValue
	}

	return optionValue
}

func dataSourceName(cfg map[string]string) string {
	return fmt.Sprintf("dbname=%s host=%s port=%s user=%s password=%s sslmode=%s",
		getOptionValue("database", "qdb", cfg),
		getOptionValue("host", "localhost", cfg),
		getOptionValue("port", "8812", cfg),
		getOptionValue("user", "admin", cfg),
		getOptionValue("password", "quest", cfg),
		getOptionValue("sslmode", "disable", cfg))
}

func (c *Connector) Init(cfg map[string]string) error {
	var err error
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	c.table = getOptionValue("table", "VehicleTelemetry", cfg)
	c.rawTable = cfg["raw_table"]

	if c.connection, err = sql.Open("postgres", dataSourceName(cfg)); err != nil {
		return fmt.Errorf("ошибка подключения к QuestDB: %v", err)
	}

	if err = c.connection.Ping(); err != nil {
		return fmt.Errorf("QuestDB недоступен: %v", err)
	}
	return nil
}

func insertQuery(table string) string {
	return fmt.Sprintf(`INSERT INTO "%s" (vehicleNumber, serialNumber, speed, overspeed, latitude, longitude, geohash, ignition, odometer, headingDirectionDegree, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, table)
}

func rawInsertQuery(table string) string {
	return fmt.Sprintf(`INSERT INTO "%s" (tcpMessage, timestamp) VALUES ($1, $2)`, table)
}

func latestQuery(table string) string {
	return fmt.Sprintf(`SELECT latitude, longitude FROM "%s" WHERE serialNumber = $1 LATEST ON timestamp PARTITION BY serialNumber`, table)
}

func (c *Connector) Save(ctx context.Context, r *types.Record) error {
	if r == nil {
		return fmt.Errorf("некорректная ссылка на запись")
	}

	_, err := c.connection.ExecContext(ctx, insertQuery(c.table),
		r.VehicleNumber, r.SerialNumber, r.Speed, r.Overspeed, r.Latitude, r.Longitude,
		r.Geohash, r.Ignition, r.Odometer, r.Heading, r.Timestamp)
	if err != nil {
		return fmt.Errorf("не удалось вставить запись: %v", err)
	}
	return nil
}

// ArchiveFrame сохраняет исходный кадр в таблицу raw_table, если она задана.
func (c *Connector) ArchiveFrame(ctx context.Context, body string, at time.Time) error {
	if c.rawTable == "" {
		return nil
	}
	if _, err := c.connection.ExecContext(ctx, rawInsertQuery(c.rawTable), body, at); err != nil {
		return fmt.Errorf("не удалось сохранить исходное сообщение: %v", err)
	}
	return nil
}

// LatestBySerial возвращает последние сохранённые координаты трекера.
func (c *Connector) LatestBySerial(ctx context.Context, serial string) (types.Position2D, bool, error) {
	var (
		pos      types.Position2D
		lat, lng sql.NullFloat64
	)

	err := c.connection.QueryRowContext(ctx, latestQuery(c.table), serial).Scan(&lat, &lng)
	switch {
	case err == sql.ErrNoRows:
		return pos, false, nil
	case err != nil:
		return pos, false, fmt.Errorf("не удалось получить последние координаты: %v", err)
	}

	pos.Latitude, pos.Longitude = lat.Float64, lng.Float64
	return pos, lat.Valid && lng.Valid, nil
}

func (c *Connector) Close() error {
	if c.connection == nil {
		return nil
	}
	return c.connection.Close()
}
