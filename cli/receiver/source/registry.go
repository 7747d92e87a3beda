package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/connector"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	defaultVehicleTable = "Vehicle"
	defaultConfigTable  = "AppConfig"
)

// Registry читает справочник транспорта и таблицу настроек приложения.
type Registry struct {
	db           *gorm.DB
	vehicleTable string
	configTable  string
}

func dialector(driver string, conn *sql.DB) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.New(postgres.Config{Conn: conn, PreferSimpleProtocol: true}), nil
	case "mysql":
		return mysql.New(mysql.Config{Conn: conn, SkipInitializeWithVersion: true}), nil
	default:
		return nil, fmt.Errorf("драйвер %q не поддерживается", driver)
	}
}

// NewRegistry открывает gorm поверх соединения коннектора.
func NewRegistry(c connector.Connector, settings map[string]string) (*Registry, error) {
	if c == nil {
		return nil, fmt.Errorf("не удалось инициализировать подключение к базе данных")
	}
	conn := c.GetConnection()
	if conn == nil {
		return nil, fmt.Errorf("нет активного подключения к базе данных")
	}

	d, err := dialector(c.GetDriver(), conn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	r := &Registry{
		db:           db,
		vehicleTable: settings["vehicle_table"],
		configTable:  settings["config_table"],
	}
	if r.vehicleTable == "" {
		r.vehicleTable = defaultVehicleTable
	}
	if r.configTable == "" {
		r.configTable = defaultConfigTable
	}
	return r, nil
}

func eq(column string, value interface{}) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: column}, Value: value}
}

// FindVehicleNumbers возвращает все номера транспорта, привязанные к серийному номеру
// трекера, в порядке возрастания номера.
func (r *Registry) FindVehicleNumbers(ctx context.Context, serial string) ([]string, error) {
	var numbers []string

	err := r.db.WithContext(ctx).
		Table(r.vehicleTable).
		Where(eq("serialNumber", serial)).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "vehicleNumber"}}).
		Pluck("vehicleNumber", &numbers).Error
	if err != nil {
		return nil, fmt.Errorf("не удалось найти транспорт по серийному номеру %s: %w", serial, err)
	}
	return numbers, nil
}

// GetAppConfig читает значение настройки. Пустой orgID означает глобальную настройку.
func (r *Registry) GetAppConfig(ctx context.Context, key, orgID string) (string, bool, error) {
	var values []string

	q := r.db.WithContext(ctx).Table(r.configTable).Where(eq("configKey", key))
	if orgID != "" {
		q = q.Where(eq("orgId", orgID))
	}
	if err := q.Limit(1).Pluck("configValue", &values).Error; err != nil {
		return "", false, fmt.Errorf("не удалось прочитать настройку %s: %w", key, err)
	}

	if len(values) == 0 {
		log.WithField("key", key).Debug("Настройка не найдена в базе данных")
		return "", false, nil
	}
	return values[0], true, nil
}
