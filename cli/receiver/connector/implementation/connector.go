package implementation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

type Settings struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

type Connector struct {
	connection *sql.DB
	settings   Settings
}

func getOptionValue(optionName string, optionDefaultValue string, settings map[string]string) string {
	optionValue := settings[optionName]
	if optionValue == "" {
		log.Warnf("Ключ '%s' не найден в конфигурации хранилища. Используется значение по умолчанию '%s'.", optionName, optionDefaultValue)
		optionValue = optionDefaultValue
	}

	return optionValue
}

func (c *Connector) FillSettings(settings map[string]string) {
	c.settings.Driver = getOptionValue("driver", "postgres", settings)
	c.settings.Host = getOptionValue("host", "localhost", settings)
	if c.settings.Driver == "mysql" {
		c.settings.Port = getOptionValue("port", "3306", settings)
		c.settings.User = getOptionValue("user", "root", settings)
	} else {
		c.settings.Port = getOptionValue("port", "5432", settings)
		c.settings.User = getOptionValue("user", "postgres", settings)
	}
	c.settings.Password = settings["password"]
	c.settings.Database = getOptionValue("database", "fleetcontrol", settings)
	c.settings.SSLMode = getOptionValue("sslmode", "disable", settings)
}

func (c *Connector) dataSourceName() (string, error) {
	switch c.settings.Driver {
	case "postgres":
		return fmt.Sprintf("dbname=%s host=%s port=%s user=%s password=%s sslmode=%s",
			c.settings.Database, c.settings.Host, c.settings.Port, c.settings.User, c.settings.Password, c.settings.SSLMode), nil
	case "mysql":
		cfg := mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = c.settings.Host + ":" + c.settings.Port
		cfg.User = c.settings.User
		cfg.Passwd = c.settings.Password
		cfg.DBName = c.settings.Database
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	default:
		return "", fmt.Errorf("неизвестный драйвер базы данных: %s", c.settings.Driver)
	}
}

func (c *Connector) Connect(settings map[string]string) error {
	var err error
	if settings == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	c.FillSettings(settings)

	dsn, err := c.dataSourceName()
	if err != nil {
		return err
	}

	if c.connection, err = sql.Open(c.settings.Driver, dsn); err != nil {
		return fmt.Errorf("ошибка подключения к базе данных %s: %v", c.settings.Driver, err)
	}
	c.connection.SetConnMaxIdleTime(5 * time.Minute)

	if err = c.connection.Ping(); err != nil {
		return fmt.Errorf("база данных %s недоступна: %v", c.settings.Driver, err)
	}
	return err
}

func (c *Connector) GetConnection() *sql.DB {
	return c.connection
}

func (c *Connector) GetDriver() string {
	return c.settings.Driver
}

func (c *Connector) Close() error {
	if c.connection == nil {
		return nil
	}
	return c.connection.Close()
}
