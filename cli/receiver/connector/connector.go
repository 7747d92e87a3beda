package connector

import (
	"database/sql"
)

type Connector interface {
	GetConnection() *sql.DB
	// GetDriver возвращает имя драйвера: "postgres" или "mysql"
	GetDriver() string
	Connect(map[string]string) error
	Close() error
}
