package source

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConnector struct {
	driver string
	db     *sql.DB
}

func (f *fakeConnector) GetConnection() *sql.DB          { return f.db }
func (f *fakeConnector) GetDriver() string               { return f.driver }
func (f *fakeConnector) Connect(map[string]string) error { return nil }
func (f *fakeConnector) Close() error                    { return nil }

func newMockRegistry(t *testing.T, driver string, settings map[string]string) (*Registry, sqlmock.Sqlmock) {
	log.SetOutput(io.Discard)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r, err := NewRegistry(&fakeConnector{driver: driver, db: db}, settings)
	require.NoError(t, err)
	return r, mock
}

func TestFindVehicleNumbers(t *testing.T) {
	tests := []struct {
		driver string
		query  string
	}{
		{"postgres", `SELECT "vehicleNumber" FROM "Vehicle" WHERE "serialNumber" = $1 ORDER BY "vehicleNumber"`},
		{"mysql", "SELECT `vehicleNumber` FROM `Vehicle` WHERE `serialNumber` = ? ORDER BY `vehicleNumber`"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			r, mock := newMockRegistry(t, tt.driver, map[string]string{})
			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).
				WithArgs("DEV1").
				WillReturnRows(sqlmock.NewRows([]string{"vehicleNumber"}).AddRow("KA01AB1234").AddRow("KA01AB5678"))

			numbers, err := r.FindVehicleNumbers(context.Background(), "DEV1")
			require.NoError(t, err)
			assert.Equal(t, []string{"KA01AB1234", "KA01AB5678"}, numbers)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestFindVehicleNumbersNone(t *testing.T) {
	r, mock := newMockRegistry(t, "postgres", map[string]string{"vehicle_table": "Fleet"})
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "Fleet"`)).
		WithArgs("DEV404").
		WillReturnRows(sqlmock.NewRows([]string{"vehicleNumber"}))

	numbers, err := r.FindVehicleNumbers(context.Background(), "DEV404")
	require.NoError(t, err)
	assert.Empty(t, numbers)
}

func TestFindVehicleNumbersQueryError(t *testing.T) {
	r, mock := newMockRegistry(t, "postgres", nil)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "Vehicle"`)).WillReturnError(errors.New("connection reset"))

	_, err := r.FindVehicleNumbers(context.Background(), "DEV1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestGetAppConfig(t *testing.T) {
	r, mock := newMockRegistry(t, "postgres", map[string]string{"config_table": "Settings"})
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "configValue" FROM "Settings" WHERE "configKey" = $1 LIMIT`)).
		WillReturnRows(sqlmock.NewRows([]string{"configValue"}).AddRow("15"))

	value, found, err := r.GetAppConfig(context.Background(), "rate_limiter_tcp", "")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "15", value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAppConfigScoped(t *testing.T) {
	r, mock := newMockRegistry(t, "mysql", nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `configValue` FROM `AppConfig` WHERE `configKey` = ? AND `orgId` = ? LIMIT")).
		WillReturnRows(sqlmock.NewRows([]string{"configValue"}).AddRow("7"))

	value, found, err := r.GetAppConfig(context.Background(), "geohash_precision", "org-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "7", value)
}

func TestGetAppConfigMissing(t *testing.T) {
	r, mock := newMockRegistry(t, "postgres", nil)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "AppConfig"`)).
		WillReturnRows(sqlmock.NewRows([]string{"configValue"}))

	value, found, err := r.GetAppConfig(context.Background(), "rate_limiter_tcp", "")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, value)
}

func TestNewRegistryErrors(t *testing.T) {
	_, err := NewRegistry(nil, nil)
	assert.Error(t, err)

	_, err = NewRegistry(&fakeConnector{driver: "postgres"}, nil)
	assert.Error(t, err)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, err = NewRegistry(&fakeConnector{driver: "sqlite", db: db}, nil)
	assert.Error(t, err)
}
