package db

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"koubyte-be/internal/config"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	cfg := &config.Config{
		DBHost:     "localhost",
		DBUser:     "test_user",
		DBPassword: "test_password",
		DBName:     "test_db",
		DBPort:     "5432",
	}

	t.Run("default sslmode", func(t *testing.T) {
		expected := "host=localhost user=test_user password=test_password dbname=test_db port=5432 sslmode=disable"
		assert.Equal(t, expected, buildDSN(cfg))
	})

	t.Run("explicit sslmode", func(t *testing.T) {
		c := *cfg
		c.DBSSLMode = "require"
		assert.Contains(t, buildDSN(&c), "sslmode=require")
	})
}

func TestNewDatabase_InvalidDriver(t *testing.T) {
	cfg := &config.Config{}
	conn, err := newDatabaseWithDriver(cfg, "invalid_driver_name")

	assert.Error(t, err)
	assert.Nil(t, conn)
	assert.Contains(t, err.Error(), "failed to connect to DB")
}

type mockDriver struct{ pingErr error }

func (m *mockDriver) Open(name string) (driver.Conn, error) {
	if m.pingErr != nil {
		return nil, m.pingErr
	}
	return &mockConn{}, nil
}

type mockConn struct{}

func (c *mockConn) Prepare(query string) (driver.Stmt, error) { return &mockStmt{}, nil }
func (c *mockConn) Close() error                              { return nil }
func (c *mockConn) Begin() (driver.Tx, error)                 { return nil, nil }

type mockStmt struct{}

func (s *mockStmt) Close() error                                    { return nil }
func (s *mockStmt) NumInput() int                                   { return 0 }
func (s *mockStmt) Exec(args []driver.Value) (driver.Result, error) { return nil, nil }
func (s *mockStmt) Query(args []driver.Value) (driver.Rows, error)  { return nil, nil }

func init() {
	sql.Register("mock_driver_success", &mockDriver{})
	sql.Register("mock_driver_unreachable", &mockDriver{pingErr: errors.New("connection refused")})
}

func TestNewDatabase_Success(t *testing.T) {
	cfg := &config.Config{DBHost: "localhost"}
	conn, err := newDatabaseWithDriver(cfg, "mock_driver_success")
	assert.NoError(t, err)
	assert.NotNil(t, conn)
}

func TestNewDatabase_PingFailure(t *testing.T) {
	cfg := &config.Config{DBHost: "unreachable"}
	conn, err := newDatabaseWithDriver(cfg, "mock_driver_unreachable")

	assert.Error(t, err)
	assert.Nil(t, conn)
	assert.Contains(t, err.Error(), "failed to ping DB")
}

func TestIsUniqueViolation(t *testing.T) {
	uniq := &pq.Error{Code: PgUniqueViolation, Constraint: "orders_order_number_key"}

	assert.True(t, IsUniqueViolation(uniq, ""))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", uniq), "orders_order_number_key"))
	assert.False(t, IsUniqueViolation(uniq, "users_email_key"))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}
