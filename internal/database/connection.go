package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	defaultMySQLPort    = 3306
	defaultPostgresPort = 5432
	connectTimeout      = 10 * time.Second
)

var driverAliases = map[string]string{
	"mysql":      DriverMySQL,
	"mariadb":    DriverMySQL,
	"postgres":   DriverPostgres,
	"postgresql": DriverPostgres,
	"pg":         DriverPostgres,
	"sqlite":     DriverSQLite,
	"sqlite3":    DriverSQLite,
}

// Config describes how to reach the database. When DSN is set it is handed
// to the driver as is and the individual fields are ignored.
type Config struct {
	Driver   string
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// NormalizeDriver resolves a driver name or alias.
func NormalizeDriver(name string) (string, error) {
	driver, ok := driverAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unsupported database driver %q", name)
	}

	return driver, nil
}

// DefaultPort returns the conventional port for a driver, 0 if it has none.
func DefaultPort(driver string) int {
	switch driver {
	case DriverMySQL:
		return defaultMySQLPort
	case DriverPostgres:
		return defaultPostgresPort
	default:
		return 0
	}
}

// Connection holds a single dedicated session for the lifetime of a run.
type Connection struct {
	db   *sql.DB
	conn *sql.Conn
}

// Open connects to the database described by cfg and pins one session.
func Open(ctx context.Context, cfg Config) (*Connection, error) {
	driver, err := NormalizeDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if dsn == "" {
		dsn, err = buildDSN(driver, cfg)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// One run, one session.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", TranslateError(err))
	}

	err = conn.PingContext(ctx)
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", TranslateError(err))
	}

	return &Connection{db: db, conn: conn}, nil
}

// buildDSN constructs a driver specific connection string.
func buildDSN(driver string, cfg Config) (string, error) {
	port := cfg.Port
	if port == 0 {
		port = DefaultPort(driver)
	}

	switch driver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
		mc.DBName = cfg.Name
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	case DriverPostgres:
		connStr := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable",
			quoteConnValue(cfg.Host), port, quoteConnValue(cfg.User), quoteConnValue(cfg.Name))

		if cfg.Password != "" {
			connStr += fmt.Sprintf(" password=%s", quoteConnValue(cfg.Password))
		}

		return connStr, nil
	case DriverSQLite:
		if cfg.Name == "" {
			return "", fmt.Errorf("sqlite requires a database file name")
		}

		return cfg.Name, nil
	}

	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// quoteConnValue quotes a value for a libpq key/value connection string.
func quoteConnValue(value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return value
	}

	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)
	return "'" + value + "'"
}

// Conn returns the pinned session.
func (c *Connection) Conn() *sql.Conn {
	return c.conn
}

// Close releases the session and the underlying pool.
func (c *Connection) Close() error {
	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}

	if c.db != nil {
		dbErr := c.db.Close()
		if err == nil {
			err = dbErr
		}
	}

	return err
}

// Ping verifies the connection is still alive
func (c *Connection) Ping(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("database connection is nil")
	}

	return c.conn.PingContext(ctx)
}
