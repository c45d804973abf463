// Package postgres implements the database adapter executed by queued
// commands, backed by database/sql with the pgx driver.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // register the "pgx" driver with database/sql
)

var (
	// ErrAlreadyConnected is returned by ConnectTo when a connection is open.
	ErrAlreadyConnected = errors.New("already connected to a database")
	// ErrNotConnected is returned by ExecuteQuery and Disconnect when no
	// connection is open.
	ErrNotConnected = errors.New("not connected to a database")
)

var DefaultConfig = Config{
	Host:          "localhost",
	Port:          5432,
	User:          "postgres",
	MaintenanceDB: "postgres",
}

type Config struct {
	User          string // Role used for every connection
	Password      string
	Host          string
	Port          int
	MaintenanceDB string // Database used for CREATE DATABASE statements
}

func (c *Config) String() string {
	return fmt.Sprintf("User: %s, Host: %s, Port: %d, MaintenanceDB: %s", c.User, c.Host, c.Port, c.MaintenanceDB)
}

// dsn renders the connection URL for the given database.
func (c Config) dsn(database string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + database,
	}
	return u.String()
}

// Client is a single-connection Postgres adapter. It holds at most one open
// database at a time; commands drive the connect/query/disconnect cycle. The
// client is only ever touched by the queue's executor goroutine, the mutex
// merely keeps misuse detectable.
type Client struct {
	config Config

	mu           sync.Mutex // Mutex to ensure thread safety
	db           *sql.DB    // Open connection, nil when disconnected
	databaseName string
}

// NewClient creates an adapter for the given server configuration.
func NewClient(config Config) *Client {
	if config.MaintenanceDB == "" {
		config.MaintenanceDB = DefaultConfig.MaintenanceDB
	}
	return &Client{config: config}
}

func (c *Client) open(database string) (*sql.DB, error) {
	db, err := sql.Open("pgx", c.config.dsn(database))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// CreateDatabase creates a new database via the maintenance database.
func (c *Client) CreateDatabase(name string) error {
	db, err := c.open(c.config.MaintenanceDB)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec("CREATE DATABASE " + pgx.Identifier{name}.Sanitize()); err != nil {
		return err
	}
	log.Debug("database created", "database", name)
	return nil
}

// ConnectTo opens a connection to the named database.
func (c *Client) ConnectTo(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return ErrAlreadyConnected
	}
	db, err := c.open(name)
	if err != nil {
		return err
	}
	c.db = db
	c.databaseName = name
	log.Debug("database connected", "database", name)
	return nil
}

// ExecuteQuery runs a query with named parameters against the connected
// database and returns the rows as a slice of column-name maps.
func (c *Client) ExecuteQuery(query string, parameters map[string]any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil, ErrNotConnected
	}
	var (
		rows *sql.Rows
		err  error
	)
	if len(parameters) != 0 {
		rows, err = c.db.Query(query, pgx.NamedArgs(parameters))
	} else {
		rows, err = c.db.Query(query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rowsToMaps(rows)
}

// Disconnect closes the open connection.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return ErrNotConnected
	}
	err := c.db.Close()
	log.Debug("database disconnected", "database", c.databaseName)
	c.db = nil
	c.databaseName = ""
	return err
}

func rowsToMaps(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
			} else {
				row[column] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
