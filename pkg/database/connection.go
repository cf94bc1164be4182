package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

// Connection holds the parameters needed to reach a server.
type Connection struct {
	Host     string
	Port     int
	User     string
	Pass     string
	Database string
}

// MySQL returns the go-sql-driver DSN for the connection.
func (c Connection) MySQL() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}

// Open opens and pings a connection pool for c.
func Open(ctx context.Context, c Connection) (*sql.DB, error) {
	db, err := sql.Open("mysql", c.MySQL())
	if err != nil {
		return nil, fmt.Errorf("failed to open connection to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database %s: %w", net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), err)
	}
	return db, nil
}
