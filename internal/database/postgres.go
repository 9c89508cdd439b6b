package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewPostgresGormDB opens a lib/pq connection and hands it to gorm
func NewPostgresGormDB(opts Options) (*GormDB, error) {
	sslMode := opts.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		opts.Host, opts.Port, opts.User, opts.Password, opts.Name, sslMode)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), gormConfig(opts.Logger))
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &GormDB{db: db}, nil
}

// NewSQLiteGormDB opens a SQLite database. An empty path means in-memory.
func NewSQLiteGormDB(opts Options) (*GormDB, error) {
	path := opts.Path
	if path == "" {
		path = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(path), gormConfig(opts.Logger))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	return &GormDB{db: db}, nil
}
