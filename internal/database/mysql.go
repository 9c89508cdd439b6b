package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"listing-portal/internal/models"
)

// ErrNotFound is returned when a looked up record does not exist
var ErrNotFound = errors.New("record not found")

// GormDB is the record store shared by every component
type GormDB struct {
	db *gorm.DB
}

// Options carries connection settings for every supported driver
type Options struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	// Path is the SQLite file, ":memory:" for an in-process database
	Path   string
	Logger *logrus.Logger
}

func gormConfig(log *logrus.Logger) *gorm.Config {
	level := logger.Warn
	if log != nil && log.IsLevelEnabled(logrus.DebugLevel) {
		level = logger.Info
	}
	var writer logger.Writer = logrus.StandardLogger()
	if log != nil {
		writer = log
	}
	return &gorm.Config{
		Logger: logger.New(writer, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewGormDB connects to MySQL
func NewGormDB(opts Options) (*GormDB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		opts.User, opts.Password, opts.Host, opts.Port, opts.Name)

	db, err := gorm.Open(mysql.Open(dsn), gormConfig(opts.Logger))
	if err != nil {
		return nil, err
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &GormDB{db: db}, nil
}

// Open connects with the driver named by dbType: mysql, postgres or sqlite
func Open(dbType string, opts Options) (*GormDB, error) {
	switch dbType {
	case "", "mysql":
		return NewGormDB(opts)
	case "postgres":
		return NewPostgresGormDB(opts)
	case "sqlite":
		return NewSQLiteGormDB(opts)
	}
	return nil, fmt.Errorf("unsupported database type %q", dbType)
}

// NewGormDBFromDB creates a GormDB wrapper from an existing gorm.DB instance
func NewGormDBFromDB(db *gorm.DB) *GormDB {
	return &GormDB{db: db}
}

// DB returns the underlying gorm.DB instance
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (gdb *GormDB) InitSchema() error {
	return gdb.db.AutoMigrate(
		&models.Property{},
		&models.Payment{},
		&models.Land{},
		&models.Apartment{},
		&models.Home{},
		&models.PropertyChange{},
		&models.PropertyRequest{},
		&models.ReconcileLog{},
	)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
