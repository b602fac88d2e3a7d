package database

import (
	"log"
	"net"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/plclassificados/marketplace/app/models"
	"github.com/plclassificados/marketplace/internal/pkg/env"
)

const (
	maxAttempts  = 5
	firstBackoff = 2 * time.Second
)

var DB *gorm.DB

// GetDB returns the shared connection pool or nil before SetupDatabase ran.
func GetDB() *gorm.DB {
	return DB
}

// DSN builds the MySQL data source name from DB_* variables.
func DSN() string {
	cfg := mysqldriver.NewConfig()
	cfg.User = env.GetEnv("DB_USER", "")
	cfg.Passwd = env.GetEnv("DB_PASSWORD", "")
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(env.GetEnv("DB_HOST", "127.0.0.1"), env.GetEnv("DB_PORT", "3306"))
	cfg.DBName = env.GetEnv("DB_NAME", "")
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// SetupDatabase connects with exponential backoff and panics when MySQL
// stays unreachable. Tables are auto-migrated unless DB_AUTO_MIGRATE=false.
func SetupDatabase() {
	dsn := DSN()
	backoff := firstBackoff

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:               dsn,
			DefaultStringSize: 191, // utf8mb4 index limit
		}), &gorm.Config{TranslateError: true})
		if err == nil {
			break
		}
		log.Printf("database: connect attempt %d/%d failed: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	if err != nil {
		panic(err)
	}

	if sqlDB, err := DB.DB(); err == nil {
		sqlDB.SetMaxOpenConns(env.GetEnvInt("DB_MAX_OPEN_CONNS", 20))
		sqlDB.SetMaxIdleConns(env.GetEnvInt("DB_MAX_IDLE_CONNS", 5))
		sqlDB.SetConnMaxLifetime(env.GetEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute))
	}

	if env.GetEnv("DB_AUTO_MIGRATE", "true") == "true" {
		if err := AutoMigrate(DB); err != nil {
			log.Printf("database: auto migrate failed: %v", err)
		}
	}
}

// AutoMigrate creates or updates every table the marketplace core owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Plan{},
		&models.User{},
		&models.Subscription{},
		&models.Payment{},
		&models.Listing{},
		&models.WebhookEvent{},
	)
}
