// Package database opens the Postgres connection backing the remote
// document store, starting an embedded server when no password is set.
package database

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xelth-com/pantrysync/internal/config"
)

const (
	embeddedPort     = 5433
	embeddedPassword = "postgres"
)

// DB wraps gorm.DB and the embedded server when one was started.
type DB struct {
	*gorm.DB
	embedded *embeddedpostgres.EmbeddedPostgres
	log      *zap.Logger
}

// IsEmbedded reports whether cfg selects the embedded server: localhost and
// no password.
func IsEmbedded(cfg config.DatabaseConfig) bool {
	return cfg.Host == "localhost" && cfg.Password == ""
}

// DSN renders the libpq connection string.
func DSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database,
	)
}

// Connect opens cfg. dataDir holds the embedded cluster files.
func Connect(cfg config.DatabaseConfig, dataDir string, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("database")

	var embedded *embeddedpostgres.EmbeddedPostgres
	if IsEmbedded(cfg) {
		log.Info("📦 starting embedded PostgreSQL")
		pgData := filepath.Join(dataDir, "pg")
		cleanupStalePostmaster(pgData, log)

		if err := waitForPort(embeddedPort, 3*time.Second); err != nil {
			return nil, err
		}

		embedded = embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
			DataPath(pgData).
			Port(uint32(embeddedPort)).
			Database(cfg.Database).
			Username(cfg.Username).
			Password(embeddedPassword))
		if err := embedded.Start(); err != nil {
			return nil, errors.Wrap(err, "start embedded database")
		}

		cfg.Port = strconv.Itoa(embeddedPort)
		cfg.Password = embeddedPassword
		log.Info("✅ embedded PostgreSQL started", zap.Int("port", embeddedPort))
	} else {
		log.Info("🌐 connecting to external PostgreSQL", zap.String("host", cfg.Host), zap.String("port", cfg.Port))
	}

	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		if embedded != nil {
			_ = embedded.Stop()
		}
		return nil, errors.Wrap(err, "connect to database")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Info("✅ database connection established")
	return &DB{DB: db, embedded: embedded, log: log}, nil
}

// Close closes the pool and stops the embedded server.
func (db *DB) Close() error {
	if sqlDB, err := db.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if db.embedded != nil {
		db.log.Info("🛑 stopping embedded PostgreSQL")
		return errors.Wrap(db.embedded.Stop(), "stop embedded database")
	}
	return nil
}

// cleanupStalePostmaster removes the pid file of a crashed embedded server,
// stopping the process first when it is still alive.
func cleanupStalePostmaster(pgData string, log *zap.Logger) {
	pidFile := filepath.Join(pgData, "postmaster.pid")
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return
	}

	first := strings.SplitN(string(data), "\n", 2)[0]
	pid, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		log.Warn("unreadable postmaster.pid", zap.Error(err))
		return
	}

	process, err := os.FindProcess(pid)
	if err != nil || process.Signal(syscall.Signal(0)) != nil {
		log.Info("🧹 removing stale postmaster.pid", zap.Int("pid", pid))
		os.Remove(pidFile)
		return
	}

	log.Warn("orphaned PostgreSQL process, stopping", zap.Int("pid", pid))
	_ = process.Signal(syscall.SIGTERM)
	for i := 0; i < 10; i++ {
		time.Sleep(500 * time.Millisecond)
		if process.Signal(syscall.Signal(0)) != nil {
			os.Remove(pidFile)
			return
		}
	}
	_ = process.Kill()
	time.Sleep(500 * time.Millisecond)
	os.Remove(pidFile)
}

func waitForPort(port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for portInUse(port) {
		if time.Now().After(deadline) {
			return errors.Errorf("port %d is still in use by another process", port)
		}
		time.Sleep(500 * time.Millisecond)
	}
	return nil
}

func portInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
