package db

import (
	"fmt"
)

// Store drivers
const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverBadger   = "badger"
)

// Options selects and configures a store driver
type Options struct {
	Driver      string
	RedisURL    string
	DatabaseURL string
	SQLitePath  string
	BadgerPath  string
}

// Open connects the configured driver
func Open(opts Options) (Store, error) {
	switch opts.Driver {
	case DriverRedis, "":
		return NewRedisDB(opts.RedisURL)
	case DriverPostgres:
		return NewPostgresDB(opts.DatabaseURL)
	case DriverSQLite:
		return NewSQLiteDB(opts.SQLitePath)
	case DriverBadger:
		return NewBadgerDB(opts.BadgerPath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
