package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/walletledger/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	Store       config.StoreConfig
	Ledger      config.LedgerConfig
	Risk        config.RiskConfig
	Notify      config.NotifyConfig
	Maintenance config.MaintenanceConfig
}
