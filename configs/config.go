package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func Config(key string) string {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	return os.Getenv(key)
}

// Settings carries the policy toggles and gateway credentials that
// reconciliation depends on. Loaded once in main and passed down explicitly
// so the dispatcher and ledger never read globals.
type Settings struct {
	GatewayBaseURL string
	GatewayAPIKey  string
	GatewayTimeout time.Duration

	AutoRefund   bool
	VaultStorage bool
}

func Load() Settings {
	timeoutSec, err := strconv.Atoi(Config("CCV_TIMEOUT_SECONDS"))
	if err != nil || timeoutSec <= 0 {
		timeoutSec = 10
	}

	return Settings{
		GatewayBaseURL: Config("CCV_API_BASE_URL"),
		GatewayAPIKey:  Config("CCV_API_KEY"),
		GatewayTimeout: time.Duration(timeoutSec) * time.Second,
		AutoRefund:     Config("AUTO_REFUND_ENABLED") == "true",
		VaultStorage:   Config("VAULT_STORAGE_ENABLED") == "true",
	}
}
