package ouroboros

import (
	"github.com/i5heu/ouroboros-vault/pkg/types"
	"github.com/sirupsen/logrus"
)

// Config configures the vault server. Only Paths[0] is used at the moment.
type Config struct {
	// Paths contains data directories. Paths[0] is the root of the file database.
	Paths []string
	// MinimumFreeGB is a free-space threshold checked on Start.
	MinimumFreeGB uint
	// Logger is an optional logger. If nil, an Info level stderr logger is used.
	Logger *logrus.Logger
	// Vaults are created on Start if they do not exist yet.
	Vaults []VaultConfig
	// KeyStorePath holds the API key store. Defaults to Paths[0]/.keys.
	KeyStorePath string
	// KeyStoreInMemory keeps API keys in memory only.
	KeyStoreInMemory bool
	// SecretsPath is an optional secrets file whose API keys are accepted in
	// addition to the stored ones. It is re-read on every check.
	SecretsPath string
	// WorkerCount bounds the goroutines used to open vaults.
	WorkerCount int
}

type VaultConfig struct {
	Name string
	Type types.VaultType
}

func defaultLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)
	return log
}
