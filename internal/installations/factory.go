package installations

import (
	"fmt"

	"ghl-oauth-manager/internal/config"
	"ghl-oauth-manager/internal/crypto"
	"ghl-oauth-manager/internal/redis"
)

// Open builds the store selected by STORE_TYPE. Token fields are encrypted
// at rest when CONFIG_ENCRYPTION_KEY is set.
func Open(cfg *config.Config, redisClient *redis.Client) (Store, error) {
	cipher, err := crypto.NewTokenCipher(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cipher: %w", err)
	}

	switch cfg.StoreType {
	case "", config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreRedis:
		return NewRedisStore(redisClient, cipher)
	case config.StoreSQLite:
		return OpenSQLite(cfg.DatabasePath, cipher)
	case config.StorePostgres, "postgresql":
		return OpenPostgres(PostgresDSN(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB,
			cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresSSLMode), cipher)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.StoreType)
	}
}
