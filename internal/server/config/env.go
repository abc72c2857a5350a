package config

import (
	"os"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file
// in the working directory is loaded first when present; real environment
// variables win over it.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	overlay(&config.Addr, "ADDR")
	overlay(&config.DatabaseDSN, "DATABASE_DSN")
	overlay(&config.UpdatePassword, "UPDATE_PASSWORD")

	overlay(&config.S3User, "S3_USER")
	overlay(&config.S3Password, "S3_PASSWORD")
	overlay(&config.S3Bucket, "S3_BUCKET")
	overlay(&config.S3Region, "S3_REGION")
	overlay(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")

	overlay(&config.APNSTeamID, "APNS_TEAM_ID")
	overlay(&config.APNSKeyID, "APNS_KEY_ID")
	overlay(&config.APNSAuthKeyPath, "APNS_AUTH_KEY_PATH")
	overlay(&config.APNSGatewayURL, "APNS_GATEWAY_URL")

	overlay(&config.WalletPassesAPIKey, "WALLETPASSES_API_KEY")
	overlay(&config.WalletPassesEndpoint, "WALLETPASSES_ENDPOINT")
}

func overlay(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
