package config

import (
	"encoding/json"
	"os"
)

// JsonConfig mirrors Config for JSON unmarshalling; empty fields leave the
// current value untouched.
type JsonConfig struct {
	Addr           string `json:"addr"`
	DatabaseDSN    string `json:"database_dsn"`
	UpdatePassword string `json:"update_password"`

	S3User         string `json:"s3_user"`
	S3Password     string `json:"s3_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	APNSTeamID      string `json:"apns_team_id"`
	APNSKeyID       string `json:"apns_key_id"`
	APNSAuthKeyPath string `json:"apns_auth_key_path"`
	APNSGatewayURL  string `json:"apns_gateway_url"`

	WalletPassesAPIKey   string `json:"walletpasses_api_key"`
	WalletPassesEndpoint string `json:"walletpasses_endpoint"`
}

// parseJson overlays Config from the JSON file named by the CONFIG_FILE
// environment variable. No variable, no overlay. An unreadable or invalid
// file is a startup failure and panics.
func parseJson(config *Config) {
	jsonConfigFile := os.Getenv("CONFIG_FILE")
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	apply := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	apply(&config.Addr, c.Addr)
	apply(&config.DatabaseDSN, c.DatabaseDSN)
	apply(&config.UpdatePassword, c.UpdatePassword)
	apply(&config.S3User, c.S3User)
	apply(&config.S3Password, c.S3Password)
	apply(&config.S3Bucket, c.S3Bucket)
	apply(&config.S3Region, c.S3Region)
	apply(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	apply(&config.APNSTeamID, c.APNSTeamID)
	apply(&config.APNSKeyID, c.APNSKeyID)
	apply(&config.APNSAuthKeyPath, c.APNSAuthKeyPath)
	apply(&config.APNSGatewayURL, c.APNSGatewayURL)
	apply(&config.WalletPassesAPIKey, c.WalletPassesAPIKey)
	apply(&config.WalletPassesEndpoint, c.WalletPassesEndpoint)
}
