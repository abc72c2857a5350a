package config

import "flag"

// parseFlags overlays selected Config fields from command-line flags.
// args is usually os.Args[1:]; tests pass their own slice.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)

	fs.StringVar(&config.Addr, "a", config.Addr, "address and port to listen on")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.UpdatePassword, "s", config.UpdatePassword, "update password for POST/PUT (empty = open)")

	fs.StringVar(&config.S3User, "u", config.S3User, "S3 user")
	fs.StringVar(&config.S3Password, "p", config.S3Password, "S3 password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.APNSTeamID, "apns-team", config.APNSTeamID, "APNs team id")
	fs.StringVar(&config.APNSKeyID, "apns-key", config.APNSKeyID, "APNs key id")
	fs.StringVar(&config.APNSAuthKeyPath, "apns-authkey", config.APNSAuthKeyPath, "path to the APNs .p8 signing key")

	fs.StringVar(&config.WalletPassesAPIKey, "wpns-key", config.WalletPassesAPIKey, "WalletPasses API key")

	// ExitOnError: a bad flag prints the usage message and exits 2.
	_ = fs.Parse(args)
}
