package models

// ClientApp tags which push backend a registration belongs to. The raw
// values are the ones stored by the registration endpoints; rows created
// before the column existed have an empty tag and are treated as
// ClientAppleWallet.
type ClientApp string

const (
	ClientAppleWallet  ClientApp = "ApplePass"
	ClientWalletPasses ClientApp = "AndroidPass"
)

// Registration is one device's subscription to updates of a single pass.
// This slice of the service only ever reads registrations; the wallet
// web-service endpoints own their lifecycle.
type Registration struct {
	ID                      string
	PassID                  string
	DeviceLibraryIdentifier string
	DeviceToken             string
	ClientApp               ClientApp
}

// Backend returns the push backend for the registration, defaulting legacy
// untagged rows to the Apple Wallet gateway.
func (r *Registration) Backend() ClientApp {
	if r.ClientApp == "" {
		return ClientAppleWallet
	}
	return r.ClientApp
}
