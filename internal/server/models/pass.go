// Package models declares the persistent records served and mutated by the
// vanity pass endpoints.
package models

import "time"

// PassContentType is the wallet-pass media type used both when storing
// artifacts and when serving them.
const PassContentType = "application/vnd.apple.pkpass"

// Pass is one versioned pass artifact, addressable by its vanity name.
//
// VanityName is immutable after creation and matched exactly against the
// parsed request name. PassPath is the blob-store handle of the artifact
// bytes; it stays empty until the first successful upload. UpdatedAt is
// bumped on every write and drives the Last-Modified header.
type Pass struct {
	ID                  string
	VanityName          string
	AuthenticationToken string
	PassTypeIdentifier  string
	SerialNumber        string
	PassPath            string
	UpdatedAt           time.Time
}

// HasArtifact reports whether pass bytes have ever been uploaded.
func (p *Pass) HasArtifact() bool {
	return p.PassPath != ""
}
