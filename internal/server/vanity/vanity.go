// Package vanity parses requested file names into bare vanity identifiers.
package vanity

import (
	"strings"

	"github.com/passbeam/passbeam/internal/common"
)

// Suffix is the file extension a vanity pass request must carry.
const Suffix = ".pkpass"

// ParseName strips the .pkpass suffix (anchored at the end, matched
// case-insensitively) from fileName and returns the bare vanity name.
// Names without the suffix are not vanity pass requests and yield
// common.ErrNotVanityName.
func ParseName(fileName string) (string, error) {
	if len(fileName) < len(Suffix) {
		return "", common.ErrNotVanityName
	}
	tail := fileName[len(fileName)-len(Suffix):]
	if !strings.EqualFold(tail, Suffix) {
		return "", common.ErrNotVanityName
	}
	return fileName[:len(fileName)-len(Suffix)], nil
}
