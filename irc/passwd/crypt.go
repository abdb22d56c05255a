// Copyright (c) 2026 the juno authors
// released under the MIT license

package passwd

import (
	"errors"
	"strings"

	"github.com/GehirnInc/crypt/md5_crypt"
	"github.com/GehirnInc/crypt/sha256_crypt"
	"github.com/GehirnInc/crypt/sha512_crypt"
)

var (
	// ErrCryptInvalid means the stored hash isn't a crypt(3) form we know.
	ErrCryptInvalid = errors.New("password hash invalid for algorithm")
)

// CompareCryptHashAndPassword verifies a posix crypt(3) hash, the format
// other ircds' mkpasswd tools emit. Link blocks imported from a ratbox or
// charybdis install carry these; we accept the md5 ($1$) and sha-crypt
// ($5$, $6$) variants.
func CompareCryptHashAndPassword(hash string, password []byte) error {
	switch {
	case strings.HasPrefix(hash, "$1$"):
		return md5_crypt.New().Verify(hash, password)
	case strings.HasPrefix(hash, "$5$"):
		return sha256_crypt.New().Verify(hash, password)
	case strings.HasPrefix(hash, "$6$"):
		return sha512_crypt.New().Verify(hash, password)
	default:
		return ErrCryptInvalid
	}
}

// IsCryptHash reports whether the stored string looks like a crypt(3) hash
// rather than a bcrypt hash or a plaintext password.
func IsCryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$1$") ||
		strings.HasPrefix(hash, "$5$") ||
		strings.HasPrefix(hash, "$6$")
}
