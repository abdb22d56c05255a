// Copyright (c) 2026 the juno authors
// released under the MIT license

package passwd

import (
	"testing"

	"github.com/GehirnInc/crypt/md5_crypt"
)

// vectors from the sha-crypt specification
func TestCryptVectors(t *testing.T) {
	if CompareCryptHashAndPassword(
		"$5$saltstring$5B8vYYiY.CVt1RlTTf8KbXBH3hsxY/GNooZaBBGWEc5",
		[]byte("Hello world!"),
	) != nil {
		t.Errorf("sha256-crypt comparison failed unexpectedly")
	}

	if CompareCryptHashAndPassword(
		"$6$saltstring$svn8UoSVapNtMuq1ukKS4tPQd8iKwSMHWjl/O817G3uBnIFNjnQJuesI68u4OTLiBFdcbYEdFCoEOfaS35inz1",
		[]byte("Hello world!"),
	) != nil {
		t.Errorf("sha512-crypt comparison failed unexpectedly")
	}

	if CompareCryptHashAndPassword(
		"$5$saltstring$5B8vYYiY.CVt1RlTTf8KbXBH3hsxY/GNooZaBBGWEc5",
		[]byte("Goodbye world!"),
	) == nil {
		t.Errorf("sha256-crypt comparison succeeded unexpectedly")
	}
}

func TestCryptMD5RoundTrip(t *testing.T) {
	hash, err := md5_crypt.New().Generate([]byte("letmein"), nil)
	if err != nil {
		t.Fatalf("could not generate md5-crypt hash: %v", err)
	}
	if !IsCryptHash(hash) {
		t.Errorf("generated hash %s not recognized as crypt(3)", hash)
	}
	if CompareCryptHashAndPassword(hash, []byte("letmein")) != nil {
		t.Errorf("md5-crypt comparison failed unexpectedly")
	}
	if CompareCryptHashAndPassword(hash, []byte("letmeout")) == nil {
		t.Errorf("md5-crypt comparison succeeded unexpectedly")
	}
}

func TestCryptUnknownFormat(t *testing.T) {
	if CompareCryptHashAndPassword("$2a$04$acj...", []byte("x")) != ErrCryptInvalid {
		t.Errorf("bcrypt hash should not be accepted as crypt(3)")
	}
	if IsCryptHash("plaintext") {
		t.Errorf("plaintext should not look like a crypt(3) hash")
	}
}
