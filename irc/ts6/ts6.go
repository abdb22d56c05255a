// Copyright (c) 2026 the juno authors
// released under the MIT license

// Package ts6 implements the TS6 identifier codec: the bijection between
// internal numeric identifiers (a server ID plus a per-server user counter)
// and the wire representation (a 3-character SID plus a 6-character UID
// suffix in base 36).
package ts6

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSID = errors.New("Invalid TS6 SID")
	ErrInvalidUID = errors.New("Invalid TS6 UID")
	ErrSIDRange   = errors.New("Server ID not representable as a TS6 SID")
	ErrUIDRange   = errors.New("User counter not representable as a TS6 UID")
)

const (
	// counters are 1-based; 36^6 distinct values fit in six positions
	MaxCounter = 36 * 36 * 36 * 36 * 36 * 36

	// SIDs rendered in the base-36 extension cap out at "9ZZ"
	maxSID = 9*36*36 + 35*36 + 35
)

// EncodeCounter renders a 1-based user counter as the 6-character UID
// suffix. The alphabet runs A..Z then 0..9, so A encodes 0 and 9 encodes 35,
// with positions weighted by 36^(5-i) over n-1.
func EncodeCounter(n uint64) (string, error) {
	if n < 1 || n > MaxCounter {
		return "", ErrUIDRange
	}
	m := n - 1
	var out [6]byte
	for i := 5; i >= 0; i-- {
		digit := byte(m % 36)
		if digit < 26 {
			out[i] = 'A' + digit
		} else {
			out[i] = '0' + (digit - 26)
		}
		m /= 36
	}
	return string(out[:]), nil
}

// DecodeCounter recovers the 1-based counter from a 6-character UID suffix.
func DecodeCounter(s string) (uint64, error) {
	if len(s) != 6 {
		return 0, ErrInvalidUID
	}
	var n uint64
	for i := 0; i < 6; i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			n = n*36 + uint64(c-'A')
		case c >= '0' && c <= '9':
			n = n*36 + uint64(c-'0'+26)
		default:
			return 0, ErrInvalidUID
		}
	}
	return n + 1, nil
}

// EncodeSID renders an internal server ID as a 3-character SID. IDs up to
// 999 use the purely numeric legacy form. Larger IDs use base 36 in
// positions 1-2 with position 0 remaining a decimal digit; renders that
// would read back as a different value under the numeric form are refused.
func EncodeSID(id uint32) (string, error) {
	if id <= 999 {
		return fmt.Sprintf("%03d", id), nil
	}
	if id > maxSID {
		return "", ErrSIDRange
	}
	d0 := byte(id / 1296)
	rem := id % 1296
	v1 := byte(rem / 36)
	v2 := byte(rem % 36)
	if v1 <= 9 && v2 <= 9 {
		// would collide with the numeric subset on read-back
		return "", ErrSIDRange
	}
	return string([]byte{'0' + d0, sidChar(v1), sidChar(v2)}), nil
}

func sidChar(v byte) byte {
	if v <= 9 {
		return '0' + v
	}
	return 'A' + (v - 10)
}

func sidVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'Z':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// DecodeSID parses a 3-character SID into an internal server ID. Purely
// numeric SIDs are decimal; otherwise positions 1-2 are read as base 36.
func DecodeSID(s string) (uint32, error) {
	if !ValidSID(s) {
		return 0, ErrInvalidSID
	}
	if s[1] <= '9' && s[2] <= '9' {
		return uint32(s[0]-'0')*100 + uint32(s[1]-'0')*10 + uint32(s[2]-'0'), nil
	}
	v1, _ := sidVal(s[1])
	v2, _ := sidVal(s[2])
	return uint32(s[0]-'0')*1296 + uint32(v1)*36 + uint32(v2), nil
}

// EncodeUID renders a full 9-character wire UID.
func EncodeUID(sid uint32, n uint64) (string, error) {
	s, err := EncodeSID(sid)
	if err != nil {
		return "", err
	}
	c, err := EncodeCounter(n)
	if err != nil {
		return "", err
	}
	return s + c, nil
}

// DecodeUID splits a full 9-character wire UID into its internal parts.
func DecodeUID(s string) (sid uint32, n uint64, err error) {
	if len(s) != 9 {
		return 0, 0, ErrInvalidUID
	}
	sid, err = DecodeSID(s[:3])
	if err != nil {
		return 0, 0, err
	}
	n, err = DecodeCounter(s[3:])
	return
}

// ValidSID reports whether s has the shape of a TS6 SID: a decimal digit
// followed by two characters in [0-9A-Z].
func ValidSID(s string) bool {
	if len(s) != 3 {
		return false
	}
	if s[0] < '0' || s[0] > '9' {
		return false
	}
	for i := 1; i < 3; i++ {
		if _, ok := sidVal(s[i]); !ok {
			return false
		}
	}
	return true
}

// ValidUID reports whether s has the shape of a TS6 UID: a valid SID
// followed by six characters in [0-9A-Z].
func ValidUID(s string) bool {
	if len(s) != 9 || !ValidSID(s[:3]) {
		return false
	}
	for i := 3; i < 9; i++ {
		if _, ok := sidVal(s[i]); !ok {
			return false
		}
	}
	return true
}
