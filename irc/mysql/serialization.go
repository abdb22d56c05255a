// Copyright (c) 2020 Shivaram Lingamneni
// released under the MIT license

package mysql

import (
	"encoding/json"
	"errors"

	"github.com/junoircd/juno/irc/bans"
)

var (
	ErrUnknownFormat = errors.New("unknown serialization format for ban record")
)

// Records are stored as JSON. The leading '{' doubles as a version marker:
// a binary encoding can be added later under a different first byte.

func marshalBan(ban *bans.Ban) (result []byte, err error) {
	return json.Marshal(ban)
}

func unmarshalBan(data []byte, result *bans.Ban) (err error) {
	if len(data) == 0 || data[0] != '{' {
		return ErrUnknownFormat
	}
	return json.Unmarshal(data, result)
}
