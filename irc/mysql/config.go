// Copyright (c) 2020 Shivaram Lingamneni
// released under the MIT license

package mysql

import (
	"time"
)

type Config struct {
	// these are intended to be written directly into the config file:
	Enabled       bool
	Host          string
	Port          int
	SocketPath    string `yaml:"socket-path"`
	User          string
	Password      string
	AuditDatabase string `yaml:"audit-database"`
	Timeout       time.Duration

	// XXX these are copied from elsewhere in the config:
	RetentionTime time.Duration
}
