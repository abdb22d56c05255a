// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"strings"
	"testing"
	"time"

	"github.com/go-test/deep"

	"github.com/junoircd/juno/irc/modes"
	"github.com/junoircd/juno/irc/passwd"
)

const baseConfigYaml = `
network:
    name: TestNet
server:
    name: hub.test.net
    description: test hub
    sid: "42X"
    max-sendq: 1M
    ping-frequency: 2m
links:
    Remote.Test.Net:
        receive-password: "sesame"
        send-password: "opensesame"
        autoconnect: 5m
        address: "10.0.0.1:7000"
channels:
    default-modes: +ntk sekrit
limits:
    nicklen: 32
    channellen: 64
    kicklen: 390
    topiclen: 390
    banlen: 190
    paramlen: 100
    chan-list-modes: 3
bans:
    min-lifetime: 10m
datastore:
    path: /tmp/juno-config-test.db
logging:
    - method: stderr
      type: "* -debug"
      level: info
`

func TestLoadConfigValid(t *testing.T) {
	config, err := loadConfigData([]byte(baseConfigYaml))
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	if config.Server.nameCasefolded != "hub.test.net" {
		t.Errorf("server name not casefolded: %s", config.Server.nameCasefolded)
	}
	// "42X" is the base-36 extension: 4*1296 + 2*36 + 33
	if config.ServerID() != 5289 {
		t.Errorf("sid decoded to %d, want 5289", config.ServerID())
	}
	if config.Server.MaxSendQBytes != 1024*1024 {
		t.Errorf("max-sendq parsed to %d", config.Server.MaxSendQBytes)
	}
	if config.Server.PingFrequency != 2*time.Minute {
		t.Errorf("ping-frequency parsed to %v", config.Server.PingFrequency)
	}

	link := config.Links["remote.test.net"]
	if link == nil {
		t.Fatal("link block not re-keyed by casefolded name")
	}
	if link.Name() != "remote.test.net" || link.AutoConnect != 5*time.Minute {
		t.Errorf("link block mangled: %+v", link)
	}

	wantModes := modes.ModeChanges{
		{Op: modes.Add, Name: "no_ext"},
		{Op: modes.Add, Name: "protect_topic"},
		{Op: modes.Add, Name: "key", Param: "sekrit"},
	}
	if diff := deep.Equal(config.DefaultChannelModes(), wantModes); diff != nil {
		t.Errorf("default channel modes: %v", diff)
	}

	if config.Bans.Audit.RetentionTime != config.Bans.MinLifetime {
		t.Errorf("audit retention %v not tied to ban min-lifetime %v",
			config.Bans.Audit.RetentionTime, config.Bans.MinLifetime)
	}

	if len(config.Logging) != 1 {
		t.Fatalf("expected 1 logging block, got %d", len(config.Logging))
	}
	logConfig := config.Logging[0]
	if !logConfig.MethodStderr || logConfig.MethodFile || logConfig.MethodStdout {
		t.Errorf("logging methods misparsed: %+v", logConfig)
	}
	if diff := deep.Equal(logConfig.Types, []string{"*"}); diff != nil {
		t.Errorf("logging types: %v", diff)
	}
	if diff := deep.Equal(logConfig.ExcludedTypes, []string{"debug"}); diff != nil {
		t.Errorf("logging excluded types: %v", diff)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	yaml := strings.Replace(baseConfigYaml, "    banlen: 190\n", "", 1)
	yaml = strings.Replace(yaml, "    paramlen: 100\n", "", 1)
	yaml = strings.Replace(yaml, "    max-sendq: 1M\n", "", 1)
	yaml = strings.Replace(yaml, "    ping-frequency: 2m\n", "", 1)
	config, err := loadConfigData([]byte(yaml))
	if err != nil {
		t.Fatalf("config without optional fields rejected: %v", err)
	}
	if config.Limits.BanLen != 190 || config.Limits.ParamLen != 100 {
		t.Errorf("limit defaults not applied: %+v", config.Limits)
	}
	if config.Server.MaxSendQBytes != 4*1024*1024 {
		t.Errorf("sendq default not applied: %d", config.Server.MaxSendQBytes)
	}
	if config.Server.PingFrequency != time.Minute {
		t.Errorf("ping-frequency default not applied: %v", config.Server.PingFrequency)
	}
}

func TestLoadConfigRejections(t *testing.T) {
	break_ := func(old, new string) string {
		mangled := strings.Replace(baseConfigYaml, old, new, 1)
		if mangled == baseConfigYaml {
			t.Fatalf("test setup: %q not found in base config", old)
		}
		return mangled
	}
	cases := []struct {
		label string
		yaml  string
	}{
		{"missing network name", break_("    name: TestNet\n", "")},
		{"missing server name", break_("    name: hub.test.net\n", "")},
		{"server name not a hostname", break_("name: hub.test.net", "name: hub")},
		{"sid with leading letter", break_(`sid: "42X"`, `sid: "X42"`)},
		{"sid too short", break_(`sid: "42X"`, `sid: "42"`)},
		{"missing datastore path", break_("    path: /tmp/juno-config-test.db\n", "")},
		{"zero nicklen", break_("nicklen: 32", "nicklen: 0")},
		{"unparseable sendq", break_("max-sendq: 1M", "max-sendq: lots")},
		{"link without send password", break_(`        send-password: "opensesame"` + "\n", "")},
		{"link name not a hostname", break_("Remote.Test.Net:", "remote:")},
		{"autoconnect without address", break_(`        address: "10.0.0.1:7000"` + "\n", "")},
		{"negative ban lifetime", break_("min-lifetime: 10m", "min-lifetime: -10m")},
		{"unknown log level", break_("level: info", "level: chatty")},
		{"log block with no types", break_(`type: "* -debug"`, `type: "-debug"`)},
		{"file logging without filename", break_("method: stderr", "method: file")},
	}
	for _, tc := range cases {
		if _, err := loadConfigData([]byte(tc.yaml)); err == nil {
			t.Errorf("config with %s was accepted", tc.label)
		}
	}
}

func TestParseDefaultChannelModes(t *testing.T) {
	nt := modes.ModeChanges{
		{Op: modes.Add, Name: "no_ext"},
		{Op: modes.Add, Name: "protect_topic"},
	}
	if diff := deep.Equal(ParseDefaultChannelModes(nil), nt); diff != nil {
		t.Errorf("builtin default: %v", diff)
	}

	moded := "+im"
	want := modes.ModeChanges{
		{Op: modes.Add, Name: "invite_only"},
		{Op: modes.Add, Name: "moderated"},
	}
	if diff := deep.Equal(ParseDefaultChannelModes(&moded), want); diff != nil {
		t.Errorf("configured default: %v", diff)
	}

	// removals cannot be a channel default; only the adds survive
	mixed := "-m+s"
	want = modes.ModeChanges{{Op: modes.Add, Name: "secret"}}
	if diff := deep.Equal(ParseDefaultChannelModes(&mixed), want); diff != nil {
		t.Errorf("mixed default: %v", diff)
	}
}

func TestLinkCheckPassword(t *testing.T) {
	var conf LinkConfig

	conf.ReceivePassword = ""
	if conf.CheckPassword("") || conf.CheckPassword("anything") {
		t.Error("empty receive-password must reject everything")
	}

	conf.ReceivePassword = "sesame"
	if !conf.CheckPassword("sesame") || conf.CheckPassword("SESAME") {
		t.Error("plaintext comparison broken")
	}

	hash, err := passwd.GenerateFromPassword([]byte("sesame"), passwd.MinCost)
	if err != nil {
		t.Fatalf("could not generate bcrypt hash: %v", err)
	}
	conf.ReceivePassword = string(hash)
	if !conf.CheckPassword("sesame") || conf.CheckPassword("opensesame") {
		t.Error("bcrypt comparison broken")
	}

	// a hash imported from another ircd's mkpasswd
	conf.ReceivePassword = "$5$saltstring$5B8vYYiY.CVt1RlTTf8KbXBH3hsxY/GNooZaBBGWEc5"
	if !conf.CheckPassword("Hello world!") || conf.CheckPassword("Goodbye world!") {
		t.Error("crypt(3) comparison broken")
	}
}
