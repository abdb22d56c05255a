// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2016-2017 Daniel Oaks <daniel@danieloaks.net>
// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"crypto/tls"
	"fmt"
	"os"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"gopkg.in/yaml.v2"

	"github.com/junoircd/juno/irc/logger"
	"github.com/junoircd/juno/irc/modes"
	"github.com/junoircd/juno/irc/mysql"
	"github.com/junoircd/juno/irc/passwd"
	"github.com/junoircd/juno/irc/ts6"
	"github.com/junoircd/juno/irc/utils"
)

// here's how this works: exported (capitalized) members of the config structs
// are defined in the YAML file and deserialized directly from there. They may
// be postprocessed and overwritten by LoadConfig. Unexported (lowercase) members
// are derived from the exported members in LoadConfig.

// TLSListenConfig defines configuration options for listening on TLS.
type TLSListenConfig struct {
	Cert string
	Key  string
}

// Config returns the TLS configuration associated with this TLSListenConfig.
func (conf *TLSListenConfig) Config() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(conf.Cert, conf.Key)
	if err != nil {
		return nil, ErrInvalidCertKeyPair
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
	}, err
}

// LinkConfig defines a server we will accept connections from, or connect
// out to. The map key in the config file is the remote server's name.
type LinkConfig struct {
	Address            string
	TLS                bool
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	ReceivePassword    string        `yaml:"receive-password"`
	SendPassword       string        `yaml:"send-password"`
	AutoConnect        time.Duration `yaml:"autoconnect"`

	name string
}

// Name returns the casefolded server name this link block applies to.
func (conf *LinkConfig) Name() string {
	return conf.name
}

// CheckPassword verifies a PASS argument received from the remote side
// against receive-password. The stored password may be a `juno genpasswd`
// bcrypt hash, a crypt(3) hash from another ircd's mkpasswd, or
// (discouraged) plaintext.
func (conf *LinkConfig) CheckPassword(attempt string) bool {
	stored := conf.ReceivePassword
	if stored == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2") {
		return passwd.CompareHashAndPassword([]byte(stored), []byte(attempt)) == nil
	}
	if passwd.IsCryptHash(stored) {
		return passwd.CompareCryptHashAndPassword(stored, []byte(attempt)) == nil
	}
	return utils.SecretTokensMatch(stored, attempt)
}

// Limits holds the maximum lengths the server enforces on various fields.
type Limits struct {
	BanLen        int `yaml:"banlen"`
	ChanListModes int `yaml:"chan-list-modes"`
	ChannelLen    int `yaml:"channellen"`
	KickLen       int `yaml:"kicklen"`
	NickLen       int `yaml:"nicklen"`
	ParamLen      int `yaml:"paramlen"`
	TopicLen      int `yaml:"topiclen"`
}

// BansConfig controls the network ban subsystem.
type BansConfig struct {
	// bans are retained (for propagation to servers that missed the unset)
	// for at least this long after they expire:
	MinLifetime time.Duration `yaml:"min-lifetime"`
	Audit       mysql.Config
}

// Config defines the overall configuration.
type Config struct {
	Network struct {
		Name string
	}

	Server struct {
		Name           string
		nameCasefolded string
		Description    string
		SID            string
		sid            ServerID
		Listen         []string
		TLSListeners   map[string]*TLSListenConfig `yaml:"tls-listeners"`
		tlsListeners   map[string]*tls.Config
		MaxSendQString string `yaml:"max-sendq"`
		MaxSendQBytes  int
		PingFrequency  time.Duration `yaml:"ping-frequency"`
	}

	Links map[string]*LinkConfig

	Channels struct {
		DefaultModes *string `yaml:"default-modes"`
		defaultModes modes.ModeChanges
	}

	Limits Limits

	Bans BansConfig

	Datastore struct {
		Path        string
		AutoUpgrade bool `yaml:"autoupgrade"`
	}

	Logging []logger.LoggingConfig

	Filename string
}

// ServerID returns the decoded numeric form of the configured server ID.
func (config *Config) ServerID() ServerID {
	return config.Server.sid
}

// TLSListeners returns a map of listening addresses to their TLS configs.
func (config *Config) TLSListeners() map[string]*tls.Config {
	return config.Server.tlsListeners
}

// DefaultChannelModes returns the mode changes applied to newly created
// channels.
func (config *Config) DefaultChannelModes() modes.ModeChanges {
	return config.Channels.defaultModes
}

// ParseDefaultChannelModes parses the default-modes line of the config.
func ParseDefaultChannelModes(rawModes *string) modes.ModeChanges {
	modeLine := defaultChannelModes
	if rawModes != nil {
		modeLine = *rawModes
	}
	params := strings.Fields(modeLine)
	if len(params) == 0 {
		return nil
	}
	changes, _ := modes.DefaultCmodeTable().ParseCmodes(params...)
	result := changes[:0]
	for _, change := range changes {
		if change.Op == modes.Add {
			result = append(result, change)
		}
	}
	return result
}

// LoadConfig loads the given YAML configuration file.
func LoadConfig(filename string) (config *Config, err error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err = loadConfigData(data)
	if err != nil {
		return nil, err
	}

	config.Filename = filename
	return config, nil
}

func loadConfigData(data []byte) (config *Config, err error) {
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}

	if config.Network.Name == "" {
		return nil, ErrNetworkNameMissing
	}
	if config.Server.Name == "" {
		return nil, ErrServerNameMissing
	}
	if !utils.IsServerName(config.Server.Name) {
		return nil, ErrServerNameNotHostname
	}
	config.Server.nameCasefolded = strings.ToLower(config.Server.Name)

	if !ts6.ValidSID(config.Server.SID) {
		return nil, ErrInvalidSIDConfigured
	}
	rawSID, err := ts6.DecodeSID(config.Server.SID)
	if err != nil {
		return nil, ErrInvalidSIDConfigured
	}
	config.Server.sid = ServerID(rawSID)

	if config.Datastore.Path == "" {
		return nil, ErrDatastorePathMissing
	}

	if config.Limits.BanLen < 1 {
		config.Limits.BanLen = 190
	}
	if config.Limits.ParamLen < 1 {
		config.Limits.ParamLen = 100
	}
	if config.Limits.NickLen < 1 || config.Limits.ChannelLen < 2 || config.Limits.KickLen < 1 || config.Limits.TopicLen < 1 {
		return nil, ErrLimitsAreInsane
	}

	if config.Server.MaxSendQString == "" {
		config.Server.MaxSendQString = "4M"
	}
	maxSendQBytes, err := bytefmt.ToBytes(config.Server.MaxSendQString)
	if err != nil {
		return nil, fmt.Errorf("Could not parse maximum SendQ size (make sure it only contains whole numbers): %s", err.Error())
	}
	config.Server.MaxSendQBytes = int(maxSendQBytes)

	if config.Server.PingFrequency == 0 {
		config.Server.PingFrequency = time.Minute
	}

	config.Server.tlsListeners = make(map[string]*tls.Config)
	for addr, tlsConf := range config.Server.TLSListeners {
		tlsConfig, err := tlsConf.Config()
		if err != nil {
			return nil, err
		}
		config.Server.tlsListeners[addr] = tlsConfig
	}

	newLinks := make(map[string]*LinkConfig)
	for name, linkConf := range config.Links {
		if linkConf == nil {
			return nil, fmt.Errorf("Link block for [%s] is empty", name)
		}
		if !utils.IsServerName(name) {
			return nil, fmt.Errorf("Link name [%s] is not a valid server name", name)
		}
		if linkConf.ReceivePassword == "" || linkConf.SendPassword == "" {
			return nil, fmt.Errorf("Link block [%s] needs both receive-password and send-password", name)
		}
		if linkConf.AutoConnect != 0 && linkConf.Address == "" {
			return nil, fmt.Errorf("Link block [%s] has autoconnect but no address", name)
		}
		linkConf.name = strings.ToLower(name)
		newLinks[linkConf.name] = linkConf
	}
	config.Links = newLinks

	if config.Bans.MinLifetime < 0 {
		return nil, fmt.Errorf("Ban min-lifetime cannot be negative")
	}
	config.Bans.Audit.RetentionTime = config.Bans.MinLifetime

	// parse default channel modes
	config.Channels.defaultModes = ParseDefaultChannelModes(config.Channels.DefaultModes)

	// process logging config
	var newLogConfigs []logger.LoggingConfig
	for _, logConfig := range config.Logging {
		// methods
		methods := make(map[string]bool)
		for _, method := range strings.Split(logConfig.Method, " ") {
			if len(method) > 0 {
				methods[strings.ToLower(method)] = true
			}
		}
		if methods["file"] && logConfig.Filename == "" {
			return nil, ErrLoggerFilenameMissing
		}
		logConfig.MethodFile = methods["file"]
		logConfig.MethodStdout = methods["stdout"]
		logConfig.MethodStderr = methods["stderr"]

		// levels
		level, exists := logger.LogLevelNames[strings.ToLower(logConfig.LevelString)]
		if !exists {
			return nil, fmt.Errorf("Could not translate log level [%s]", logConfig.LevelString)
		}
		logConfig.Level = level

		// types
		for _, typeStr := range strings.Split(logConfig.TypeString, " ") {
			if len(typeStr) == 0 {
				continue
			}
			if typeStr == "-" {
				return nil, ErrLoggerExcludeEmpty
			}
			if typeStr[0] == '-' {
				typeStr = typeStr[1:]
				logConfig.ExcludedTypes = append(logConfig.ExcludedTypes, typeStr)
			} else {
				logConfig.Types = append(logConfig.Types, typeStr)
			}
		}
		if len(logConfig.Types) < 1 {
			return nil, ErrLoggerHasNoTypes
		}

		newLogConfigs = append(newLogConfigs, logConfig)
	}
	config.Logging = newLogConfigs

	return config, nil
}
