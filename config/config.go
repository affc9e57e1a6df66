// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"gitlab.com/jaxnet/headermmr/corelog"
	"gitlab.com/jaxnet/headermmr/database"
	_ "gitlab.com/jaxnet/headermmr/database/badgerdb"
	_ "gitlab.com/jaxnet/headermmr/database/ldb"
	_ "gitlab.com/jaxnet/headermmr/database/memdb"
	"gitlab.com/jaxnet/headermmr/node/metrics"
	"gitlab.com/jaxnet/headermmr/node/relay"
	"gitlab.com/jaxnet/headermmr/types/chainhash"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFilename = "headermmr.toml"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultDBType         = "badger"
	defaultMetricsRoute   = "/metrics"
	defaultMetricsPort    = 2112
)

var defaultHomeDir = appDataDir("headermmr")

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Route    string        `yaml:"route" toml:"route" long:"metricsroute" description:"HTTP route of the metrics endpoint"`
	Port     uint16        `yaml:"port" toml:"port" long:"metricsport" description:"Port of the metrics endpoint"`
	Interval time.Duration `yaml:"interval" toml:"interval" long:"metricsinterval" description:"How often the gauges are refreshed"`
}

// RelayConfig holds the parameters of the relayer game.
type RelayConfig struct {
	ResponseWindow  time.Duration `yaml:"response_window" toml:"response_window" long:"responsewindow" description:"Time a relayer has to answer a challenge"`
	ChallengeWindow time.Duration `yaml:"challenge_window" toml:"challenge_window" long:"challengewindow" description:"Time a claim stays open to challengers before it can be finalized"`
}

// Config defines the configuration options of the header MMR tools.
type Config struct {
	ConfigFile string `yaml:"-" toml:"-" short:"C" long:"configfile" description:"Path to configuration file (.yaml, .yml or .toml)"`
	DataDir    string `yaml:"data_dir" toml:"data_dir" short:"b" long:"datadir" description:"Directory to store the mountain range"`
	DBType     string `yaml:"db_type" toml:"db_type" long:"dbtype" description:"Database backend to use for the mountain range"`
	Hasher     string `yaml:"hasher" toml:"hasher" long:"hasher" description:"Hash function of leaves and nodes"`
	DebugLevel string `yaml:"debug_level" toml:"debug_level" short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`

	Log     corelog.Config `yaml:"log" toml:"log" group:"Logging Options"`
	Metrics MetricsConfig  `yaml:"metrics" toml:"metrics" group:"Metrics Options"`
	Relay   RelayConfig    `yaml:"relay" toml:"relay" group:"Relay Options"`
}

// Default returns a config with sane settings for every option.
func Default() *Config {
	return &Config{
		DataDir:    filepath.Join(defaultHomeDir, defaultDataDirname),
		DBType:     defaultDBType,
		Hasher:     chainhash.DefaultHasherName,
		DebugLevel: defaultLogLevel,
		Log:        corelog.Config{}.Default(),
		Metrics: MetricsConfig{
			Route:    defaultMetricsRoute,
			Port:     defaultMetricsPort,
			Interval: metrics.DefaultInterval,
		},
		Relay: RelayConfig{
			ResponseWindow:  relay.DefaultResponseWindow,
			ChallengeWindow: relay.DefaultChallengeWindow,
		},
	}
}

// DBPath is the location of the database of the configured backend.
func (cfg *Config) DBPath() string {
	return filepath.Join(cfg.DataDir, "mmr_"+cfg.DBType)
}

// GameStatePath is the file holding the claims of the relayer game.
func (cfg *Config) GameStatePath() string {
	return filepath.Join(cfg.DataDir, "relay_game.cbor")
}

// NewGame builds a relayer game with the configured hasher and windows.
func (cfg *Config) NewGame() (*relay.Game, error) {
	hasher, err := cfg.HasherFunc()
	if err != nil {
		return nil, err
	}
	return relay.NewGame(hasher, cfg.Relay.ResponseWindow, cfg.Relay.ChallengeWindow), nil
}

// HasherFunc resolves the configured hasher name.
func (cfg *Config) HasherFunc() (chainhash.Hasher, error) {
	return chainhash.HasherByName(cfg.Hasher)
}

// Validate checks the names of the database backend, the hasher and the
// log levels.
func (cfg *Config) Validate() error {
	if !validDBType(cfg.DBType) {
		return errors.Errorf("the specified database type [%v] is invalid -- supported types %v",
			cfg.DBType, database.SupportedDrivers())
	}
	if _, err := cfg.HasherFunc(); err != nil {
		return errors.Wrapf(err, "supported hashers %v", chainhash.SupportedHashers())
	}
	if _, err := parseDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}
	if cfg.Metrics.Port == 0 {
		return errors.New("metrics port must be set")
	}
	if cfg.Relay.ResponseWindow < 0 || cfg.Relay.ChallengeWindow < 0 {
		return errors.New("relay windows must not be negative")
	}
	return nil
}

// NewParser returns a new command line flags parser bound to cfg.
func NewParser(cfg *Config, options flags.Options) *flags.Parser {
	return flags.NewParser(cfg, options)
}

// LoadFile decodes a yaml or toml file over cfg. The format is picked by
// the file extension.
func LoadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "unable to open config file")
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.NewDecoder(file).Decode(cfg)
	case ".toml":
		err = toml.NewDecoder(file).Decode(cfg)
	default:
		return errors.Errorf("invalid config file extension %q, must be .yaml, .yml or .toml", filepath.Ext(path))
	}
	if err != nil {
		return errors.Wrapf(err, "unable to decode %s", path)
	}
	return nil
}

// WriteFile encodes cfg into a yaml or toml file, picked by the extension.
func WriteFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(file)
		if err = enc.Encode(cfg); err == nil {
			err = enc.Close()
		}
	case ".toml":
		err = toml.NewEncoder(file).Encode(cfg)
	default:
		err = errors.Errorf("invalid config file extension %q", filepath.Ext(path))
	}
	return err
}

// LoadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
// 	1) Start with a default config with sane settings
// 	2) Pre-parse the command line to check for an alternative config file
// 	3) Load configuration file overwriting defaults with any specified options
// 	4) Parse CLI options and overwrite/add any specified options
//
// Unknown options and positional arguments are returned untouched, so a
// command parser can take them next.
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := Default()
	if env := os.Getenv("HEADERMMR_DATA_DIR"); env != "" {
		cfg.DataDir = env
	}

	preCfg := *cfg
	if _, err := NewParser(&preCfg, flags.IgnoreUnknown).ParseArgs(args); err != nil {
		return nil, nil, err
	}

	configFile := preCfg.ConfigFile
	if configFile == "" {
		defaultFile := filepath.Join(defaultHomeDir, defaultConfigFilename)
		if fileExists(defaultFile) {
			configFile = defaultFile
		}
	}
	if configFile != "" {
		if err := LoadFile(cleanAndExpandPath(configFile), cfg); err != nil {
			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := NewParser(cfg, flags.IgnoreUnknown).ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}
	cfg.ConfigFile = configFile

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.Log.Directory = cleanAndExpandPath(cfg.Log.Directory)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, remainingArgs, nil
}

// validDBType returns whether or not dbType is a supported database type.
func validDBType(dbType string) bool {
	for _, knownType := range database.SupportedDrivers() {
		if dbType == knownType {
			return true
		}
	}

	return false
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return path
	}
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			path = strings.Replace(path, "~", homeDir, 1)
		}
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func appDataDir(appName string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(homeDir, fmt.Sprintf(".%s", appName))
}
