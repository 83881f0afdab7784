package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vocdoni/votegraph/db"
)

const (
	defaultDbType    = db.TypePebble
	defaultDatadir   = ".votegraph-mock"
	defaultLogLevel  = "info"
	defaultLogOutput = "stdout"
	defaultInterval      = 10 * time.Second
	defaultJanitorEvery  = 10
	defaultMergeInterval = 30 * time.Second
)

// Version is the build version, set at build time with -ldflags.
var Version = "dev"

// Config holds the mock-election orchestrator's configuration.
type Config struct {
	ElectionDir  string        `mapstructure:"electionDir"`
	AddressFile  string        `mapstructure:"addressFile"`
	Datadir      string        `mapstructure:"datadir"`
	DbType       string        `mapstructure:"dbType"`
	Interval      time.Duration `mapstructure:"interval"`
	JanitorEvery  int           `mapstructure:"janitorEvery"`
	MergeInterval time.Duration `mapstructure:"mergeInterval"`
	Log           LogConfig     `mapstructure:"log"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

func loadConfig() (*Config, error) {
	v := viper.New()

	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	defaultDatadirPath := filepath.Join(userHomeDir, defaultDatadir)

	v.SetDefault("datadir", defaultDatadirPath)
	v.SetDefault("dbType", defaultDbType)
	v.SetDefault("interval", defaultInterval)
	v.SetDefault("janitorEvery", defaultJanitorEvery)
	v.SetDefault("mergeInterval", defaultMergeInterval)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)

	flag.StringP("electionDir", "e", "", "path to the election configuration directory (required)")
	flag.StringP("addressFile", "a", "", "path to the address-book CSV file (required)")
	flag.StringP("datadir", "d", defaultDatadirPath, "data directory for the object store")
	flag.String("dbType", defaultDbType, fmt.Sprintf("object store backend: %s, %s, %s or %s", db.TypePebble, db.TypeLevelDB, db.TypeMongo, db.TypeMemory))
	flag.Duration("interval", defaultInterval, "wall-clock sleep between cast cycles")
	flag.Int("janitorEvery", defaultJanitorEvery, "run the acceptance janitor every N cast cycles")
	flag.Duration("mergeInterval", defaultMergeInterval, "how often the merge monitor sweeps outstanding branches into mainline")
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error, fatal)")
	flag.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "votegraph-mock-election v%s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: votegraph-mock-election --electionDir=<dir> --addressFile=<file> [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dashes (-) and dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, VOTEGRAPH_DATADIR or VOTEGRAPH_LOG_LEVEL\n")
	}

	flag.CommandLine.SortFlags = false
	flag.Parse()

	v.SetEnvPrefix("VOTEGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.ElectionDir == "" {
		return fmt.Errorf("electionDir is required (use --electionDir flag or VOTEGRAPH_ELECTIONDIR environment variable)")
	}
	if cfg.AddressFile == "" {
		return fmt.Errorf("addressFile is required (use --addressFile flag or VOTEGRAPH_ADDRESSFILE environment variable)")
	}
	return nil
}
