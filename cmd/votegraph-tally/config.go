package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vocdoni/votegraph/db"
)

const (
	defaultDbType    = db.TypePebble
	defaultDatadir   = ".votegraph-mock"
	defaultLogLevel  = "info"
	defaultLogOutput = "stdout"
)

// Version is the build version, set at build time with -ldflags.
var Version = "dev"

// Config holds the one-shot tally tool's configuration.
type Config struct {
	ElectionDir string    `mapstructure:"electionDir"`
	ContestUid  string    `mapstructure:"contestUid"`
	Datadir     string    `mapstructure:"datadir"`
	DbType      string    `mapstructure:"dbType"`
	Log         LogConfig `mapstructure:"log"`
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
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)

	flag.StringP("electionDir", "e", "", "path to the election configuration directory (required)")
	flag.StringP("contestUid", "u", "", "contest uid to tally (required)")
	flag.StringP("datadir", "d", defaultDatadirPath, "data directory for the object store")
	flag.String("dbType", defaultDbType, fmt.Sprintf("object store backend: %s, %s, %s or %s", db.TypePebble, db.TypeLevelDB, db.TypeMongo, db.TypeMemory))
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error, fatal)")
	flag.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "votegraph-tally v%s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: votegraph-tally --electionDir=<dir> --contestUid=<uid> [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Prints the human-readable tally log for one contest to stdout.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
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
	if cfg.ContestUid == "" {
		return fmt.Errorf("contestUid is required (use --contestUid flag or VOTEGRAPH_CONTESTUID environment variable)")
	}
	return nil
}
