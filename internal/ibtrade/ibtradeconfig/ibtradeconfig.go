// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibtradeconfig provides configuration parsing and validation for ibtrade.
//
// The configuration file is ibtrade.yaml in the base directory (see ibtradepath).
package ibtradeconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"
	_ "time/tzdata" // Statement times are interpreted in an IANA zone on any host.

	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradefifo"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradepath"
	"github.com/bufdev/ibtrade/internal/standard/xos"
	"gopkg.in/yaml.v3"
)

const (
	// defaultTimezone is the zone IBKR reports statement times in unless configured otherwise.
	defaultTimezone = "America/New_York"
	// defaultConcurrency is the number of instrument groups matched at once.
	defaultConcurrency = 4

	// FXRateSourceFrankfurter fetches rates from frankfurter.dev (ECB reference rates).
	FXRateSourceFrankfurter = "frankfurter"
	// FXRateSourceBankOfCanada fetches rates from the Bank of Canada valet API.
	//
	// Only valid with a CAD base currency.
	FXRateSourceBankOfCanada = "bankofcanada"
)

// currencyRegexp matches ISO 4217 currency codes.
var currencyRegexp = regexp.MustCompile(`^[A-Z]{3}$`)

// configTemplate is the default configuration file template with comments.
// yaml.v3 does not preserve comments, so we hardcode the template string.
const configTemplate = `# The configuration file version.
#
# Required. The only current valid version is v1.
version: v1
# IBKR Flex Query configuration.
#
# Required. Create a Flex Query at https://www.interactivebrokers.com
# under Performance & Reports > Flex Queries. Include the Trades and
# Cash Transactions sections with all fields enabled.
#
# The Flex Web Service token must be set via the IBKR_TOKEN environment
# variable, or in a .env file next to this file.
ibkr:
  # The Flex Query ID (visible next to your query name in the IBKR portal).
  #
  # Required.
  query_id: ""
  # The timezone statement times are reported in.
  #
  # Optional. Defaults to America/New_York.
  # timezone: America/New_York
# The account base currency, used to fill in missing FX rates.
#
# Required.
base_currency: USD
# The source of FX rates for trades whose statement has no FX rate to base.
# One of frankfurter, bankofcanada. bankofcanada requires base_currency CAD.
#
# Optional. Defaults to frankfurter.
# fx_rate_source: frankfurter
# The SQLite database file, relative to this directory. A leading ~ is
# expanded to the home directory.
#
# Optional. Defaults to ibtrade.db.
# database: ibtrade.db
# Whether downloaded statements are kept under flex/.
#
# Optional. Defaults to true.
# backup: true
# FIFO matching configuration.
#
# Optional.
match:
  # The field trades are grouped by, together with the account.
  # One of description, symbol, conid.
  #
  # Optional. Defaults to description.
  group_by: description
  # The number of instrument groups matched concurrently.
  #
  # Optional. Defaults to 4.
  # concurrency: 4
`

// ExternalConfig is the YAML-serializable configuration file structure.
type ExternalConfig struct {
	// Version is the configuration file version (must be "v1").
	Version string `yaml:"version"`
	// IBKR holds the Interactive Brokers Flex Query configuration.
	IBKR ExternalIBKRConfig `yaml:"ibkr"`
	// BaseCurrency is the account base currency.
	BaseCurrency string `yaml:"base_currency"`
	// FXRateSource is the source of missing FX rates.
	FXRateSource string `yaml:"fx_rate_source"`
	// Database is the SQLite database file path.
	Database string `yaml:"database"`
	// Backup controls whether downloaded statements are kept. Nil means true.
	Backup *bool `yaml:"backup"`
	// Match holds the FIFO matching configuration.
	Match ExternalMatchConfig `yaml:"match"`
}

// ExternalIBKRConfig holds IBKR-specific configuration.
type ExternalIBKRConfig struct {
	// QueryID is the Flex Query ID.
	QueryID string `yaml:"query_id"`
	// Timezone is the IANA zone statement times are reported in.
	Timezone string `yaml:"timezone"`
}

// ExternalMatchConfig holds FIFO matching configuration.
type ExternalMatchConfig struct {
	// GroupBy is the trade field used for grouping.
	GroupBy string `yaml:"group_by"`
	// Concurrency is the number of groups matched concurrently.
	Concurrency int `yaml:"concurrency"`
}

// Config is the validated runtime configuration derived from the config file.
type Config struct {
	// IBKRQueryID is the Flex Query ID.
	IBKRQueryID string
	// Location is the zone statement times are interpreted in.
	Location *time.Location
	// BaseCurrency is the account base currency.
	BaseCurrency string
	// FXRateSource is one of the FXRateSource constants.
	FXRateSource string
	// DatabaseFilePath is the resolved path to the SQLite database file.
	DatabaseFilePath string
	// Backup is whether downloaded statements are kept.
	Backup bool
	// GroupBy selects the instrument key for FIFO matching.
	GroupBy ibtradefifo.GroupBy
	// Concurrency is the number of groups matched concurrently.
	Concurrency int
}

// NewConfig validates an ExternalConfig and returns a runtime Config.
//
// Relative paths are resolved against dirPath.
func NewConfig(dirPath string, externalConfig ExternalConfig) (*Config, error) {
	if externalConfig.Version != "v1" {
		return nil, fmt.Errorf("unsupported config version %q, must be v1", externalConfig.Version)
	}
	if externalConfig.IBKR.QueryID == "" {
		return nil, errors.New("ibkr.query_id is required")
	}
	timezone := externalConfig.IBKR.Timezone
	if timezone == "" {
		timezone = defaultTimezone
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid ibkr.timezone %q: %w", timezone, err)
	}
	if !currencyRegexp.MatchString(externalConfig.BaseCurrency) {
		return nil, fmt.Errorf("base_currency must be a three-letter ISO currency code, got %q", externalConfig.BaseCurrency)
	}
	fxRateSource := externalConfig.FXRateSource
	switch fxRateSource {
	case "":
		fxRateSource = FXRateSourceFrankfurter
	case FXRateSourceFrankfurter:
	case FXRateSourceBankOfCanada:
		if externalConfig.BaseCurrency != "CAD" {
			return nil, fmt.Errorf("fx_rate_source %s requires base_currency CAD, got %s", fxRateSource, externalConfig.BaseCurrency)
		}
	default:
		return nil, fmt.Errorf("unknown fx_rate_source %q, must be one of: %s, %s", fxRateSource, FXRateSourceFrankfurter, FXRateSourceBankOfCanada)
	}
	groupBy := ibtradefifo.GroupByDescription
	if externalConfig.Match.GroupBy != "" {
		if groupBy, err = ibtradefifo.ParseGroupBy(externalConfig.Match.GroupBy); err != nil {
			return nil, fmt.Errorf("invalid match.group_by: %w", err)
		}
	}
	concurrency := externalConfig.Match.Concurrency
	switch {
	case concurrency < 0:
		return nil, fmt.Errorf("match.concurrency must not be negative, got %d", concurrency)
	case concurrency == 0:
		concurrency = defaultConcurrency
	}
	// A database path may start with ~ to refer to the home directory.
	database, err := xos.ExpandHome(externalConfig.Database)
	if err != nil {
		return nil, fmt.Errorf("invalid database %q: %w", externalConfig.Database, err)
	}
	backup := true
	if externalConfig.Backup != nil {
		backup = *externalConfig.Backup
	}
	return &Config{
		IBKRQueryID:      externalConfig.IBKR.QueryID,
		Location:         location,
		BaseCurrency:     externalConfig.BaseCurrency,
		FXRateSource:     fxRateSource,
		DatabaseFilePath: ibtradepath.DatabaseFilePath(dirPath, database),
		Backup:           backup,
		GroupBy:          groupBy,
		Concurrency:      concurrency,
	}, nil
}

// ReadConfig reads and validates the configuration file from the given base directory.
// Returns a clear error message directing users to run "ibtrade config init" if the file is missing.
func ReadConfig(dirPath string) (*Config, error) {
	filePath := ibtradepath.ConfigFilePath(dirPath)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found at %s, run \"ibtrade config init\" to create one", filePath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var externalConfig ExternalConfig
	if err := unmarshalYAMLStrict(data, &externalConfig); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
	}
	config, err := NewConfig(dirPath, externalConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return config, nil
}

// InitConfig creates a new configuration file with a documented template.
// Creates the base directory if it does not exist.
// Returns the path to the created file, or an error if the file already exists.
func InitConfig(dirPath string) (string, error) {
	filePath := ibtradepath.ConfigFilePath(dirPath)
	if _, err := os.Stat(filePath); err == nil {
		return "", fmt.Errorf("configuration file already exists: %s", filePath)
	}
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(configTemplate), 0o644); err != nil {
		return "", err
	}
	return filePath, nil
}

// ValidateConfig reads and validates the configuration file from the given base directory.
func ValidateConfig(dirPath string) error {
	_, err := ReadConfig(dirPath)
	return err
}

// *** PRIVATE ***

// unmarshalYAMLStrict unmarshals the data as YAML with strict field checking.
// If the data length is 0, this is a no-op.
func unmarshalYAMLStrict(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	yamlDecoder := yaml.NewDecoder(bytes.NewReader(data))
	yamlDecoder.KnownFields(true)
	if err := yamlDecoder.Decode(v); err != nil {
		return fmt.Errorf("could not unmarshal as YAML: %w", err)
	}
	return nil
}
