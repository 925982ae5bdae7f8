// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibtradecmd provides shared wiring for ibtrade commands: reading the
// config, getting the IBKR token, and constructing the store, clients, and saver.
package ibtradecmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradeconfig"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradepath"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradesave"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradestore"
	"github.com/bufdev/ibtrade/internal/pkg/bankofcanada"
	"github.com/bufdev/ibtrade/internal/pkg/frankfurter"
	"github.com/bufdev/ibtrade/internal/pkg/fxrate"
	"github.com/bufdev/ibtrade/internal/pkg/ibkrflexquery"
	"github.com/bufdev/ibtrade/internal/standard/xtime"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	// DirFlagName is the flag name for the base directory.
	DirFlagName = "dir"
	// FormatFlagName is the flag name for the output format of list commands.
	FormatFlagName = "format"

	// ibkrTokenEnvVar is the environment variable name for the IBKR Flex Web Service token.
	ibkrTokenEnvVar = "IBKR_TOKEN"
)

// BindDirFlag binds the --dir flag.
func BindDirFlag(flagSet *pflag.FlagSet, dir *string) {
	flagSet.StringVar(dir, DirFlagName, ".", "The ibtrade directory containing ibtrade.yaml")
}

// BindFormatFlag binds the --format flag.
func BindFormatFlag(flagSet *pflag.FlagSet, format *string) {
	flagSet.StringVar(format, FormatFlagName, "table", "Output format (table, csv, json)")
}

// IBKRToken returns the IBKR Flex Web Service token.
//
// The IBKR_TOKEN environment variable takes precedence over the .env file in
// the base directory. Returns an error if neither sets a token.
func IBKRToken(container appext.Container, dirPath string) (string, error) {
	return getIBKRToken(container.Env, dirPath)
}

// NewStore reads the config in dirPath and opens its trade store.
//
// The caller must close the store.
func NewStore(ctx context.Context, container appext.Container, dirPath string) (*ibtradeconfig.Config, ibtradestore.Store, error) {
	config, err := ibtradeconfig.ReadConfig(dirPath)
	if err != nil {
		return nil, nil, err
	}
	store, err := ibtradestore.NewStore(ctx, container.Logger(), config.DatabaseFilePath)
	if err != nil {
		return nil, nil, err
	}
	return config, store, nil
}

// NewSaver constructs a Saver for the config and store.
//
// If requireIBKRToken is false and no token is set, the Saver can load and
// match but not download.
func NewSaver(
	container appext.Container,
	dirPath string,
	config *ibtradeconfig.Config,
	store ibtradestore.Store,
	requireIBKRToken bool,
) (ibtradesave.Saver, error) {
	logger := container.Logger()
	options := []ibtradesave.SaverOption{
		ibtradesave.SaverWithFXRateClient(newFXRateClient(config)),
	}
	ibkrToken, err := IBKRToken(container, dirPath)
	if err != nil {
		if requireIBKRToken {
			return nil, err
		}
	} else {
		options = append(
			options,
			ibtradesave.SaverWithFlexQueryClient(ibkrflexquery.NewClient(logger), ibkrToken),
		)
	}
	return ibtradesave.NewSaver(logger, dirPath, config, store, options...), nil
}

// ParseDateFlag parses a date flag value in YYYYMMDD or YYYY-MM-DD format.
//
// Returns the zero Date for an empty value.
func ParseDateFlag(flagName string, value string) (xtime.Date, error) {
	if value == "" {
		return xtime.Date{}, nil
	}
	layout := "20060102"
	if strings.Contains(value, "-") {
		layout = "2006-01-02"
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return xtime.Date{}, appcmd.NewInvalidArgumentErrorf("invalid --%s date %q, expected YYYYMMDD or YYYY-MM-DD format", flagName, value)
	}
	return xtime.TimeToDate(t), nil
}

// ParseDateRangeFlags parses --since and --until style flags into the
// half-open time range [since, until) in location.
//
// The until date is inclusive, so the returned until is the start of the next day.
func ParseDateRangeFlags(
	sinceFlagName string,
	sinceValue string,
	untilFlagName string,
	untilValue string,
	location *time.Location,
) (time.Time, time.Time, error) {
	sinceDate, err := ParseDateFlag(sinceFlagName, sinceValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	untilDate, err := ParseDateFlag(untilFlagName, untilValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	var since, until time.Time
	if !sinceDate.IsZero() {
		since = sinceDate.In(location)
	}
	if !untilDate.IsZero() {
		until = untilDate.AddDays(1).In(location)
	}
	return since, until, nil
}

// PrintSaveResult writes a summary of a SaveResult.
func PrintSaveResult(container appext.Container, saveResult *ibtradesave.SaveResult) error {
	_, err := fmt.Fprintf(
		container.Stdout(),
		"trades: %d new, %d total, %d errors\ncash_transactions: %d new, %d total, %d errors\n",
		saveResult.Trades.New,
		saveResult.Trades.Total,
		len(saveResult.Trades.Errors),
		saveResult.CashTransactions.New,
		saveResult.CashTransactions.Total,
		len(saveResult.CashTransactions.Errors),
	)
	return err
}

// PrintMatchStatistics writes a summary of a matching run.
func PrintMatchStatistics(container appext.Container, matchStatistics *ibtradesave.MatchStatistics) error {
	_, err := fmt.Fprintf(
		container.Stdout(),
		"closed_trades: %d new, %d removed, %d total\nopen_lots: %d\nfx_rates_filled: %d\nskipped: %d\n",
		matchStatistics.ClosedTrades.New,
		matchStatistics.Removed,
		matchStatistics.ClosedTrades.Total,
		matchStatistics.OpenLots,
		matchStatistics.FXRatesFilled,
		len(matchStatistics.Skipped),
	)
	return err
}

// FormatDateTime formats a time in location for list output.
func FormatDateTime(t time.Time, location *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(location).Format("2006-01-02 15:04:05")
}

// *** PRIVATE ***

func getIBKRToken(getenv func(string) string, dirPath string) (string, error) {
	if ibkrToken := getenv(ibkrTokenEnvVar); ibkrToken != "" {
		return ibkrToken, nil
	}
	envFilePath := ibtradepath.EnvFilePath(dirPath)
	env, err := godotenv.Read(envFilePath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("reading %s: %w", envFilePath, err)
	}
	if ibkrToken := env[ibkrTokenEnvVar]; ibkrToken != "" {
		return ibkrToken, nil
	}
	return "", fmt.Errorf("%s is required, set it in the environment or in %s to your IBKR Flex Web Service token", ibkrTokenEnvVar, envFilePath)
}

func newFXRateClient(config *ibtradeconfig.Config) fxrate.Client {
	if config.FXRateSource == ibtradeconfig.FXRateSourceBankOfCanada {
		return bankofcanada.NewClient()
	}
	return frankfurter.NewClient()
}
