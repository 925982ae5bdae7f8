// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibtradepath derives file paths from the ibtrade base directory.
// All layout is defined here so callers don't duplicate path construction logic.
//
// The base directory (--dir flag) contains:
//
//	ibtrade.yaml                  Config file
//	.env                          Optional IBKR_TOKEN
//	ibtrade.db                    SQLite trade store (default name, configurable)
//	flex/<YYYYMMDD-HHMMSS>.xml    Backups of downloaded Flex Query statements
package ibtradepath

import (
	"path/filepath"
	"time"
)

const (
	// ConfigFileName is the well-known config file name within the base directory.
	ConfigFileName = "ibtrade.yaml"
	// EnvFileName is the optional dotenv file within the base directory.
	EnvFileName = ".env"
	// DefaultDatabaseFileName is the database file name used when the config does not set one.
	DefaultDatabaseFileName = "ibtrade.db"
	// backupTimeLayout names backup files so that they sort chronologically.
	backupTimeLayout = "20060102-150405"
)

// ConfigFilePath returns the path to the config file within the base directory.
func ConfigFilePath(dirPath string) string {
	return filepath.Join(dirPath, ConfigFileName)
}

// EnvFilePath returns the path to the dotenv file within the base directory.
func EnvFilePath(dirPath string) string {
	return filepath.Join(dirPath, EnvFileName)
}

// DatabaseFilePath returns the path to the database file.
//
// Relative database paths are resolved against the base directory.
func DatabaseFilePath(dirPath string, database string) string {
	if database == "" {
		database = DefaultDatabaseFileName
	}
	if filepath.IsAbs(database) {
		return database
	}
	return filepath.Join(dirPath, database)
}

// FlexDirPath returns the directory for downloaded Flex Query statement backups.
func FlexDirPath(dirPath string) string {
	return filepath.Join(dirPath, "flex")
}

// FlexBackupFilePath returns the backup file path for a statement downloaded at the given time.
func FlexBackupFilePath(dirPath string, downloadTime time.Time) string {
	return filepath.Join(FlexDirPath(dirPath), downloadTime.UTC().Format(backupTimeLayout)+".xml")
}
