// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package datazip implements the "data zip" command.
package datazip

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/ibtradecmd"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradepath"
	"github.com/spf13/pflag"
)

const (
	// outputFlagName is the flag name for the output zip file path.
	outputFlagName = "output"
	// includeEnvFlagName is the flag name for including the .env file.
	includeEnvFlagName = "include-env"
)

// NewCommand returns a new data zip command that archives the base directory.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Archive the ibtrade directory to a zip file",
		Long: `Archive the ibtrade directory to a zip file.

The archive contains ibtrade.yaml, the database, and the statement backups under
flex/. The .env file holds the IBKR token and is left out unless --include-env
is set.`,
		Args: appcmd.NoArgs,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	// Dir is the ibtrade directory containing ibtrade.yaml.
	Dir string
	// Output is the path to the output zip file.
	Output string
	// IncludeEnv includes the .env file in the archive.
	IncludeEnv bool
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibtradecmd.BindDirFlag(flagSet, &f.Dir)
	flagSet.StringVarP(&f.Output, outputFlagName, "o", "", "Output zip file path (required)")
	flagSet.BoolVar(&f.IncludeEnv, includeEnvFlagName, false, "Include the .env file holding the IBKR token")
}

func run(_ context.Context, container appext.Container, flags *flags) error {
	if flags.Output == "" {
		return appcmd.NewInvalidArgumentErrorf("--%s (-o) is required", outputFlagName)
	}
	if !strings.HasSuffix(flags.Output, ".zip") {
		return appcmd.NewInvalidArgumentError("output file must have a .zip extension")
	}
	absDirPath, err := filepath.Abs(flags.Dir)
	if err != nil {
		return fmt.Errorf("resolving directory path: %w", err)
	}
	absOutputPath, err := filepath.Abs(flags.Output)
	if err != nil {
		return fmt.Errorf("resolving output path: %w", err)
	}
	fileInfo, err := os.Stat(absDirPath)
	if err != nil {
		return fmt.Errorf("base directory not found: %w", err)
	}
	if !fileInfo.IsDir() {
		return fmt.Errorf("%s is not a directory", absDirPath)
	}
	skipPaths := map[string]struct{}{
		absOutputPath: {},
	}
	if !flags.IncludeEnv {
		skipPaths[ibtradepath.EnvFilePath(absDirPath)] = struct{}{}
	}
	numFiles, err := writeZip(absOutputPath, absDirPath, skipPaths)
	if err != nil {
		return fmt.Errorf("creating zip archive: %w", err)
	}
	container.Logger().Info("zip archive created", "path", flags.Output, "files", numFiles)
	return nil
}

func writeZip(outputPath string, dirPath string, skipPaths map[string]struct{}) (_ int, retErr error) {
	outputFile, err := os.Create(outputPath)
	if err != nil {
		return 0, err
	}
	defer func() {
		retErr = errors.Join(retErr, outputFile.Close())
	}()
	zipWriter := zip.NewWriter(outputFile)
	var numFiles int
	if err := filepath.WalkDir(dirPath, func(path string, dirEntry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if _, ok := skipPaths[path]; ok {
			return nil
		}
		relPath, err := filepath.Rel(dirPath, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}
		// Zip entry names always use forward slashes.
		name := filepath.ToSlash(relPath)
		if dirEntry.IsDir() {
			_, err := zipWriter.Create(name + "/")
			return err
		}
		if !dirEntry.Type().IsRegular() {
			return nil
		}
		numFiles++
		return addFile(zipWriter, name, path)
	}); err != nil {
		return 0, err
	}
	return numFiles, zipWriter.Close()
}

func addFile(zipWriter *zip.Writer, name string, path string) (retErr error) {
	writer, err := zipWriter.Create(name)
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		retErr = errors.Join(retErr, file.Close())
	}()
	_, err = io.Copy(writer, file)
	return err
}
