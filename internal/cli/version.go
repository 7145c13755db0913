package cli

import (
	"fmt"
	"runtime"

	"github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
)

// VersionInfo is everything the version command reports.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	SQLite  string `json:"sqlite"`
	Go      string `json:"go"`
}

func currentVersion(build BuildInfo) VersionInfo {
	lib, _, _ := sqlite3.Version()
	return VersionInfo{
		Version: build.Version,
		Commit:  build.Commit,
		Date:    build.Date,
		SQLite:  lib,
		Go:      runtime.Version(),
	}
}

func versionText(v VersionInfo) string {
	return fmt.Sprintf("Book Archive Version: %s\nCommit: %s\nBuild date: %s\nSQLite version: %s\nGo version: %s\n",
		v.Version, v.Commit, v.Date, v.SQLite, v.Go)
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Display version information",
		Args:          argsError(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := currentVersion(rootOpts.Build)
			if rootOpts.Format == "json" {
				f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
				return f.Success(v)
			}
			fmt.Fprint(cmd.OutOrStdout(), versionText(v))
			return nil
		},
	}
}
