package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	ConfigPath string
	JSON       bool
}

var globals globalOptions

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "Customer portal for the interpretation service",
	Long: `portal shows call history, usage reports, language availability and the
customer profile of an interpretation account. Run "portal login" first; the
session token is kept in the configured session file.`,
	SilenceUsage: true,
}

func init() {
	fs := rootCmd.PersistentFlags()
	fs.StringVarP(&globals.ConfigPath, "config", "c", "", "path to configuration file (default $PORTAL_CONFIG)")
	fs.BoolVar(&globals.JSON, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		resetPasswordCmd(),
		whoamiCmd(),
		languagesCmd(),
		callsCmd(),
		reportsCmd(),
		profileCmd(),
		serveCmd(),
	)
}

// Execute runs the root command and exits non-zero on failure. SIGINT and
// SIGTERM cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
