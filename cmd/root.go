package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/teemow/spotify-mcp/internal/logging"
)

const defaultEnvFile = ".env"

var (
	envFile   string
	logFormat string
	debugMode bool
)

// rootCmd represents the base command for the spotify-mcp application
var rootCmd = &cobra.Command{
	Use:   "spotify-mcp",
	Short: "MCP server for the Spotify Web API",
	Long: `spotify-mcp exposes Spotify account data to AI assistants through the
Model Context Protocol (MCP).

A small authorization server runs the Spotify login flow on the loopback
interface and keeps the resulting access token in memory. MCP tools fetch
that token on every call and use it against the Spotify Web API.

It can run as:
  - serve: authorization server and MCP server in one process
  - auth-server: the authorization server alone`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
			return err
		}
		return setupLogging(cmd)
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "spotify-mcp version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "File with KEY=value lines loaded into the environment. Variables already set are kept.")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format: text, json or pretty. Can also use LOG_FORMAT env var.")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthServerCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}

// loadEnvFile loads path with godotenv. A missing file is only an error when
// the path was given explicitly.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// setupLogging installs the default slog logger. Logs always go to stderr;
// stdout carries the stdio MCP transport.
func setupLogging(cmd *cobra.Command) error {
	format := logFormat
	if !cmd.Flags().Changed("log-format") {
		if envFormat := os.Getenv("LOG_FORMAT"); envFormat != "" {
			format = envFormat
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	logger, err := logging.NewLogger(format, level, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}
