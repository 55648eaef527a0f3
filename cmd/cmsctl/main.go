// Command cmsctl is the operator CLI of the CMS.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/debemdeboas/fundacion-cms/internal/app"
	"github.com/debemdeboas/fundacion-cms/internal/config"
	"github.com/debemdeboas/fundacion-cms/internal/logger"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

type options struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "cmsctl",
		Short: "Operator tool for the Fundación CMS",
		Long: `cmsctl manages the content database of the CMS outside the HTTP service:
it writes example configuration, imports Markdown files as documents and
re-normalizes stored content.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := os.Getenv(config.EnvConfigPath)
	if defaultConfig == "" {
		defaultConfig = config.DefaultConfigPath
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfig, "Configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")

	cmd.AddCommand(
		newConfigCmd(),
		newImportCmd(opts),
		newNormalizeCmd(opts),
		newFixTimesCmd(opts),
	)
	return cmd
}

// open loads the configuration and assembles the application without
// serving it.
func (o *options) open(ctx context.Context) (*app.App, error) {
	_ = godotenv.Load()

	if err := config.LoadConfig(o.configPath); err != nil {
		return nil, err
	}

	log := logger.NewWithOptions(logger.Options{Level: o.logLevel, Out: os.Stderr})
	app.SetLoggers(log)

	return app.New(ctx, config.AppConfig, log)
}

const configHeader = "# Fundación CMS configuration example\n# Copy this file to config.yaml and customize as needed\n\n"

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config [file|-]",
		Short: "Write an example configuration holding every default",
		Long: `Write the default configuration as YAML. The file defaults to
config.example.yaml; "-" prints it instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := "config.example.yaml"
			if len(args) > 0 {
				out = args[0]
			}
			return writeDefaultConfig(cmd.OutOrStdout(), out)
		},
	}
}

func writeDefaultConfig(w io.Writer, out string) error {
	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("error generating YAML: %w", err)
	}
	output := configHeader + string(data)

	if out == "-" {
		_, err := io.WriteString(w, output)
		return err
	}
	if err := os.WriteFile(out, []byte(output), 0o644); err != nil {
		return fmt.Errorf("error writing file: %w", err)
	}
	fmt.Fprintln(w, okStyle.Render("✓")+" Generated example config: "+out)
	return nil
}
