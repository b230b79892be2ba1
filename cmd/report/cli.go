package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"supplypulse/internal/app"
	"supplypulse/internal/config"
	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/exporter"
	"supplypulse/internal/infrastructure"
	"supplypulse/internal/middleware"
	"supplypulse/internal/services"
	"supplypulse/pkg/contracts"
	api "supplypulse/pkg/contracts/api/v1"
	"supplypulse/pkg/contracts/domain"
)

// CLI is the report command tree
type CLI struct {
	out     io.Writer
	errOut  io.Writer
	rootCmd *cobra.Command

	configFile string
	logLevel   string
}

// Options configure the CLI streams
type Options struct {
	Output io.Writer
	Errors io.Writer
}

// NewCLI creates the command tree
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Errors == nil {
		opts.Errors = os.Stderr
	}
	cli := &CLI{out: opts.Output, errOut: opts.Errors}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

// Execute runs the command named by os.Args
func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "report",
		Short:         "Consumption, procurement, equipment and stock dashboards",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(cli.out)
	cmd.SetErr(cli.errOut)

	cmd.PersistentFlags().StringVar(&cli.configFile, "config", "", "Path to a config.yaml (default: search the usual locations)")
	cmd.PersistentFlags().StringVar(&cli.logLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(cli.newBuildCmd())
	cmd.AddCommand(cli.newInspectCmd())
	cmd.AddCommand(cli.newServeCmd())
	cmd.AddCommand(cli.newVersionCmd())
	return cmd
}

// loadConfig applies the persistent flags on top of the loaded configuration
func (cli *CLI) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cli.configFile != "" {
		cfg, err = config.LoadFile(cli.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if cli.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(cli.logLevel)
	}
	return cfg, nil
}

// offline wires the application without listening. Logs go to the error
// stream so that command output stays parseable.
func (cli *CLI) offline(ctx context.Context) (*app.Application, error) {
	cfg, err := cli.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := infrastructure.NewLogger(cli.errOut, cfg.Logging)
	return app.New(ctx, cfg, logger)
}

// validationError flattens validator output into one readable error
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range apierrors.FieldErrors(fieldErrs) {
		msgs = append(msgs, fe.Message)
	}
	return fmt.Errorf("%w: %s", services.ErrInvalidInput, strings.Join(msgs, "; "))
}

type buildCmd struct {
	cli *CLI
	req api.BuildRequest
}

func (cli *CLI) newBuildCmd() *cobra.Command {
	bc := &buildCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build dashboard report files from a workbook",
		Example: "  report build --kind consumption --input consommation.xlsx --out reports --format csv,xlsx,html\n" +
			"  report build --kind stock --input stock.zip --group Lubrifiants --from 2024-01-01",
		RunE: bc.run,
	}

	f := cmd.Flags()
	f.StringVar(&bc.req.Kind, "kind", "", "Dataset kind: consumption, procurement, equipment or stock")
	f.StringVar(&bc.req.Input, "input", "", "Workbook (.xlsx, .xlsm) or zip archive of workbooks")
	f.StringVar(&bc.req.Out, "out", "", "Output directory (default: the reports directory)")
	f.StringVar(&bc.req.Formats, "format", "csv,xlsx,html", "Comma separated output formats")
	f.IntVar(&bc.req.Top, "top", 0, "Length of the top lists (1-50)")
	addFilterFlags(cmd, &bc.req.FilterRequest)

	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func addFilterFlags(cmd *cobra.Command, fr *api.FilterRequest) {
	f := cmd.Flags()
	f.StringVar(&fr.From, "from", "", "First date included (YYYY-MM-DD)")
	f.StringVar(&fr.To, "to", "", "Last date included (YYYY-MM-DD)")
	f.StringVar(&fr.Organization, "organization", "", "Keep one organization")
	f.StringVar(&fr.Category, "category", "", "Keep one category")
	f.StringVar(&fr.Equipment, "equipment", "", "Keep one equipment")
	f.StringVar(&fr.Group, "group", "", "Keep one group")
	f.StringVar(&fr.Supplier, "supplier", "", "Keep one supplier")
}

func (bc *buildCmd) run(cmd *cobra.Command, _ []string) error {
	if err := middleware.NewValidator().Struct(bc.req); err != nil {
		return validationError(err)
	}
	filter, err := bc.req.Filter()
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrInvalidInput, err)
	}
	formats, err := exporter.ParseFormats(bc.req.Formats)
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrInvalidInput, err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), config.ReportBuildTimeout)
	defer cancel()

	a, err := bc.cli.offline(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	res, err := a.Reports.Build(ctx, services.ReportRequest{
		Kind:    domain.DatasetKind(bc.req.Kind),
		Input:   bc.req.Input,
		OutDir:  bc.req.Out,
		Formats: formats,
		Filter:  filter,
		TopN:    bc.req.Top,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s dashboard: %d records, %d forecasts, %d anomalies\n",
		res.Dashboard.Kind, res.Records, len(res.Dashboard.Forecast.Outcomes), len(res.Dashboard.Anomalies.Anomalies))
	for _, f := range res.Files {
		fmt.Fprintln(cmd.OutOrStdout(), f)
	}
	return nil
}

type inspectCmd struct {
	cli   *CLI
	req   api.DatasetRequest
	input string
}

func (cli *CLI) newInspectCmd() *cobra.Command {
	ic := &inspectCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Check a workbook against its schema and list parse warnings",
		RunE:  ic.run,
	}
	cmd.Flags().StringVar(&ic.req.Kind, "kind", "", "Dataset kind: consumption, procurement, equipment or stock")
	cmd.Flags().StringVar(&ic.input, "input", "", "Workbook or zip archive to inspect")

	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (ic *inspectCmd) run(cmd *cobra.Command, _ []string) error {
	if err := middleware.NewValidator().Struct(ic.req); err != nil {
		return validationError(err)
	}

	ctx := cmd.Context()
	a, err := ic.cli.offline(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	in, err := a.Reports.Inspect(ctx, domain.DatasetKind(ic.req.Kind), ic.input)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(in)
}

func (cli *CLI) newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cli.loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			logger, err := infrastructure.InitializeLogger(cfg.Logging)
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			logger.Info("Listening", slog.String("address", a.Server.Addr))
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Override the configured port")
	return cmd
}

func (cli *CLI) newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(contracts.GetVersionInfo())
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), contracts.GetFullVersionString())
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
