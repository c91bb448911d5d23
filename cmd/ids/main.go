package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ids-go/internal/api"
	"ids-go/internal/app"
	"ids-go/internal/config"
	"ids-go/internal/encryption"
	"ids-go/internal/ids"
)

// Exit codes of every command. "ids check" uses exitDivergent when the
// monitored files no longer match the baseline.
const (
	exitOK        = 0
	exitDivergent = 1
	exitError     = 2
)

// errDivergent is returned by "ids check" after the divergent report is printed.
var errDivergent = errors.New("monitored files diverged from the baseline")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errDivergent):
		return exitDivergent
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := hintFor(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		return exitError
	}
}

// hintFor tells the operator how to recover from the common fatal errors.
func hintFor(err error) string {
	switch {
	case errors.Is(err, ids.ErrBaselineMissing):
		return `No baseline yet: run "ids build" first.`
	case errors.Is(err, ids.ErrSerialization):
		return `The baseline is corrupt: rebuild it with "ids build" or restore it with "ids baseline pull".`
	case errors.Is(err, ids.ErrConfigurationMissing):
		return `Nothing to monitor: add files_to_monitor or directories to the configuration.`
	case errors.Is(err, fs.ErrNotExist):
		return `Missing configuration: run "ids config init" or set IDS_CONFIG_PATH.`
	case errors.Is(err, ids.ErrNoMirror):
		return `Configure a [mirror] section to push or pull the baseline.`
	}
	return ""
}

func configPath() string {
	if configFlag != "" {
		return configFlag
	}
	return app.GetDefaults()["config_path"]
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// command identifies the CLI command being run (e.g. "build", "check").
func newApp(ctx context.Context, command string) (*app.App, error) {
	cfg, err := config.ReadFromFile(configPath())
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(ctx, cfg, command)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// withApp runs fn against a freshly wired App and records its outcome.
// fn returns the invocation status to log on success.
func withApp(cmd *cobra.Command, command string, fn func(a *app.App) (string, error)) error {
	a, err := newApp(cmd.Context(), command)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := fn(a)
	if errors.Is(err, errDivergent) {
		a.Finish(app.StatusDivergent, nil)
		return err
	}
	a.Finish(status, err)
	return err
}

func printJSON(v any, indent bool) error {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

var configFlag string

var rootCmd = &cobra.Command{
	Use:           "ids",
	Short:         "Host file-integrity monitor",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Fingerprint the monitored files and save the baseline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		minify, _ := cmd.Flags().GetBool("minify")

		return withApp(cmd, "build", func(a *app.App) (string, error) {
			snapshot, err := a.Build(cmd.Context(), minify)
			if snapshot == nil {
				return "", err
			}
			fmt.Printf("Baseline of %d file(s) written to %s\n", len(snapshot.Files), a.Config().Baseline.Path)
			if snapshot.ListeningPorts.Failed() {
				fmt.Fprintln(os.Stderr, "Warning: listening ports could not be enumerated")
			}
			return app.StatusSuccess, err
		})
	},
}

// checkOutput is what "ids check" prints.
type checkOutput struct {
	State   string           `json:"state"`
	Changes ids.ChangeReport `json:"changes,omitempty"`
}

// check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare the monitored files with the baseline",
	Long: `Compare the monitored files with the baseline.

Exit status is 0 when nothing changed, 1 when at least one file diverged
and 2 on error.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "check", func(a *app.App) (string, error) {
			report, err := a.Check(cmd.Context())
			if report == nil {
				return "", err
			}
			if err != nil {
				// The comparison ran but could not be recorded.
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}

			if report.State == ids.StateOK {
				return app.StatusSuccess, printJSON(checkOutput{State: report.State}, false)
			}
			if err := printJSON(checkOutput{State: report.State, Changes: report.Changes}, true); err != nil {
				return "", err
			}
			return app.StatusDivergent, errDivergent
		})
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve checks and report history over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen, _ := cmd.Flags().GetString("listen")

		return withApp(cmd, "serve", func(a *app.App) (string, error) {
			if listen == "" {
				listen = a.Config().API.ListenAddress
			}
			srv := api.NewServer(a.Service(), a.Logger())
			return app.StatusSuccess, srv.ListenAndServe(cmd.Context(), listen)
		})
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, _ := cmd.Flags().GetStringSlice("file")
		dirs, _ := cmd.Flags().GetStringSlice("dir")
		encType, _ := cmd.Flags().GetString("encryption")

		defaults := app.GetDefaults()
		path := configPath()

		// Generate a new host ID
		hostID := uuid.New().String()

		cfg := config.NewConfig(hostID, defaults["base_dir"])
		for _, f := range files {
			abs, err := filepath.Abs(f)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", f, err)
			}
			cfg.FilesToMonitor = append(cfg.FilesToMonitor, abs)
		}
		for _, d := range dirs {
			abs, err := filepath.Abs(d)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", d, err)
			}
			cfg.Directories = append(cfg.Directories, config.DirectoryConfig{Path: abs, Recursive: true})
		}
		cfg.Encryption.Type = encType

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s", path)
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.BaseDir, 0750); err != nil {
			return fmt.Errorf("creating base directory: %w", err)
		}

		if cfg.Encryption.Type == "age" {
			if err := setupAgeKeys(cfg.Encryption); err != nil {
				return err
			}
		}

		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Host ID:  %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		if len(cfg.FilesToMonitor) == 0 && len(cfg.Directories) == 0 {
			fmt.Println("Add files_to_monitor or directories before running \"ids build\".")
		}
		return nil
	},
}

func setupAgeKeys(cfg config.EncryptionConfig) error {
	enc := encryption.NewAgeEncryptor(cfg)
	if enc.IsConfigured() {
		fmt.Printf("Reusing age keys at %s\n", cfg.PublicKeyPath)
		return nil
	}

	passphrase, err := readPassphrase("Passphrase for the mirror key: ", true)
	if err != nil {
		return err
	}
	if err := enc.Setup(passphrase); err != nil {
		return fmt.Errorf("generating age keys: %w", err)
	}
	fmt.Printf("Age keys written to %s and %s\n", cfg.PublicKeyPath, cfg.PrivateKeyPath)
	return nil
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		cfg, err := config.ReadFromFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("# Configuration from %s\n", path)
		return config.ManagerFor(path).Write(os.Stdout, cfg)
	},
}

// baseline command
var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Inspect and mirror the baseline",
}

var baselineShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the baseline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "baseline show", func(a *app.App) (string, error) {
			snapshot, err := a.Baseline()
			if err != nil {
				return "", err
			}
			data, err := ids.EncodeSnapshot(snapshot, ids.FormatReadable)
			if err != nil {
				return "", err
			}
			fmt.Println(string(data))
			return app.StatusSuccess, nil
		})
	},
}

var baselinePushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload the baseline to the mirror",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "baseline push", func(a *app.App) (string, error) {
			if err := a.PushBaseline(); err != nil {
				return "", err
			}
			fmt.Println("Baseline pushed to mirror")
			return app.StatusSuccess, nil
		})
	},
}

var baselinePullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Restore the baseline from the mirror",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		minify, _ := cmd.Flags().GetBool("minify")

		return withApp(cmd, "baseline pull", func(a *app.App) (string, error) {
			var passphrase string
			if a.MirrorRequiresPassphrase() {
				p, err := readPassphrase("Passphrase: ", false)
				if err != nil {
					return "", err
				}
				passphrase = p
			}

			snapshot, err := a.PullBaseline(passphrase, minify)
			if err != nil {
				return "", err
			}
			fmt.Printf("Baseline of %d file(s) built at %s restored to %s\n",
				len(snapshot.Files), snapshot.BuildTime, a.Config().Baseline.Path)
			return app.StatusSuccess, nil
		})
	},
}

// reports command
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "View check history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp(cmd, "reports", func(a *app.App) (string, error) {
			reports, err := a.ListReports(limit)
			if err != nil {
				return "", err
			}

			if len(reports) == 0 {
				fmt.Println("No checks recorded.")
				return app.StatusSuccess, nil
			}

			for _, r := range reports {
				fmt.Printf("#%d  %s  %-9s  %d divergent  baseline:%s\n",
					r.ID,
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					r.State,
					len(r.Changes),
					r.BaselineBuildTime,
				)
			}
			return app.StatusSuccess, nil
		})
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print one check report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid report id %q", args[0])
		}

		return withApp(cmd, "reports show", func(a *app.App) (string, error) {
			report, err := a.GetReport(id)
			if err != nil {
				return "", err
			}
			if report == nil {
				return "", fmt.Errorf("report %d not found", id)
			}
			return app.StatusSuccess, printJSON(report, true)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file (default $IDS_CONFIG_PATH or /etc/ids/config.toml)")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().StringSliceP("file", "f", nil, "File to monitor (repeatable)")
	configInitCmd.Flags().StringSliceP("dir", "d", nil, "Directory to monitor recursively (repeatable)")
	configInitCmd.Flags().String("encryption", "none", "Mirror encryption: none or age")

	// baseline subcommands
	baselineCmd.AddCommand(baselineShowCmd)
	baselineCmd.AddCommand(baselinePushCmd)
	baselineCmd.AddCommand(baselinePullCmd)
	baselinePullCmd.Flags().Bool("minify", false, "Write the restored baseline in compact form")

	// reports subcommands
	reportsCmd.AddCommand(reportsShowCmd)
	reportsCmd.Flags().IntP("limit", "n", 50, "Maximum number of reports to show")

	// root commands
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().Bool("minify", false, "Write the baseline in compact form")
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Listen address (default from [api] listen_address)")
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(reportsCmd)
}
