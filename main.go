package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dictate/internal/app"
	"dictate/internal/asr"
	"dictate/internal/config"
	"dictate/internal/logging"
	"dictate/internal/record"
	"dictate/internal/ui"
)

var version = "dev"

const defaultConfigPath = "config.json"

// errDefaultConfigWritten stops the run after a fresh config.json was
// created for the user to edit.
var errDefaultConfigWritten = errors.New("default config written")

// cli is the state shared by every subcommand once flags are parsed.
type cli struct {
	configPath string
	flags      *config.FlagValues
	cfg        config.Config
	log        *zap.SugaredLogger
}

func main() {
	err := newRootCmd().ExecuteContext(context.Background())
	if errors.Is(err, errDefaultConfigWritten) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "dictate: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, asr.ErrTranscriptionFailed) {
		return 3
	}
	return 1
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	var stdin bool

	root := &cobra.Command{
		Use:           "dictate",
		Short:         "Hold a hotkey, speak, and have the text typed where the cursor is",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDictation(cmd, stdin)
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config JSON (default ./config.json)")
	c.flags = config.BindFlags(root.PersistentFlags())
	addStdinFlag(root, &stdin)

	root.AddCommand(c.newRunCmd())
	root.AddCommand(c.newTranscribeCmd())
	root.AddCommand(c.newDevicesCmd())
	root.AddCommand(c.newWordsCmd())
	root.AddCommand(c.newSnippetsCmd())
	root.AddCommand(c.newHistoryCmd())
	root.AddCommand(c.newMCPCmd())
	return root
}

func addStdinFlag(cmd *cobra.Command, target *bool) {
	cmd.Flags().BoolVar(target, "stdin", false, "read chord presses as lines on stdin and print text instead of typing it")
}

func (c *cli) setup(stderr io.Writer) error {
	cfg, err := resolveConfig(c.configPath, c.flags, stderr)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	config.InitCacheDir(&cfg, log.Named("config"))
	c.cfg = cfg
	c.log = log
	return nil
}

// resolveConfig picks the configuration for this run:
//   - --config is loaded, and failure is fatal.
//   - Otherwise ./config.json is loaded when it exists.
//   - Otherwise, with no override flags, a default config.json is written
//     and errDefaultConfigWritten is returned.
//   - Otherwise the defaults are used.
//
// Flags always override the file.
func resolveConfig(configPath string, fv *config.FlagValues, stderr io.Writer) (config.Config, error) {
	var cfg config.Config
	switch {
	case configPath != "":
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config '%s': %w", configPath, err)
		}
		cfg = loaded
	default:
		_, err := os.Stat(defaultConfigPath)
		switch {
		case err == nil:
			loaded, err := config.Load(defaultConfigPath)
			if err != nil {
				return cfg, fmt.Errorf("failed to load existing %s: %w", defaultConfigPath, err)
			}
			cfg = loaded
		case os.IsNotExist(err):
			if !fv.AnySet() {
				if err := config.SaveDefault(defaultConfigPath); err != nil {
					return cfg, fmt.Errorf("failed to write default config: %w", err)
				}
				fmt.Fprintf(stderr, "default config created at %s. Please edit it and re-run.\n", defaultConfigPath)
				return cfg, errDefaultConfigWritten
			}
			cfg = config.DefaultConfig()
		default:
			return cfg, fmt.Errorf("failed to stat %s: %w", defaultConfigPath, err)
		}
	}

	config.ApplyFlags(&cfg, fv)
	if err := config.Validate(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *cli) newRunCmd() *cobra.Command {
	var stdin bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Listen for the hotkey and dictate (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDictation(cmd, stdin)
		},
	}
	addStdinFlag(cmd, &stdin)
	return cmd
}

func (c *cli) runDictation(cmd *cobra.Command, stdin bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := app.RunOptions{Stdin: stdin, In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
	if err := app.RunDictation(ctx, c.cfg, opts, c.log); err != nil {
		return err
	}
	c.log.Info("bye")
	return nil
}

func (c *cli) newTranscribeCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "transcribe <file.wav>",
		Short: "Run the dictation pipeline on a WAV file and write the text to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.RunFileMode(cmd.Context(), c.cfg, args[0], output, c.log)
			if err != nil {
				return err
			}
			ui.NewPrinter(cmd.OutOrStdout()).Done("wrote " + path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output text file (default ./<name>.txt)")
	return cmd
}

func (c *cli) newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := record.ListDevices()
			if err != nil {
				return err
			}
			ui.NewPrinter(cmd.OutOrStdout()).Devices(devices)
			return nil
		},
	}
}
