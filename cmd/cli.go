// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"pulse/internal/analysis"
	"pulse/internal/audio"
	"pulse/internal/config"
	"pulse/internal/log"
	"pulse/internal/tui"
	"pulse/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Options holds the command line flags. Only flags the user set override
// the configuration file.
type Options struct {
	ConfigPath string
	DeviceID   int
	SampleRate int
	FrameSize  int
	Source     string
	Format     string
	Record     bool
	OutputDir  string
	Verbose    bool
	LogLevel   string
	JSON       bool
}

// Execute runs the command line against args until ctx is cancelled.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&Options{})
}

func newRootCommand(opts *Options) *cobra.Command {
	buildInfo := build.GetBuildFlags()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runPipeline(cmd.Context(), cfg, path, false, flagOverrides(cmd, opts))
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()
			return audio.ListDevices(cmd.OutOrStdout())
		},
	}

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Browse input devices interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			sel, ok, err := tui.StartDeviceListUI()
			if err != nil || !ok {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Selected %s\nRun: %s --device %d --sample-rate %d\n",
				sel.Name, buildInfo.Name, sel.DeviceID, sel.SampleRate)
			return nil
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a wav, mp3 or ogg file and print its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			cfg.Source.Kind = config.SourceFile
			cfg.Source.File = args[0]
			return analyzeFile(cmd.Context(), cfg, cmd.OutOrStdout(), opts.JSON)
		},
	}
	analyzeCmd.Flags().BoolVar(&opts.JSON, "json", false, "Print events as JSON lines")

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the analyzer with a live terminal monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runPipeline(cmd.Context(), cfg, path, true, flagOverrides(cmd, opts))
		},
	}

	rootCmd.AddCommand(listCmd, devicesCmd, analyzeCmd, monitorCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "",
		"Configuration file (default ./"+config.DefaultFileName+" if present)")

	// Source Configuration
	flags.StringVar(&opts.Source, "source", config.DefaultSourceKind,
		"Frame source: device, pipe (stdin) or file")
	flags.IntVarP(&opts.DeviceID, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	flags.IntVarP(&opts.SampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.StringVar(&opts.Format, "format", config.DefaultFormat,
		"Sample format of a pipe source: s16le, f32le or s32le")
	flags.IntVarP(&opts.FrameSize, "frame-size", "f", config.DefaultFrameSize,
		"Samples per analysis frame")

	// Recording Configuration
	flags.BoolVarP(&opts.Record, "record", "r", false,
		"Record the analyzed stream to a WAV file")
	flags.StringVarP(&opts.OutputDir, "output", "o", config.DefaultOutputDir,
		"Directory for recordings")

	// Debug Configuration
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false,
		"Show verbose output")
	flags.StringVar(&opts.LogLevel, "log-level", config.DefaultLogLevel,
		"Log level: debug, info, warn or error")

	return rootCmd
}

// loadConfig reads the configuration file and applies the flags the user
// set. It returns the file path in use, empty when running on defaults.
func loadConfig(cmd *cobra.Command, opts *Options) (*config.Config, string, error) {
	path := opts.ConfigPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFileName); err == nil {
			path = config.DefaultFileName
		}
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, "", err
	}
	flagOverrides(cmd, opts)(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	config.ApplyLogLevel(cfg)
	return cfg, path, nil
}

// flagOverrides returns a function applying the flags the user set to a
// configuration, so a reloaded file does not undo them.
func flagOverrides(cmd *cobra.Command, opts *Options) func(*config.Config) {
	flags := cmd.Flags()
	return func(cfg *config.Config) {
		applyFlags(flags, opts, cfg)
	}
}

func applyFlags(flags *pflag.FlagSet, opts *Options, cfg *config.Config) {
	if flags.Changed("source") {
		cfg.Source.Kind = opts.Source
	}
	if flags.Changed("device") {
		cfg.Source.Device = opts.DeviceID
	}
	if flags.Changed("sample-rate") {
		cfg.Source.SampleRate = opts.SampleRate
	}
	if flags.Changed("format") {
		cfg.Source.Format = opts.Format
	}
	if flags.Changed("frame-size") {
		cfg.Analysis.FrameSize = opts.FrameSize
	}
	if flags.Changed("record") {
		cfg.Recording.Enabled = opts.Record
	}
	if flags.Changed("output") {
		cfg.Recording.OutputDir = opts.OutputDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.Verbose {
		cfg.Debug = true
	}
}

// analyzeFile runs the analyzer over a file source and prints each event
// with its position in the stream.
func analyzeFile(ctx context.Context, cfg *config.Config, w io.Writer, asJSON bool) error {
	src, err := audio.OpenSource(ctx, cfg)
	if err != nil {
		return err
	}
	frameTime := time.Duration(float64(cfg.Analysis.FrameSize) / float64(src.SampleRate()) * float64(time.Second))

	var engine *audio.Engine
	enc := json.NewEncoder(w)
	sink := analysis.SinkFunc(func(e analysis.Event) error {
		at := time.Duration(engine.Frames()+1) * frameTime
		if asJSON {
			return enc.Encode(struct {
				At float64 `json:"at"`
				analysis.Event
			}{at.Seconds(), e})
		}
		_, err := fmt.Fprintf(w, "%10s  %s\n", at.Round(time.Millisecond), e)
		return err
	})

	engine, err = audio.NewEngine(src, cfg, sink, nil)
	if err != nil {
		src.Close()
		return err
	}
	defer engine.Close()

	if err := engine.Run(ctx); err != nil {
		return err
	}
	log.Infof("analyzed %d frames (%s)", engine.Frames(), time.Duration(engine.Frames())*frameTime)
	return nil
}
