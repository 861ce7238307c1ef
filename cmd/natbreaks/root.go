package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/banshee-data/natbreaks/internal/config"
	"github.com/banshee-data/natbreaks/internal/fsutil"
	"github.com/banshee-data/natbreaks/internal/monitoring"
)

// app carries the state shared by every subcommand.
type app struct {
	verbose    bool
	configPath string

	fs     fsutil.FileSystem
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{fs: fsutil.OSFileSystem{}}

	root := &cobra.Command{
		Use:   "natbreaks",
		Short: "Jenks natural-breaks reclassification of GeoTIFF rasters",
		Long: `natbreaks reads band 1 of a GeoTIFF, computes Jenks natural breaks over
its valid pixel values and writes a byte GeoTIFF of class indices (1..N, with
0 as no-data) that keeps the input's georeferencing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initLogger(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose console logging")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Classification config file (.json, .yaml or .yml)")

	root.AddCommand(
		newClassifyCmd(a),
		newBreaksCmd(a),
		newInfoCmd(a),
		newHistoryCmd(a),
		newMigrateCmd(a),
		newVersionCmd(),
	)
	return root
}

// initLogger builds the zap logger and routes the monitoring hooks to it.
func (a *app) initLogger(w io.Writer) error {
	var (
		enc   zapcore.Encoder
		level zapcore.Level
	)
	if a.verbose {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		level = zapcore.DebugLevel
	} else {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		level = zapcore.InfoLevel
	}
	a.logger = zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))

	sugar := a.logger.Sugar()
	monitoring.SetLogger(sugar.Infof)
	monitoring.SetWarnLogger(sugar.Warnf)
	return nil
}

// loadConfig reads the --config file, if any, and applies overrides on top.
func (a *app) loadConfig(overrides *config.ClassifyConfig) (*config.ClassifyConfig, error) {
	cfg := config.EmptyClassifyConfig()
	if a.configPath != "" {
		fileCfg, err := config.LoadClassifyConfig(a.configPath)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
	}
	if overrides != nil {
		cfg.Merge(overrides)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
