package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/attack-lab/internal/attack"
	"github.com/Brownie44l1/attack-lab/internal/config"
	"github.com/Brownie44l1/attack-lab/internal/imagestore"
	"github.com/Brownie44l1/attack-lab/internal/logging"
	"github.com/Brownie44l1/attack-lab/internal/model"
	"github.com/Brownie44l1/attack-lab/internal/predictor"
)

// Version is the application version.
const Version = "0.1.0"

var (
	configPath string
	logLevel   string
	// cfg is loaded once in PersistentPreRunE and shared by subcommands.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:           "attack-lab",
	Short:         "Perturb images and measure how an image classifier's predictions degrade",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		opts := cfg.LogOptions()
		if logLevel != "" {
			opts.Level = logLevel
		}
		logging.Configure(opts)
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "attack-lab.yml", "Path to the YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
}

// openService loads the model artifact and wires the prediction service. A
// load failure is returned to the caller, which must not serve anything.
func openService() (*predictor.Service, *model.Artifact, error) {
	logging.L().Info("loading model", "manifest", cfg.Model.Manifest)
	art, err := model.Load(cfg.Model.Manifest)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load model: %w", err)
	}

	svc, err := predictor.New(
		imagestore.New(cfg.Images.Root),
		attack.NewPipeline(cfg.AttackParams()),
		cfg.Normalizer(),
		art.Classifier,
		art.Catalog,
		cfg.Ranking.TopK,
	)
	if err != nil {
		art.Close()
		return nil, nil, err
	}
	logging.L().Info("model loaded",
		"name", art.Manifest.Name,
		"version", art.Manifest.Version,
		"classes", art.Catalog.Len(),
	)
	return svc, art, nil
}

// attackFlags collects a sequence from repeated --attack values and an
// optional --attacks-file. File steps run first.
type attackFlags struct {
	specs []string
	file  string
}

func (f *attackFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.specs, "attack", "a", nil, "Attack step as id=count, repeatable and applied in order")
	cmd.Flags().StringVar(&f.file, "attacks-file", "", "YAML file with an ordered attack list")
}

func (f *attackFlags) sequence() (attack.Sequence, error) {
	var seq attack.Sequence
	if f.file != "" {
		fromFile, err := attack.LoadSequence(f.file)
		if err != nil {
			return nil, err
		}
		seq = append(seq, fromFile...)
	}
	fromArgs, err := attack.ParseSequence(f.specs)
	if err != nil {
		return nil, err
	}
	return append(seq, fromArgs...), nil
}
