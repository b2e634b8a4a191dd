package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"scalargrid/pkg/config"
)

var (
	configFile string
	verbose    bool

	// Config holds the configuration loaded before every command
	Config *config.Config

	log = logrus.New()
)

// RootCmd is the main command.
var RootCmd = &cobra.Command{
	Use:   "scalargrid",
	Short: "Slice scalar fields defined on non-uniform 3D grids.",
	Long: `scalargrid reads plot, Tecplot and NTAB files describing scalar fields on
rectilinear non-uniform grids and renders planar slices, band images and dumps.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return Startup(configFile)
	},
}

// Startup reads the configuration file and configures logging.
func Startup(configFile string) error {
	var err error
	Config, err = config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if verbose {
		Config.Output.Verbose = true
	}
	setupLogging(log, Config)
	log.WithField("config", configFile).Debug("Loaded configuration")
	return nil
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "./scalargrid.yaml", "configuration file location (.yaml or .toml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	RootCmd.AddCommand(infoCmd, sliceCmd, dumpCmd, timesCmd, configCmd)
}
