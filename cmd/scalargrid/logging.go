package main

import (
	"fmt"
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"

	"scalargrid/pkg/config"
)

// setupLogging points log at stderr or, when a log file is configured, at a
// rotating file.
func setupLogging(log *logrus.Logger, cfg *config.Config) {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(logrus.InfoLevel)
	if cfg.Output.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	var out io.Writer = os.Stderr
	if cfg.Output.LogFile != "" {
		fmt.Printf("Sending log messages to: %s\n", cfg.Output.LogFile)
		out = &lumberjack.Logger{
			Filename: cfg.Output.LogFile,
			MaxSize:  cfg.Output.LogMaxSize, // megabytes
			MaxAge:   cfg.Output.LogMaxAge,  // days
		}
	}
	log.SetOutput(out)
}
