package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"credential-scanner/config"
)

// Init points the global logger at the configured outputs. Console and file
// writers are combined with io.MultiWriter; a file is only opened when one
// is configured or when Output is "file".
func Init(cfg config.LoggingConfig) error {
	var writers []io.Writer

	switch cfg.Output {
	case "", "stdout":
		writers = append(writers, os.Stdout)
	case "stderr":
		writers = append(writers, os.Stderr)
	case "file":
		// file only, no console writer
	default:
		writers = append(writers, os.Stdout)
	}

	if cfg.File != "" || cfg.Output == "file" {
		logFilePath := cfg.File
		if logFilePath == "" {
			logFilePath = filepath.Join("logs", fmt.Sprintf("credential-scanner-%s.log", time.Now().Format("20060102")))
		}

		if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, file)
	}

	log.SetOutput(io.MultiWriter(writers...))
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	return nil
}
