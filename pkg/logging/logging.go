package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level string // logrus level name, "info" when empty
	File  string // optional log file, rotated
	JSON  bool
	// NoTerminal disables stderr output. Ignored when File is empty.
	NoTerminal bool
	Rotation   Rotation
}

type Rotation struct {
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

var DefaultRotation = Rotation{
	MaxSize:    128,
	MaxBackups: 5,
	MaxAge:     16,
}

// New builds a logrus logger writing to stderr and, if configured, to a
// rotated log file.
func New(config Config) (*logrus.Logger, error) {
	log := logrus.New()

	level := logrus.InfoLevel
	if config.Level != "" {
		parsed, err := logrus.ParseLevel(config.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", config.Level, err)
		}
		level = parsed
	}
	log.SetLevel(level)

	if config.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	log.SetOutput(writer(config))
	return log, nil
}

func writer(config Config) io.Writer {
	var writers []io.Writer

	if !config.NoTerminal || config.File == "" {
		writers = append(writers, os.Stderr)
	}

	if config.File != "" {
		rotation := config.Rotation
		if rotation == (Rotation{}) {
			rotation = DefaultRotation
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    rotation.MaxSize,
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAge,
			Compress:   rotation.Compress,
		})
	}

	if len(writers) == 1 {
		return writers[0]
	}
	return io.MultiWriter(writers...)
}
