// Package logging points the standard logger at stderr and, when a file
// is configured, a size-rotated log file.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Setup configures the global logger and returns a closer for the log
// file. The closer is a no-op when no file is configured.
func Setup(opts Options) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if opts.File == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}

	rotator := NewRotator(opts)
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return rotator
}

func NewRotator(opts Options) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
