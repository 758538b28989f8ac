package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"
	"github.com/sqweek/dialog"
	"gitlab.com/gomidi/midi/v2/smf"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/flanseq/midi2psx/fdss"
	"github.com/flanseq/midi2psx/parser/standardmidi"
)

const usage = "Usage: midi2psx <input.mid> [output.dss] [--verbose]"

func main() {
	var verbose bool
	pflag.BoolVarP(&verbose, "verbose", "v", false, "log skipped events and dump the command sequence")
	pflag.Parse()

	logger := newLogger(verbose)
	defer logger.Sync()

	// Get the current working directory.
	cwd, err := os.Getwd()
	if err != nil {
		logger.Fatal("failed to get current working directory", zap.Error(err))
	}

	// Get the path of the MIDI file to convert.
	inPath, err := choosePath(cwd, pflag.Args())
	if err != nil {
		if errors.Is(err, dialog.ErrCancelled) {
			logger.Info("user cancelled the file dialog")
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		logger.Error("failed to read input file", zap.String("path", inPath), zap.Error(err))
		os.Exit(2)
	}

	song, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		logger.Fatal("input is not a valid MIDI file", zap.String("path", inPath), zap.Error(err))
	}

	timeline := standardmidi.MergeTracks(song.Tracks)
	translator := standardmidi.NewTranslator(logger, standardmidi.DefaultOptions())
	commands, err := translator.Translate(timeline, song.TimeFormat)
	if err != nil {
		logger.Fatal("translation failed", zap.Error(err))
	}

	if verbose {
		spew.Dump(commands)
	}

	out, err := fdss.Encode(commands)
	if err != nil {
		logger.Fatal("encode failed", zap.Error(err))
	}

	outPath := chooseOutPath(inPath, pflag.Args())
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		logger.Fatal("error writing output file", zap.String("path", outPath), zap.Error(err))
	}

	logger.Info("wrote sequence",
		zap.String("path", outPath),
		zap.Int("commands", len(commands)),
		zap.Int("bytes", len(out)))
}

// newLogger builds the console logger. Verbose mode lowers the level to
// debug so the translator's per-event skip diagnostics show up.
func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// choosePath returns the input file path either from the command-line args
// or from an interactive file dialog.
func choosePath(cwd string, args []string) (string, error) {
	// If an argument was passed to the program, use it.
	if len(args) > 0 {
		path := args[0]
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("cannot get absolute path: %w", err)
		}
		if err := validatePath(absPath); err != nil {
			return "", fmt.Errorf("passed argument is not a valid path: %w", err)
		}
		return absPath, nil
	}

	// Otherwise open the file dialog.
	path, err := dialog.
		File().
		Title("Open MIDI file").
		Filter("MIDI files (*.mid)", "mid").
		SetStartDir(cwd).
		Load()
	if err != nil {
		// Propagate the error. Caller will check for dialog.ErrCancelled.
		return "", err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot get absolute path: %w", err)
	}

	// Check for empty path just in case.
	if absPath == "" {
		return "", dialog.ErrCancelled
	}
	if err := validatePath(absPath); err != nil {
		return "", fmt.Errorf("dialog selection invalid: %w", err)
	}
	return absPath, nil
}

// chooseOutPath returns the second positional argument if one was given,
// otherwise the input path with its extension replaced by .dss.
func chooseOutPath(inPath string, args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	ext := filepath.Ext(inPath)
	return strings.TrimSuffix(inPath, ext) + ".dss"
}

// validatePath performs simple checks to verify if a file exists or not.
func validatePath(p string) error {
	if strings.ToLower(filepath.Ext(p)) != ".mid" {
		return fmt.Errorf("file must have .mid extension")
	}
	if _, err := os.Stat(p); err != nil {
		return fmt.Errorf("cannot stat file: %w", err)
	}
	return nil
}
