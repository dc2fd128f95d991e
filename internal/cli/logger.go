package cli

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mrz1836/taskflow/internal/config"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/errors"
	"github.com/mrz1836/taskflow/internal/logging"
)

//nolint:gochecknoglobals // one log file per process
var (
	logFileMu sync.Mutex
	logFile   io.Closer
)

// InitLogger builds the CLI logger. --verbose selects debug, --quiet warn,
// otherwise info. Stderr gets a console writer on a color terminal and JSON
// lines everywhere else. Entries are also appended to the rotating log file
// from logCfg; if that file cannot be opened the logger stays console-only.
func InitLogger(verbose, quiet bool, logCfg *config.LogConfig) zerolog.Logger {
	var w io.Writer = stderrWriter()
	if file, err := openLogFile(logCfg); err == nil {
		swapLogFile(file)
		w = zerolog.MultiLevelWriter(w, file)
	}
	return newLogger(w, selectLevel(verbose, quiet))
}

// InitLoggerWithWriter builds the CLI logger on top of w. Tests use it.
func InitLoggerWithWriter(verbose, quiet bool, w io.Writer) zerolog.Logger {
	return newLogger(w, selectLevel(verbose, quiet))
}

// newLogger also replaces the zerolog/log package logger, so code that logs
// through log.Debug() shares the CLI format.
func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	logger := zerolog.New(w).
		Level(level).
		Hook(logging.NewSensitiveDataHook()).
		With().Timestamp().Logger()

	logFileMu.Lock()
	log.Logger = logger
	logFileMu.Unlock()
	return logger
}

// CloseLogFile closes the log file opened by InitLogger, if any.
func CloseLogFile() {
	swapLogFile(nil)
}

func swapLogFile(next io.Closer) {
	logFileMu.Lock()
	defer logFileMu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = next
}

func selectLevel(verbose, quiet bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	if quiet {
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}

func stderrWriter() io.Writer {
	if !term.IsTerminal(int(os.Stderr.Fd())) || os.Getenv("NO_COLOR") != "" {
		return os.Stderr
	}
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
}

// redactedFile is a lumberjack file that never sees credentials.
type redactedFile struct {
	*logging.FilteringWriter
	rotator *lumberjack.Logger
}

func (f *redactedFile) Close() error { return f.rotator.Close() }

func openLogFile(logCfg *config.LogConfig) (*redactedFile, error) {
	if logCfg == nil {
		logCfg = &config.DefaultConfig().Log
	}

	path, err := config.LogFilePath(logCfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errors.Wrap(err, "failed to create log directory")
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    orDefault(logCfg.MaxSizeMB, constants.LogMaxSizeMB),
		MaxBackups: orDefault(logCfg.MaxBackups, constants.LogMaxBackups),
		MaxAge:     orDefault(logCfg.MaxAgeDays, constants.LogMaxAgeDays),
		Compress:   constants.LogCompress,
	}
	return &redactedFile{FilteringWriter: logging.NewFilteringWriter(rotator), rotator: rotator}, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
