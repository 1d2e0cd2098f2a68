package logger

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured logging.
const (
	FieldRaw        = "raw"
	FieldText       = "text"
	FieldErrorType  = "error_type"
	FieldError      = "error"
	FieldOutcome    = "outcome"
	FieldFile       = "file"
	FieldKey        = "key"
	FieldCount      = "count"
	FieldFallbacks  = "fallbacks"
	FieldErrorCount = "errors"
	FieldWorkers    = "workers"
	FieldMode       = "mode"
	FieldPath       = "path"
)

// Options controls logger construction.
type Options struct {
	JSON    bool
	Verbose bool
}

// New builds a sugared zap logger. JSON output uses the production encoder,
// otherwise a console encoder writing to stderr.
func New(opts Options) (*zap.SugaredLogger, error) {
	level := zap.InfoLevel
	if opts.Verbose {
		level = zap.DebugLevel
	}

	if opts.JSON {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		l, err := config.Build()
		if err != nil {
			return nil, errors.Wrap(err, "failed to build json logger")
		}
		return l.Sugar(), nil
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stderr), level)
	return zap.New(core).Sugar(), nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}

// InitLogs ensures the logs directory exists and removes any existing .json files
// so the run starts with a clean directory.
func InitLogs(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create log dir %s", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	for _, f := range files {
		// ignore individual remove errors but continue trying to clean others
		_ = os.Remove(f)
	}
	return nil
}

// LogJSON writes v as pretty JSON to <dir>/<name>.json. It writes to a temporary
// file first and renames it to reduce the chance of partial files.
func LogJSON(dir, name string, v interface{}) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create log dir %s", dir)
	}
	final := filepath.Join(dir, filepath.Base(name)+".json")
	tmp := final + ".tmp"
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshal %s", name)
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "rename %s", tmp)
	}
	return nil
}
