//go:build release

package obslog

import (
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logSubDir    = ".spicetaste/log"
	logWinSubDir = "spicetaste/log"
	logFileName  = "spicetaste.log"
)

var base = mustNewRelease()

// mustNewRelease builds a JSON-encoded zap logger that writes through
// lumberjack's rotating file sink, mirroring util/log/log_release.go's
// directory resolution and rotation policy (10MB, 2 backups, 28 days,
// compressed).
func mustNewRelease() *zap.Logger {
	logDir, err := releaseLogDir()
	if err != nil {
		panic("obslog: resolve log dir: " + err.Error())
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		panic("obslog: create log dir: " + err.Error())
	}

	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, logFileName),
		MaxSize:    10, // MB
		MaxBackups: 2,
		MaxAge:     28, // days
		Compress:   true,
	})

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), writer, zap.InfoLevel)
	return zap.New(core, zap.AddCaller())
}

func releaseLogDir() (string, error) {
	if runtime.GOOS == "windows" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, logWinSubDir), nil
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, logSubDir), nil
}
