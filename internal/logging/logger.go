// Package logging builds the process-wide zap logger.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/parisxmas/crowdtest/internal/gelf"
)

// New returns a JSON zap logger at the given level writing to stderr and,
// when gelfAddr is set, to a GELF UDP endpoint as well. A GELF setup failure
// is not fatal: the logger falls back to stderr and reports a warning.
// The returned close func releases the GELF connection and is safe to call
// when there is none.
func New(level, gelfAddr string) (*zap.Logger, func(), error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	noop := func() {}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.EpochTimeEncoder
	atom := zap.NewAtomicLevelAt(lvl)

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stderr), atom)
	if gelfAddr == "" {
		return zap.New(core, zap.AddCaller()), noop, nil
	}

	w, err := gelf.New(gelfAddr, "crowdtest")
	if err != nil {
		logger := zap.New(core, zap.AddCaller())
		logger.Warn("GELF init failed", zap.String("addr", gelfAddr), zap.Error(err))
		return logger, noop, nil
	}
	gelfCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, atom)
	logger := zap.New(zapcore.NewTee(core, gelfCore), zap.AddCaller())
	logger.Info("GELF logging enabled", zap.String("addr", gelfAddr))
	return logger, func() { _ = w.Close() }, nil
}
