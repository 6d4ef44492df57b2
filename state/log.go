package state

import (
	cosmoslog "cosmossdk.io/log"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// iavlLogger adapts the node's CometBFT logger to the cosmossdk.io/log
// interface the IAVL tree expects.
type iavlLogger struct {
	logger cmtlog.Logger
}

func NewIAVLLogger(lg cmtlog.Logger) cosmoslog.Logger {
	return iavlLogger{logger: lg}
}

func (l iavlLogger) Info(msg string, keyVals ...any) {
	l.logger.Info(msg, keyVals...)
}

func (l iavlLogger) Error(msg string, keyVals ...any) {
	l.logger.Error(msg, keyVals...)
}

func (l iavlLogger) Debug(msg string, keyVals ...any) {
	l.logger.Debug(msg, keyVals...)
}

func (l iavlLogger) With(keyVals ...any) cosmoslog.Logger {
	return iavlLogger{l.logger.With(keyVals...)}
}

func (l iavlLogger) Warn(msg string, keyVals ...any) {
	l.logger.Info(msg, keyVals...)
}

func (l iavlLogger) Impl() any {
	return l.logger
}
