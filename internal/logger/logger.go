package logger

import "go.uber.org/zap"

var l = zap.NewNop()

func Init(isDev bool) error {
	var (
		logger *zap.Logger
		err    error
	)
	if isDev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	l = logger
	return nil
}

func L() *zap.Logger {
	return l
}

func Sync() {
	_ = l.Sync()
}
