package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the application logger. Development mode gets the console
// encoder, everything else the production JSON encoder.
func New(env string) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if env == "development" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("error creating new logger: %w", err)
	}
	return l, nil
}
