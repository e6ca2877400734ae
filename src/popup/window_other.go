//go:build !windows

package popup

import "go.uber.org/zap"

// NewNative logs results where no native popup exists.
func NewNative(logger *zap.SugaredLogger) Presenter {
	return LogPresenter{Logger: logger}
}
