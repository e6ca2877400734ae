//go:build !windows

package notification

import "go.uber.org/zap"

// ShowBlockingError logs the message where no native dialog is wired.
func ShowBlockingError(title, message string) {
	zap.S().Errorw(message, "dialog", title)
}

// ShowInfo logs the message where no native dialog is wired.
func ShowInfo(title, message string) {
	zap.S().Infow(message, "dialog", title)
}
