//go:build windows

package notification

import (
	"syscall"

	"github.com/lxn/win"
)

// ShowBlockingError displays a modal error dialog and returns once dismissed.
func ShowBlockingError(title, message string) {
	messageBox(title, message, win.MB_OK|win.MB_ICONERROR|win.MB_TOPMOST)
}

func ShowInfo(title, message string) {
	messageBox(title, message, win.MB_OK|win.MB_ICONINFORMATION|win.MB_TOPMOST)
}

func messageBox(title, message string, flags uint32) {
	titlePtr, _ := syscall.UTF16PtrFromString(title)
	msgPtr, _ := syscall.UTF16PtrFromString(message)
	win.MessageBox(0, msgPtr, titlePtr, flags)
}
