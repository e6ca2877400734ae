//go:build windows

package mousehook

import (
	"time"

	"golang.org/x/sys/windows"
)

var procGetDoubleClickTime = windows.NewLazySystemDLL("user32.dll").NewProc("GetDoubleClickTime")

// DoubleClickInterval is the user's configured double-click time.
func DoubleClickInterval() time.Duration {
	if err := procGetDoubleClickTime.Find(); err != nil {
		return defaultDoubleClick
	}
	ms, _, _ := procGetDoubleClickTime.Call()
	if ms == 0 {
		return defaultDoubleClick
	}
	return time.Duration(ms) * time.Millisecond
}
