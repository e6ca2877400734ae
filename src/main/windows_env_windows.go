//go:build windows

package main

import "golang.org/x/sys/windows"

// enableDPIAwareness asks for per-monitor DPI awareness so popup placement
// uses physical pixels, falling back to system awareness. It returns the mode
// that was applied.
func enableDPIAwareness() string {
	const processPerMonitorDPIAware = 2
	shcore := windows.NewLazySystemDLL("Shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	if err := setProcessDpiAwareness.Find(); err == nil {
		if ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware)); ret == 0 {
			return "per-monitor"
		}
	}

	user32 := windows.NewLazySystemDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err == nil {
		if ret, _, _ := setProcessDPIAware.Call(); ret != 0 {
			return "system"
		}
	}
	return "unaware"
}
