//go:build !windows

package mousehook

import "time"

// DoubleClickInterval has no portable source outside Windows.
func DoubleClickInterval() time.Duration { return defaultDoubleClick }
