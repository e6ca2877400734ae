package mousehook

import "time"

const defaultDoubleClick = 500 * time.Millisecond
