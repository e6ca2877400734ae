//go:build windows

package popup

import (
	"image"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"screen-translate/src/display"
)

const (
	className      = "ScreenTranslatePopup"
	hideTimerID    = 1
	wmWake         = 0x8000 + 1 // WM_APP + 1
	wsExNoActivate = 0x08000000

	padding   = 16
	maxWidth  = 640
	minWidth  = 200
	maxHeight = 400

	dtWordBreak = 0x00000010
	dtNoPrefix  = 0x00000800
	dtCalcRect  = 0x00000400
)

var (
	user32                = windows.NewLazySystemDLL("user32.dll")
	procDrawText          = user32.NewProc("DrawTextW")
	procPostThreadMessage = user32.NewProc("PostThreadMessageW")
	procGetDC             = user32.NewProc("GetDC")
	procReleaseDC         = user32.NewProc("ReleaseDC")
)

// The window procedure is a plain callback, so the live window lives in
// package state. Only the popup thread touches it.
var current struct {
	hwnd win.HWND
	text []uint16
}

type command struct {
	show    *Content
	dismiss bool
}

// Window is a borderless topmost popup drawn on its own UI thread.
type Window struct {
	logger   *zap.SugaredLogger
	mu       sync.Mutex
	queue    []command
	threadID uint32
	ready    chan struct{}
	closed   bool
}

// NewNative starts the popup thread.
func NewNative(logger *zap.SugaredLogger) Presenter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	w := &Window{logger: logger, ready: make(chan struct{})}
	go w.loop()
	<-w.ready
	return w
}

func (w *Window) Show(c Content) { w.post(command{show: &c}) }

func (w *Window) Dismiss() { w.post(command{dismiss: true}) }

func (w *Window) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	tid := w.threadID
	w.mu.Unlock()
	procPostThreadMessage.Call(uintptr(tid), win.WM_QUIT, 0, 0)
}

func (w *Window) post(cmd command) {
	w.mu.Lock()
	if w.closed || w.threadID == 0 {
		w.mu.Unlock()
		return
	}
	w.queue = append(w.queue, cmd)
	tid := w.threadID
	w.mu.Unlock()
	procPostThreadMessage.Call(uintptr(tid), wmWake, 0, 0)
}

func (w *Window) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Errorw("Popup thread panic", "panic", r)
		}
	}()

	if err := registerClass(); err != nil {
		w.logger.Errorw("Popup window class registration failed", "error", err)
		close(w.ready)
		return
	}

	var msg win.MSG
	// Force the thread message queue into existence before publishing the id.
	win.PeekMessage(&msg, 0, 0, 0, win.PM_NOREMOVE)
	w.mu.Lock()
	w.threadID = windows.GetCurrentThreadId()
	w.mu.Unlock()
	close(w.ready)

	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 || ret == -1 {
			destroyCurrent()
			return
		}
		if msg.HWnd == 0 && msg.Message == wmWake {
			w.drain()
			continue
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
}

func (w *Window) drain() {
	w.mu.Lock()
	cmds := w.queue
	w.queue = nil
	w.mu.Unlock()
	for _, cmd := range cmds {
		switch {
		case cmd.dismiss:
			destroyCurrent()
		case cmd.show != nil:
			w.create(*cmd.show)
		}
	}
}

func registerClass() error {
	name, err := syscall.UTF16PtrFromString(className)
	if err != nil {
		return err
	}
	wc := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		LpfnWndProc:   syscall.NewCallback(wndProc),
		HInstance:     win.GetModuleHandle(nil),
		HCursor:       win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_ARROW)),
		HbrBackground: win.HBRUSH(win.COLOR_WINDOW + 1),
		LpszClassName: name,
	}
	if win.RegisterClassEx(&wc) == 0 {
		return syscall.GetLastError()
	}
	return nil
}

func (w *Window) create(c Content) {
	destroyCurrent()

	text, err := syscall.UTF16FromString(c.Translated)
	if err != nil {
		w.logger.Warnw("Popup text not representable", "error", err)
		return
	}
	current.text = text
	size := measure(text)

	center := Center(c.Position)
	area, err := display.At(center)
	if err != nil {
		area = image.Rect(center.X-size.X, center.Y-size.Y, center.X+size.X, center.Y+size.Y)
	}
	r := Place(c.Position, size, area)

	name, _ := syscall.UTF16PtrFromString(className)
	hwnd := win.CreateWindowEx(
		win.WS_EX_TOPMOST|win.WS_EX_TOOLWINDOW|wsExNoActivate,
		name,
		nil,
		win.WS_POPUP|win.WS_BORDER,
		int32(r.Min.X), int32(r.Min.Y), int32(r.Dx()), int32(r.Dy()),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		w.logger.Warnw("Popup window creation failed")
		return
	}
	current.hwnd = hwnd
	win.ShowWindow(hwnd, win.SW_SHOWNOACTIVATE)
	win.UpdateWindow(hwnd)
	win.SetTimer(hwnd, hideTimerID, uint32(c.Duration.Milliseconds()), 0)
	w.logger.Debugw("Popup shown", "rect", r.String(), "duration", c.Duration.String())
}

func measure(text []uint16) image.Point {
	hdc, _, _ := procGetDC.Call(0)
	defer procReleaseDC.Call(0, hdc)
	rect := win.RECT{Right: maxWidth - 2*padding}
	procDrawText.Call(hdc, uintptr(unsafe.Pointer(&text[0])), uintptr(^uint32(0)),
		uintptr(unsafe.Pointer(&rect)), dtWordBreak|dtNoPrefix|dtCalcRect)
	width := int(rect.Right) + 2*padding
	if width < minWidth {
		width = minWidth
	}
	height := int(rect.Bottom) + 2*padding
	if height > maxHeight {
		height = maxHeight
	}
	return image.Pt(width, height)
}

func destroyCurrent() {
	if current.hwnd != 0 {
		win.KillTimer(current.hwnd, hideTimerID)
		win.DestroyWindow(current.hwnd)
		current.hwnd = 0
	}
}

func wndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	switch msg {
	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		hdc := win.BeginPaint(hwnd, &ps)
		if len(current.text) > 0 {
			var client win.RECT
			win.GetClientRect(hwnd, &client)
			rect := win.RECT{Left: padding, Top: padding, Right: client.Right - padding, Bottom: client.Bottom - padding}
			win.SetBkMode(hdc, win.TRANSPARENT)
			procDrawText.Call(uintptr(hdc), uintptr(unsafe.Pointer(&current.text[0])), uintptr(^uint32(0)),
				uintptr(unsafe.Pointer(&rect)), dtWordBreak|dtNoPrefix)
		}
		win.EndPaint(hwnd, &ps)
		return 0

	case win.WM_TIMER:
		if wParam == hideTimerID && hwnd == current.hwnd {
			destroyCurrent()
		}
		return 0

	case win.WM_LBUTTONDOWN, win.WM_RBUTTONDOWN:
		if hwnd == current.hwnd {
			destroyCurrent()
		}
		return 0

	case win.WM_NCHITTEST:
		return uintptr(win.HTCLIENT)
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}
