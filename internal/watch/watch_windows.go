//go:build windows

package watch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	wmClose           = 0x0010
	wmDestroy         = 0x0002
	wmClipboardUpdate = 0x031D
)

// hwndMessage is the message-only window parent, (HWND)-3.
const hwndMessage = ^uintptr(2)

var (
	user32                            = windows.NewLazySystemDLL("user32.dll")
	procRegisterClassExW              = user32.NewProc("RegisterClassExW")
	procCreateWindowExW               = user32.NewProc("CreateWindowExW")
	procDestroyWindow                 = user32.NewProc("DestroyWindow")
	procDefWindowProcW                = user32.NewProc("DefWindowProcW")
	procGetMessageW                   = user32.NewProc("GetMessageW")
	procDispatchMessageW              = user32.NewProc("DispatchMessageW")
	procPostMessageW                  = user32.NewProc("PostMessageW")
	procPostQuitMessage               = user32.NewProc("PostQuitMessage")
	procAddClipboardFormatListener    = user32.NewProc("AddClipboardFormatListener")
	procRemoveClipboardFormatListener = user32.NewProc("RemoveClipboardFormatListener")

	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procGetModuleHandleW = kernel32.NewProc("GetModuleHandleW")
)

type wndClassEx struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   windows.Handle
	Icon       windows.Handle
	Cursor     windows.Handle
	Background windows.Handle
	MenuName   *uint16
	ClassName  *uint16
	IconSm     windows.Handle
}

type message struct {
	HWND    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// messageWatcher owns a hidden message-only window subscribed to
// WM_CLIPBOARDUPDATE. One watcher per process; the window class is
// registered once and reused.
type messageWatcher struct {
	signals chan<- struct{}
	logger  *slog.Logger
}

func newMessageWatcher(signals chan<- struct{}) *messageWatcher {
	return &messageWatcher{signals: signals, logger: slog.Default()}
}

// Run creates the listener window and pumps its message queue until ctx is
// cancelled. The queue is thread-affine, so the whole body stays on one OS
// thread.
func (w *messageWatcher) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hwnd, err := w.createWindow()
	if err != nil {
		w.logger.Error("creating clipboard listener window", "error", err)
		return
	}

	if r, _, callErr := procAddClipboardFormatListener.Call(hwnd); r == 0 {
		w.logger.Error("registering clipboard format listener", "error", callErr)
		procDestroyWindow.Call(hwnd)
		return
	}

	stop := context.AfterFunc(ctx, func() {
		procPostMessageW.Call(hwnd, wmClose, 0, 0)
	})
	defer stop()

	var msg message
	for {
		r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		// 0 is WM_QUIT, anything negative is an error; both end the pump.
		if int32(r) <= 0 {
			break
		}
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}

	procRemoveClipboardFormatListener.Call(hwnd)
}

func (w *messageWatcher) createWindow() (uintptr, error) {
	className, err := windows.UTF16PtrFromString("clipd_clipboard_watch")
	if err != nil {
		return 0, err
	}

	instance, _, callErr := procGetModuleHandleW.Call(0)
	if instance == 0 {
		return 0, fmt.Errorf("getting module handle: %w", callErr)
	}

	wndProc := syscall.NewCallback(func(hwnd, msg, wparam, lparam uintptr) uintptr {
		switch msg {
		case wmClipboardUpdate:
			Signal(w.signals)
			return 0
		case wmDestroy:
			procPostQuitMessage.Call(0)
			return 0
		}
		r, _, _ := procDefWindowProcW.Call(hwnd, msg, wparam, lparam)
		return r
	})

	wc := wndClassEx{
		WndProc:   wndProc,
		Instance:  windows.Handle(instance),
		ClassName: className,
	}
	wc.Size = uint32(unsafe.Sizeof(wc))

	if r, _, callErr := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); r == 0 {
		if callErr != windows.ERROR_CLASS_ALREADY_EXISTS {
			return 0, fmt.Errorf("registering window class: %w", callErr)
		}
	}

	hwnd, _, callErr := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		0,
		0,
		0, 0, 0, 0,
		hwndMessage,
		0,
		instance,
		0,
	)
	if hwnd == 0 {
		return 0, fmt.Errorf("creating message window: %w", callErr)
	}
	return hwnd, nil
}
