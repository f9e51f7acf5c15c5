//go:build windows

package hotkey

import (
	"context"
	"fmt"
	"runtime"
	"syscall"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"dictate/internal/logging"
)

const (
	whKeyboardLL  = 13
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	wmQuit        = 0x0012
	llkhfInjected = 0x10
	vkShift       = 0x10
	vkControl     = 0x11
	vkMenu        = 0x12
	vkLWin        = 0x5B
	vkRWin        = 0x5C
)

type kbdllHookStruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type winMsg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	PtX     int32
	PtY     int32
}

var (
	user32                  = syscall.NewLazyDLL("user32.dll")
	kernel32                = syscall.NewLazyDLL("kernel32.dll")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
	procGetCurrentThreadId  = kernel32.NewProc("GetCurrentThreadId")
)

func keyDown(vk uint32) bool {
	st, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return st&0x8000 != 0
}

func modsSatisfied(required uint32) bool {
	if required&ModCtrl != 0 && !keyDown(vkControl) {
		return false
	}
	if required&ModAlt != 0 && !keyDown(vkMenu) {
		return false
	}
	if required&ModShift != 0 && !keyDown(vkShift) {
		return false
	}
	if required&ModWin != 0 && !keyDown(vkLWin) && !keyDown(vkRWin) {
		return false
	}
	return true
}

// Listen installs a low-level keyboard hook and reports the chord's key-down
// and key-up edges. The chord's keystrokes are swallowed. The channel is
// closed after ctx is done and the hook is removed.
func Listen(ctx context.Context, chord Chord, log *zap.SugaredLogger) (<-chan Event, error) {
	log = logging.OrNop(log)
	out := make(chan Event, 16)
	errCh := make(chan error, 1)
	threadCh := make(chan uintptr, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(out)

		send := newSender(out, log)

		callback := syscall.NewCallback(func(nCode, wParam, lParam uintptr) uintptr {
			if int32(nCode) < 0 {
				ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
				return ret
			}
			msg := uint32(wParam)
			k := (*kbdllHookStruct)(unsafe.Pointer(lParam))
			if k.flags&llkhfInjected == 0 && k.vkCode == chord.VK {
				switch msg {
				case wmKeyDown, wmSysKeyDown:
					if send.held || modsSatisfied(chord.Mods) {
						send.down()
						return 1
					}
				case wmKeyUp, wmSysKeyUp:
					if send.held {
						send.up()
						return 1
					}
				}
			}
			ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
			return ret
		})

		hook, _, _ := procSetWindowsHookExW.Call(uintptr(whKeyboardLL), callback, 0, 0)
		if hook == 0 {
			errCh <- fmt.Errorf("SetWindowsHookExW failed")
			return
		}
		tid, _, _ := procGetCurrentThreadId.Call()
		threadCh <- tid
		errCh <- nil
		log.Debugw("low-level hook installed", "chord", chord.Spec, "mods", chord.Mods, "vk", chord.VK)

		var m winMsg
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(ret) == -1 {
				log.Warnw("GetMessageW failed, leaving hook loop")
				break
			}
			if ret == 0 {
				break
			}
		}
		procUnhookWindowsHookEx.Call(hook)
		log.Debugw("low-level hook uninstalled")
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
	case <-time.After(2 * time.Second):
		return nil, fmt.Errorf("timeout installing low-level hook")
	}

	tid := <-threadCh
	go func() {
		<-ctx.Done()
		procPostThreadMessageW.Call(tid, wmQuit, 0, 0)
	}()
	return out, nil
}
