// Package tray provides a system tray menu for a running monkeycam server.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu. Callbacks run on the menu goroutine.
type Tray struct {
	title     string
	onOpen    func()
	onRotate  func()
	onQuit    func()
	faceCount int
	mu        sync.RWMutex

	menuFaces *systray.MenuItem
}

// New creates a Tray with the given title.
func New(title string) *Tray {
	return &Tray{title: title}
}

// OnOpen sets the callback for the "Open preview" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnRotate sets the callback for the "Rotate display" item.
func (t *Tray) OnRotate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRotate = fn
}

// OnQuit sets the callback for the "Quit" item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run shows the tray icon and blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.title + " face overlay")

	t.mu.Lock()
	t.menuFaces = systray.AddMenuItem(facesTitle(t.faceCount), "Faces in the last frame")
	t.menuFaces.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open preview", "Open the live preview in a browser")
	menuRotate := systray.AddMenuItem("Rotate display", "Swap the display width and height")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Stop the server")

	go func() {
		for {
			select {
			case <-menuOpen.ClickedCh:
				t.call(func(t *Tray) func() { return t.onOpen })
			case <-menuRotate.ClickedCh:
				t.call(func(t *Tray) func() { return t.onRotate })
			case <-menuQuit.ClickedCh:
				t.call(func(t *Tray) func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

// call runs the callback picked by get outside the lock.
func (t *Tray) call(get func(*Tray) func()) {
	t.mu.RLock()
	fn := get(t)
	t.mu.RUnlock()

	if fn != nil {
		fn()
	}
}

// SetFaceCount updates the face counter shown in the menu.
func (t *Tray) SetFaceCount(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n == t.faceCount {
		return
	}
	t.faceCount = n
	if t.menuFaces != nil {
		t.menuFaces.SetTitle(facesTitle(n))
	}
}

// FaceCount returns the last count given to SetFaceCount.
func (t *Tray) FaceCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.faceCount
}

func facesTitle(n int) string {
	if n == 1 {
		return "1 face"
	}
	return fmt.Sprintf("%d faces", n)
}
