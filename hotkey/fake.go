package hotkey

import (
	"sync/atomic"
	"time"
)

// FakeHotkey is a Hotkey driven by test code instead of a keyboard.
type FakeHotkey struct {
	keydown    chan struct{}
	keyup      chan struct{}
	registered atomic.Bool
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (f *FakeHotkey) Register() error {
	f.registered.Store(true)
	return nil
}

func (f *FakeHotkey) Unregister() { f.registered.Store(false) }

func (f *FakeHotkey) Keydown() <-chan struct{} { return f.keydown }

func (f *FakeHotkey) Keyup() <-chan struct{} { return f.keyup }

func (f *FakeHotkey) Registered() bool { return f.registered.Load() }

func (f *FakeHotkey) SimKeydown() { f.keydown <- struct{}{} }

func (f *FakeHotkey) SimKeyup() { f.keyup <- struct{}{} }

// Tap presses and releases immediately.
func (f *FakeHotkey) Tap() {
	f.SimKeydown()
	f.SimKeyup()
}

// Hold presses, waits d, then releases.
func (f *FakeHotkey) Hold(d time.Duration) {
	f.SimKeydown()
	time.Sleep(d)
	f.SimKeyup()
}
