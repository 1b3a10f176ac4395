package tui

import (
	"github.com/atotto/clipboard"
	"github.com/evanschultz/tavla/internal/dnd"
)

// clipboardTransfer is a dnd.DataTransfer that also publishes the text
// payload to the system clipboard.
type clipboardTransfer struct {
	*dnd.MemoryTransfer
	write func(string) error
	err   error
}

// newClipboardTransfer wraps an in-memory transfer around write.
func newClipboardTransfer(write func(string) error) *clipboardTransfer {
	if write == nil {
		write = clipboard.WriteAll
	}
	return &clipboardTransfer{MemoryTransfer: dnd.NewMemoryTransfer(), write: write}
}

// SetData records value and copies text/plain payloads out.
func (t *clipboardTransfer) SetData(format, value string) {
	t.MemoryTransfer.SetData(format, value)
	if format != dnd.PayloadFormat {
		return
	}
	t.err = t.write(value)
}
