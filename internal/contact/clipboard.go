package contact

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnavailable is returned by CopyToClipboard when the controller
// was built without a clipboard.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// Clipboard receives copied text.
type Clipboard interface {
	Write(text string) error
}

// ClipboardFunc adapts a function to Clipboard.
type ClipboardFunc func(text string) error

func (f ClipboardFunc) Write(text string) error { return f(text) }

// SystemClipboard writes to the clipboard of the machine the process runs on.
type SystemClipboard struct{}

func (SystemClipboard) Write(text string) error {
	return clipboard.WriteAll(text)
}
