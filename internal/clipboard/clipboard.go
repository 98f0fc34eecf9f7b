package clipboard

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
)

// ClipboardError represents an error when no clipboard utility is available
type ClipboardError struct {
	OS      string
	Message string
}

func (e *ClipboardError) Error() string {
	return e.Message
}

// NewClipboardError creates a new ClipboardError with installation hints
func NewClipboardError() *ClipboardError {
	return &ClipboardError{
		OS:      runtime.GOOS,
		Message: "no clipboard utility found. " + GetInstallInstructions(),
	}
}

// writeAll is swapped in tests
var writeAll = clipboard.WriteAll

// Copy copies text to the system clipboard
func Copy(text string) error {
	if clipboard.Unsupported {
		return NewClipboardError()
	}
	if err := writeAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}

// FrontMatter wraps metadata in --- delimiters, ready to paste at the top
// of a note
func FrontMatter(metadata string) string {
	return "---\n" + strings.TrimRight(metadata, "\n") + "\n---\n"
}

// CopyFrontMatter copies metadata as a front matter block and returns a
// message for the user
func CopyFrontMatter(metadata string) (string, error) {
	if strings.TrimSpace(metadata) == "" {
		return "", errors.New("nothing to copy")
	}
	if err := Copy(FrontMatter(metadata)); err != nil {
		return "", err
	}
	return "Copied to clipboard!", nil
}

// IsClipboardAvailable reports whether a clipboard utility was found
func IsClipboardAvailable() bool {
	return !clipboard.Unsupported
}

// GetInstallInstructions returns installation instructions for clipboard utilities
func GetInstallInstructions() string {
	switch runtime.GOOS {
	case "linux":
		return "Install a clipboard utility:\n" +
			"  • Ubuntu/Debian: sudo apt install xclip\n" +
			"  • Fedora/RHEL: sudo dnf install xclip\n" +
			"  • Arch: sudo pacman -S xclip\n" +
			"  • For Wayland: install wl-clipboard"
	case "darwin":
		return "pbcopy should be available by default on macOS"
	case "windows":
		return "clip should be available by default on Windows"
	default:
		return fmt.Sprintf("Clipboard not supported on %s", runtime.GOOS)
	}
}
