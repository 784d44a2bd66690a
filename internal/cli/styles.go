package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sys/unix"
)

// Styles holds the lipgloss styles for status output.
type Styles struct {
	Banner lipgloss.Style
	Addr   lipgloss.Style
	Name   lipgloss.Style
}

// NewStyles creates the default color styles.
func NewStyles() Styles {
	return Styles{
		Banner: lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true), // bold cyan
		Addr:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),            // green
		Name:   lipgloss.NewStyle().Foreground(lipgloss.Color("5")),            // magenta
	}
}

// NoStyles returns styles with no coloring.
func NoStyles() Styles {
	return Styles{
		Banner: lipgloss.NewStyle(),
		Addr:   lipgloss.NewStyle(),
		Name:   lipgloss.NewStyle(),
	}
}

// IsTerminal checks if the given file descriptor is a terminal using ioctl.
func IsTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), unix.TCGETS)
	return err == nil
}

// StdoutIsTerminal returns true if stdout is a terminal.
func StdoutIsTerminal() bool {
	return IsTerminal(os.Stdout.Fd())
}
