package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muurk/devmon/internal/protocol"
	"github.com/muurk/devmon/internal/urls"
)

// Printer provides methods for printing UI components to a writer.
// One-shot commands such as scan and bridges use it for their output.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the detected width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader renders and prints a command header
func (p *Printer) PrintHeader(h *Header) {
	p.Println(h.SetWidth(p.width).Render())
	p.Newline()
}

// PrintResult renders and prints a result box
func (p *Printer) PrintResult(r *Result) {
	p.Println(r.SetWidth(p.width).Render())
}

// PrintDevices prints the device table followed by a summary result box.
// An empty list prints a warning with network troubleshooting tips instead.
func (p *Printer) PrintDevices(devices []protocol.DeviceRecord, elapsed time.Duration) {
	if len(devices) == 0 {
		p.PrintResult(NewWarningResult("No devices answered", NoDevicesTips,
			Param{Key: "Listened", Value: elapsed.Round(time.Millisecond).String()}))
		return
	}

	p.Println(RenderDeviceTable(devices, time.Now()))
	p.Newline()

	title := fmt.Sprintf("%d device(s) found", len(devices))
	p.PrintResult(NewSuccessResult(title,
		Param{Key: "Listened", Value: elapsed.Round(time.Millisecond).String()}))
}

// PrintJSON writes v as indented JSON
func (p *Printer) PrintJSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NoDevicesTips are shown when a scan finishes with an empty registry
var NoDevicesTips = []string{
	"Check the devices are powered and on this network segment",
	"Broadcasts are not forwarded across routers or most VPNs",
	"Allow UDP port 36721 through the local firewall",
	"Try --broadcast with the subnet broadcast address (e.g. 192.168.1.255)",
	"More help: " + urls.NetworkTroubleshooting,
}

// BindFailureTips are shown when the discovery socket cannot be opened
var BindFailureTips = []string{
	"Another devmon instance may already be listening",
	"Ports below 1024 need elevated privileges",
	"Check --bind names an address on this machine",
	"More help: " + urls.PortConflicts,
}
