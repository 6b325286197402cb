// Package ui provides styled terminal output for the one-shot devmon commands.
//
// Unlike the interactive monitor in package tui, these components follow a
// "print and exit" pattern: scan and bridges render a header, a table and a
// result box and then return.
//
// # Components
//
//   - Header: Command banner showing the operation name and its parameters
//   - Result: Success, warning or failure box with troubleshooting tips
//   - RenderDeviceTable: Discovered devices as a lipgloss table
//   - Printer: Writes the above to any io.Writer at the terminal width
//
// # Usage Pattern
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader(ui.NewHeader("Device Scan", "devmon scan",
//	    ui.Param{Key: "Port", Value: "36721"},
//	    ui.Param{Key: "Duration", Value: "5s"},
//	))
//	p.PrintDevices(svc.Devices(), time.Since(start))
//
// # Logging Integration
//
// This package expects logging to be controlled via the DEVMON_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated output to be displayed cleanly.
package ui
