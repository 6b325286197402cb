// Package tui implements the interactive devmon monitor.
//
// The monitor is a single Bubble Tea screen showing the live device registry
// as a table ordered by IP. It subscribes to registry changes through the
// Source interface, so discoveries made by the background scheduler appear
// without any polling.
//
// # Key Bindings
//
//	↑/k ↓/j   move the selection
//	g         broadcast a discovery request now
//	c         clear the device list
//	enter/o   open the selected device's web page
//	y         copy the selected device's URL to the clipboard
//	q         quit
//
// # Usage
//
//	svc := discovery.NewService(cfg.Discovery)
//	if err := svc.Start(ctx); err != nil {
//	    return err
//	}
//	defer svc.Stop()
//
//	model := tui.NewMonitorModel(svc)
//	defer model.Close()
//	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
//
// # Logging
//
// The alternate screen owns stdout while the monitor runs. Log output must be
// redirected to a file (see logging.InitializeWithOutput) or disabled.
package tui
