package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/devmon/internal/protocol"
)

// DeviceColumns are the column titles of the device table, in order
var DeviceColumns = []string{"ID", "IP", "MAC", "TCP PORT", "BAUD", "LAST SEEN"}

// DeviceRow returns the table cells for one device. now is used to compute
// the last-seen age.
func DeviceRow(d protocol.DeviceRecord, now time.Time) []string {
	return []string{
		strconv.Itoa(int(d.DeviceID)),
		d.IP,
		d.MACString(),
		strconv.Itoa(int(d.TCPPort)),
		strconv.FormatUint(uint64(d.UARTBaud), 10),
		FormatAge(now.Sub(d.LastSeen)),
	}
}

// RenderDeviceTable renders devices as a bordered table in the given order
func RenderDeviceTable(devices []protocol.DeviceRecord, now time.Time) string {
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, DeviceRow(d, now))
	}
	return RenderTable(DeviceColumns, rows)
}

// RenderTable renders rows under headers with the shared table styling
func RenderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(PrimaryColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		}).
		Render()
}

// FormatAge renders a duration as a short human age ("just now", "12s ago",
// "3m ago", "2h ago")
func FormatAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	default:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	}
}
