package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/JaykaiDos/signaling-server/internal/relay"
)

// RenderRoomsTable renders the admin room listing.
func RenderRoomsTable(rooms []relay.RoomInfo, connections int) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Color.Header = text.Colors{text.FgCyan, text.Bold}
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault

	t.AppendHeader(table.Row{"#", "Room", "Host", "Members", "Size", "Age"})
	for i, r := range rooms {
		t.AppendRow(table.Row{
			i + 1,
			TruncateString(r.ID, 32),
			shortID(r.Host),
			memberList(r.Members),
			r.Size,
			FormatAge(r.Age),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d rooms", len(rooms)), fmt.Sprintf("%d connections", connections)})
	return t.Render()
}

func memberList(members []string) string {
	if len(members) == 0 {
		return "-"
	}
	short := make([]string, len(members))
	for i, m := range members {
		short[i] = shortID(m)
	}
	return TruncateString(strings.Join(short, ", "), 40)
}

// shortID keeps the first block of a uuid.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// FormatAge renders a room age at minute or second resolution.
func FormatAge(d time.Duration) string {
	if d < time.Minute {
		return d.Round(time.Second).String()
	}
	return d.Round(time.Minute).String()
}

// TruncateString shortens s to max runes with an ellipsis.
func TruncateString(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
