package ui

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/venudhannoju-glitch/ChitChat/internal/session"
)

// StatsView renders server room statistics as a table.
func StatsView(server string, s session.Stats) string {
	t := table.NewWriter()
	t.SetTitle("Room statistics")
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.Style().Options.SeparateRows = false

	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Live rooms", s.Rooms},
		{"Waiting for partner", s.Waiting},
		{"Paired", s.Paired},
		{"Seated connections", s.Connections},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: text.Colors{text.Bold}},
		{Number: 2, Align: text.AlignRight},
	})

	return MutedStyle.Render("Server: "+server) + "\n" + t.Render()
}

// RoomInfo is the banner shown once a room code is known.
type RoomInfo struct {
	Code    string
	Created bool
}

func (r RoomInfo) View() string {
	if !r.Created {
		return RoomBoxStyle.Render(fmt.Sprintf("%s Joined room %s", IconRoom, BoldStyle.Foreground(Primary).Render(r.Code)))
	}

	content := fmt.Sprintf("%s Room Created!\n\n%s Code:  %s\n%s Share it with your partner: chitchat chat --join %s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.Code),
		IconPeer, r.Code,
	)
	return RoomBoxStyle.Render(content)
}
