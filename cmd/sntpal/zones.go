package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/AndrewLester/sntpal/internal/ui"
	"github.com/AndrewLester/sntpal/pkg/civil"
)

func newZonesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "zones",
		Short: "List the timezone indexes accepted by --timezone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), zonesTable().String())
			return err
		},
	}
}

func formatOffset(offset int32) string {
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}

	return fmt.Sprintf("%c%02d:%02d", sign, offset/3600, offset%3600/60)
}

func zonesTable() *table.Table {
	rows := [][]string{}
	for i, zone := range civil.Zones() {
		rows = append(rows, []string{strconv.Itoa(i), formatOffset(zone.Offset), zone.Name})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ui.TableGray)).
		Headers("Index", "Offset", "Name").
		Rows(rows...)
}
