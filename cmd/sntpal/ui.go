package main

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/AndrewLester/sntpal/internal/rpc"
	"github.com/AndrewLester/sntpal/internal/sugar"
	"github.com/AndrewLester/sntpal/internal/ui"
)

const fetchInfoPeriod = time.Second * 2

func newUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Watch the daemon's sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := sntpalUIModel{socket: socketPath(), table: setupTable()}

			_, err := sugar.RunProgramWithErrors(m)
			return err
		},
	}
}

type sntpalUIModel struct {
	socket string
	client *rpc.Client

	table        table.Model
	status       rpc.Status
	daemonStatus string

	err error
}

type dialSocketMessage *rpc.Client
type fetchStatusMessage rpc.Status
type rpcErrorMessage error
type daemonActionMessage string
type tickMsg time.Time

func dialSocketCommand(m sntpalUIModel) tea.Cmd {
	return func() tea.Msg {
		client, err := rpc.Dial(m.socket)
		if err != nil {
			return rpcErrorMessage(err)
		}

		return dialSocketMessage(client)
	}
}

func fetchStatusCommand(m sntpalUIModel) tea.Cmd {
	return func() tea.Msg {
		status, err := m.client.FetchStatus()
		if err != nil {
			return rpcErrorMessage(err)
		}

		return fetchStatusMessage(status)
	}
}

func resyncCommand(m sntpalUIModel) tea.Cmd {
	return func() tea.Msg {
		if err := m.client.Resync(); err != nil {
			return rpcErrorMessage(err)
		}

		return daemonActionMessage("Resync requested")
	}
}

func stopDaemonCommand() tea.Cmd {
	return func() tea.Msg {
		if err := killDaemon(); err != nil {
			return rpcErrorMessage(err)
		}

		return tea.Quit()
	}
}

func tickCommand(duration time.Duration) tea.Cmd {
	return tea.Tick(duration, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m sntpalUIModel) Init() tea.Cmd {
	return dialSocketCommand(m)
}

func (m sntpalUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.table.Focused() {
				m.table.Blur()
			} else {
				m.table.Focus()
			}
		case "r":
			if m.client != nil {
				return m, resyncCommand(m)
			}
		case "s":
			m.daemonStatus = "Stopping " + daemonName
			return m, stopDaemonCommand()
		case "ctrl+c", "q":
			if m.client != nil {
				m.client.Close()
			}
			return m, tea.Quit
		}

		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	case dialSocketMessage:
		m.client = msg
		return m, tickCommand(0)
	case fetchStatusMessage:
		m.status = rpc.Status(msg)

		rows := []table.Row{}
		for _, row := range statusRows(m.status, time.Now()) {
			rows = append(rows, table.Row{row.Field, row.Value})
		}
		m.table.SetRows(rows)
		return m, nil
	case daemonActionMessage:
		m.daemonStatus = string(msg)
		return m, tickCommand(0)
	case rpcErrorMessage:
		m.err = msg
		return m, tea.Quit
	case tickMsg:
		return m, tea.Batch(tickCommand(fetchInfoPeriod), fetchStatusCommand(m))
	default:
		return m, nil
	}
}

func (m sntpalUIModel) View() (s string) {
	if m.err != nil {
		return
	}

	s += ui.Title("SNTPal") + "\n"
	s += ui.TableBase(m.table.View()) + "\n\n"
	if m.daemonStatus != "" {
		s += m.daemonStatus + "\n"
	}
	s += ui.Help("q: exit, r: resync, s: stop daemon") + "\n"
	return
}

func (m sntpalUIModel) GetError() error {
	return m.err
}

func setupTable() table.Model {
	columns := []table.Column{
		{Title: "Field", Width: 16},
		{Title: "Value", Width: 40},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ui.TableGray).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(ui.AccentPink).
		Background(lipgloss.Color("70")).
		Bold(false)
	t.SetStyles(s)

	return t
}
