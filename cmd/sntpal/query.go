package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/AndrewLester/sntpal/internal/sugar"
	"github.com/AndrewLester/sntpal/internal/ui"
	"github.com/AndrewLester/sntpal/pkg/civil"
	"github.com/AndrewLester/sntpal/pkg/sntpal"
)

const (
	padding  = 10
	maxWidth = 80
)

func newQueryCommand() *cobra.Command {
	var plain, verify bool

	cmd := &cobra.Command{
		Use:   "query [server]",
		Short: "Ask a server for the current time once",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := cfg.Config
			if len(args) == 1 {
				query.Server = args[0]
			}

			if query.Server == "" {
				return fmt.Errorf("%w: no server given", sntpal.ErrInvalidServer)
			}

			server, err := sntpal.ResolveServer(query.Server)
			if err != nil {
				return err
			}
			query.Server = server

			if plain {
				return runPlainQuery(cmd.Context(), cmd.OutOrStdout(), query, verify)
			}

			return handleQueryCommand(cmd.Context(), query, verify)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&plain, "plain", false, "print the result without the progress UI")
	flags.BoolVar(&verify, "verify", false, "cross-check the result against a full NTP client")
	flags.IntP("timezone", "z", 0, "timezone index, see `sntpal zones`")
	flags.Uint16("retries", 0, "maximum number of requests")
	flags.Uint16("polls-per-retry", 0, "polls between retransmissions")

	v.BindPFlag("timezone", flags.Lookup("timezone"))               //nolint:errcheck
	v.BindPFlag("retry_cap", flags.Lookup("retries"))               //nolint:errcheck
	v.BindPFlag("polls_per_retry", flags.Lookup("polls-per-retry")) //nolint:errcheck

	return cmd
}

func runPlainQuery(ctx context.Context, out io.Writer, query sntpal.Config, verify bool) error {
	result, err := sntpal.Query(ctx, query, sntpal.WithLogger(logger.Named("query")))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, formatResult(query, result, verify))

	return err
}

func formatResult(query sntpal.Config, result *sntpal.QueryResult, verify bool) string {
	zone, _ := civil.Zone(query.Timezone)

	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", result.DateTime, zone.Name)
	fmt.Fprintf(&b, "server %s, %d request(s), %d poll(s)", query.Server, result.Requests, result.Polls)

	if verify {
		host, _, _ := strings.Cut(query.Server, ":")

		skew, err := sntpal.Verify(host, result.DateTime, query.Timezone, nil)
		if err != nil {
			fmt.Fprintf(&b, "\nverify: %v", err)
		} else {
			fmt.Fprintf(&b, "\nverify: %+v from reference client", skew)
		}
	}

	return b.String()
}

func handleQueryCommand(ctx context.Context, query sntpal.Config, verify bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := queryCommandModel{
		ctx:      ctx,
		query:    query,
		verify:   verify,
		requests: make(chan uint16, 1),
	}
	m.resetProgress()

	result, err := sugar.RunProgramWithErrors(m)
	if err != nil {
		return err
	}

	if m, ok := result.(queryCommandModel); ok && m.result != "" {
		fmt.Println(m.result)
	}

	return nil
}

type queryCommandModel struct {
	ctx      context.Context
	progress progress.Model
	query    sntpal.Config
	verify   bool

	requests chan uint16
	sent     uint16

	result string
	err    error
}

type queryResultMessage string
type queryErrorMessage error
type progressUpdateMessage uint16

func queryCommand(m queryCommandModel) tea.Cmd {
	return func() tea.Msg {
		result, err := sntpal.Query(m.ctx, m.query,
			sntpal.WithLogger(logger.Named("query")),
			sntpal.WithProgress(m.requests),
		)
		if err != nil {
			return queryErrorMessage(err)
		}

		return queryResultMessage(formatResult(m.query, result, m.verify))
	}
}

func progressListenCommand(m queryCommandModel) tea.Cmd {
	return func() tea.Msg {
		select {
		case sent := <-m.requests:
			return progressUpdateMessage(sent)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *queryCommandModel) resetProgress() {
	m.progress = progress.New(progress.WithScaledGradient(string(ui.AccentTeal), string(ui.AccentBlue)))
}

func (m queryCommandModel) retryCap() uint16 {
	if m.query.RetryCap == 0 {
		return sntpal.DefaultRetryCap
	}
	return m.query.RetryCap
}

func (m queryCommandModel) Init() tea.Cmd {
	return tea.Batch(queryCommand(m), progressListenCommand(m))
}

func (m queryCommandModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.progress.Width = msg.Width - padding*2 - 4
		if m.progress.Width > maxWidth {
			m.progress.Width = maxWidth
		}
		return m, nil
	case progressUpdateMessage:
		m.sent = uint16(msg)
		return m, progressListenCommand(m)
	case queryResultMessage:
		m.result = string(msg)
		return m, tea.Quit
	case queryErrorMessage:
		m.err = msg
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m queryCommandModel) View() (s string) {
	if m.err != nil || m.result != "" {
		return
	}

	s += ui.Title("SNTPal - Query "+m.query.Server) + "\n\n"
	s += m.progress.ViewAs(float64(m.sent)/float64(m.retryCap())) + "\n"
	s += ui.Help(fmt.Sprintf("request %d of %d", m.sent, m.retryCap())) + "\n\n"
	s += ui.Help("q: exit") + "\n"
	return
}

func (m queryCommandModel) GetError() error {
	return m.err
}

var _ sugar.ErrorModel = queryCommandModel{}
