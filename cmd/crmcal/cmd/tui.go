package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/crmcal/internal/notify"
	"github.com/theakshaypant/crmcal/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the interactive calendar",
	Long:  `Launch an interactive terminal calendar with day, week and month views.`,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Log lines would tear the alt screen; toasts take their place.
	logrus.SetOutput(logFileOrDiscard())

	toasts := notify.NewChannel(16)
	s, err := openSession(notify.Multi{toasts, notify.NewDesktop(viper.GetBool("notify.desktop"))})
	if err != nil {
		return err
	}
	defer s.Close()

	m := tui.NewModel(tui.Options{
		Client: s.client,
		Connect: func(ctx context.Context) error {
			return connectViaBrowser(ctx, s.client)
		},
		Toasts: toasts,
	})

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
