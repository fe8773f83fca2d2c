package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/crmcal/internal/calclient"
	"github.com/theakshaypant/crmcal/internal/calview"
	"github.com/theakshaypant/crmcal/internal/core"
	"github.com/theakshaypant/crmcal/internal/util"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List upcoming events by day",
	Long: `List the connected calendar's upcoming events over a day, week or month.

Examples:
  crmcal events                      # this week
  crmcal events --view=month
  crmcal events --view=day --date=2026-01-14`,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().String("view", "", "View: day, week or month (default week)")
	eventsCmd.Flags().String("date", "", "Anchor date (YYYY-MM-DD, 'today', 'tomorrow')")
	eventsCmd.Flags().Bool("all", false, "Show every event instead of the per-day display limit")
	viper.BindPFlag("view", eventsCmd.Flags().Lookup("view"))
}

func runEvents(cmd *cobra.Command, args []string) error {
	now := time.Now()

	mode, err := calview.ParseMode(viper.GetString("view"))
	if err != nil {
		return err
	}
	anchor := core.DateOf(now)
	if s, _ := cmd.Flags().GetString("date"); s != "" {
		if anchor, err = parseDate(s, now); err != nil {
			return err
		}
	}
	showAll, _ := cmd.Flags().GetBool("all")

	s, err := openSession(cliNotifier())
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.client.Mount(cmd.Context(), nil); err != nil {
		return err
	}
	snap := s.client.Snapshot()
	if snap.State != calclient.Connected {
		return fmt.Errorf("%s is not connected\n\nRun 'crmcal connect' to link it", s.client.Provider().Label())
	}

	view := calview.ViewState{Mode: mode, Anchor: anchor}
	fmt.Printf("📅 %s · %s\n", view.Label(), s.client.Provider().Label())
	fmt.Println("─────────────────────────────────────────────────")

	total := 0
	for _, cell := range calview.Cells(view, snap.Events, now) {
		if !cell.InMonth || len(cell.Events) == 0 {
			continue
		}
		total += len(cell.Events)
		printCell(cell, mode, showAll)
	}

	if total == 0 {
		fmt.Println("No events in this period.")
		return nil
	}
	fmt.Println("─────────────────────────────────────────────────")
	fmt.Printf("Total: %d events\n", total)
	return nil
}

func printCell(cell calview.Cell, mode calview.Mode, showAll bool) {
	day := cell.Date.Time(time.UTC).Format("Mon, Jan 2")
	if cell.Today {
		day += " (today)"
	}
	fmt.Println(day)

	events := cell.Shown
	if showAll {
		events = cell.Events
	}
	for _, e := range events {
		printEvent(e)
	}
	if !showAll {
		if more := cell.OverflowLabel(mode); more != "" {
			fmt.Printf("  %s\n", more)
		}
	}
	fmt.Println()
}

func printEvent(e core.Event) {
	fmt.Printf("  %-8s %s\n", calview.FormatEventTime(e), e.Title)
	if e.Location != "" {
		fmt.Printf("           📍 %s\n", e.Location)
	}
	if e.ExternalLink != "" {
		fmt.Printf("           🔗 %s\n", util.MakeHyperlink(e.ExternalLink, "Open in calendar"))
	}
}

// parseDate parses YYYY-MM-DD or a relative day name.
func parseDate(s string, now time.Time) (core.Date, error) {
	today := core.DateOf(now)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD, today, tomorrow or yesterday)", s)
	}
	return d, nil
}
