package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theakshaypant/crmcal/internal/calclient"
	"github.com/theakshaypant/crmcal/internal/util"
)

const connectTimeout = 5 * time.Minute

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect your calendar",
	Long: `Connect your Google Calendar or Outlook calendar.

  1. Starts a local server to receive the OAuth redirect
  2. Opens your browser on the provider's consent page
  3. Exchanges the code through the relay and stores the tokens

The provider is chosen with --provider or the profile's provider setting.`,
	RunE: runConnect,
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the stored calendar tokens",
	RunE:  runDisconnect,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the calendar connection",
	RunE:  runStatus,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the stored access token",
}

var tokenRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Get a new access token with the stored refresh token",
	RunE:  runTokenRefresh,
}

func init() {
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenRefreshCmd)
}

// connectViaBrowser runs one consent round trip: listen for the redirect,
// open the consent page, wait for the callback to be handled.
func connectViaBrowser(ctx context.Context, client *calclient.Client) error {
	cb, err := calclient.NewCallbackServer(client)
	if err != nil {
		return err
	}
	if err := cb.Start(); err != nil {
		return err
	}
	defer cb.Shutdown(context.Background())

	if err := client.Connect(ctx); err != nil {
		return err
	}
	return cb.Wait(ctx, connectTimeout)
}

func runConnect(cmd *cobra.Command, args []string) error {
	s, err := openSession(cliNotifier())
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("Opening browser for %s authorization...\n", s.client.Provider().Label())
	fmt.Printf("Waiting for the redirect on %s\n", s.client.RedirectURI())

	if err := connectViaBrowser(cmd.Context(), s.client); err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}

	snap := s.client.Snapshot()
	if snap.State != calclient.Connected {
		return fmt.Errorf("connect failed: calendar is not connected")
	}
	fmt.Printf("✓ %s connected\n", s.client.Provider().Label())
	if p := snap.Profile; p != nil {
		fmt.Printf("  %s <%s>\n", p.Name, p.Email)
	}
	fmt.Printf("  %d upcoming events\n", len(snap.Events))
	return nil
}

func runDisconnect(cmd *cobra.Command, args []string) error {
	s, err := openSession(cliNotifier())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.client.Disconnect(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("✓ %s disconnected\n", s.client.Provider().Label())
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession(cliNotifier())
	if err != nil {
		return err
	}
	defer s.Close()

	label := s.client.Provider().Label()
	rec, err := s.store.Load(cmd.Context())
	if err != nil {
		return err
	}
	if rec == nil {
		fmt.Printf("%s: not connected\n", label)
		fmt.Println("\nRun 'crmcal connect' to link it.")
		return nil
	}

	fmt.Printf("%s: connected\n", label)
	fmt.Println("─────────────────────────────────────────────────")
	fmt.Printf("  Access token:  %s\n", util.MaskSecret(rec.AccessToken))
	fmt.Printf("  Refresh token: %s\n", util.MaskSecret(rec.RefreshToken))
	if rec.ExpiresAt > 0 {
		expiry := rec.Expiry()
		state := "valid"
		if time.Now().After(expiry) {
			state = "expired"
		}
		fmt.Printf("  Expires:       %s (%s)\n", expiry.Local().Format("Mon, Jan 2 3:04 PM"), state)
	}

	if _, err := s.client.Mount(cmd.Context(), nil); err != nil {
		return err
	}
	snap := s.client.Snapshot()
	if snap.State != calclient.Connected {
		fmt.Println("\nThe provider rejected the stored token; run 'crmcal connect' again.")
		return nil
	}
	if p := snap.Profile; p != nil {
		fmt.Printf("  Account:       %s <%s>\n", p.Name, p.Email)
	}
	fmt.Printf("  Upcoming:      %d events\n", len(snap.Events))
	return nil
}

func runTokenRefresh(cmd *cobra.Command, args []string) error {
	s, err := openSession(cliNotifier())
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.client.RefreshAccessToken(cmd.Context())
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	fmt.Printf("✓ Access token refreshed, valid until %s\n", rec.Expiry().Local().Format("Mon, Jan 2 3:04 PM"))
	return nil
}
