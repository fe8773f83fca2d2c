package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/crmcal/internal/adapter/google"
	"github.com/theakshaypant/crmcal/internal/adapter/outlook"
	"github.com/theakshaypant/crmcal/internal/relay"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the OAuth relay",
	Long: `Run the OAuth relay for Google and Microsoft.

The relay is the only place that holds the provider client secrets. It serves
POST /functions/v1/google-calendar and POST /functions/v1/microsoft-calendar
and forwards each action to the provider.

Secrets are read from GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET,
MICROSOFT_CLIENT_ID and MICROSOFT_CLIENT_SECRET (a .env file works too).`,
	RunE: runRelay,
}

func init() {
	rootCmd.AddCommand(relayCmd)

	relayCmd.Flags().String("addr", "", "Listen address (default :8080)")
	viper.BindPFlag("relay.addr", relayCmd.Flags().Lookup("addr"))
}

func runRelay(cmd *cobra.Command, args []string) error {
	gin.SetMode(gin.ReleaseMode)
	if viper.GetString("log_format") == "" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	googleAdapter := google.NewGoogleAdapter(google.Config{
		ClientID:           viper.GetString("google.client_id"),
		ClientSecret:       viper.GetString("google.client_secret"),
		DefaultRedirectURI: viper.GetString("redirect_uri"),
	})
	outlookAdapter := outlook.NewOutlookAdapter(outlook.Config{
		ClientID:           viper.GetString("microsoft.client_id"),
		ClientSecret:       viper.GetString("microsoft.client_secret"),
		TenantID:           viper.GetString("microsoft.tenant_id"),
		DefaultRedirectURI: viper.GetString("redirect_uri"),
		Timezone:           viper.GetString("microsoft.timezone"),
	})

	for _, p := range []interface {
		Name() string
		Configured() bool
	}{googleAdapter, outlookAdapter} {
		if !p.Configured() {
			logrus.WithField("provider", p.Name()).Warn("Credentials not configured; requests will fail with 500")
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return relay.Serve(ctx, viper.GetString("relay.addr"), relay.NewRouter(googleAdapter, outlookAdapter))
}
