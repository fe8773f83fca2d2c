package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

var (
	cfgFile string
	profile string
)

var rootCmd = &cobra.Command{
	Use:   "crmcal",
	Short: "Google and Outlook calendars for your real-estate CRM",
	Long: `crmcal links an agent's Google Calendar or Outlook calendar to the CRM.

It runs the OAuth relay that holds the provider client secrets, connects
accounts through the browser consent flow, and shows upcoming showings,
open houses and closings in day, week and month views.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/crmcal/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "config profile to use (e.g., brokerage, personal)")
	rootCmd.PersistentFlags().String("provider", "google", "Calendar provider: google or microsoft")
	rootCmd.PersistentFlags().String("relay-url", "", "Base URL of the OAuth relay")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("relay_url", rootCmd.PersistentFlags().Lookup("relay-url"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// A missing .env is normal outside development.
	_ = gotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(filepath.Join(xdg.ConfigHome, "crmcal"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CRMCAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Provider secrets keep their conventional names.
	viper.BindEnv("google.client_id", "GOOGLE_CLIENT_ID")
	viper.BindEnv("google.client_secret", "GOOGLE_CLIENT_SECRET")
	viper.BindEnv("microsoft.client_id", "MICROSOFT_CLIENT_ID")
	viper.BindEnv("microsoft.client_secret", "MICROSOFT_CLIENT_SECRET")
	viper.BindEnv("microsoft.tenant_id", "MICROSOFT_TENANT_ID")

	viper.SetDefault("provider", "google")
	viper.SetDefault("relay_url", "http://localhost:8080")
	viper.SetDefault("redirect_uri", "http://localhost:8085/")
	viper.SetDefault("callback_origin", "http://localhost:8085")
	viper.SetDefault("relay.addr", ":8080")
	viper.SetDefault("store.backend", "file")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("microsoft.timezone", "UTC")
	viper.SetDefault("view", "week")

	if err := viper.ReadInConfig(); err == nil {
		logrus.WithField("file", viper.ConfigFileUsed()).Debug("Using config file")
	}

	applyProfile()
}

// profileSettings can be overridden per profile.
var profileSettings = []string{
	"provider",
	"relay_url",
	"redirect_uri",
	"callback_origin",
	"production_host",
	"view",
	"store.backend",
	"store.dir",
	"store.passphrase",
	"notify.desktop",
	"log_level",
}

// applyProfile merges profile-specific settings over defaults
func applyProfile() {
	activeProfile := profile
	if activeProfile == "" {
		activeProfile = viper.GetString("default_profile")
	}
	if activeProfile == "" {
		return
	}

	profileKey := "profiles." + activeProfile
	if !viper.IsSet(profileKey) {
		fmt.Fprintf(os.Stderr, "Warning: profile '%s' not found in config\n", activeProfile)
		return
	}
	logrus.WithField("profile", activeProfile).Debug("Using profile")

	// Explicit CLI flags win over the profile.
	for _, key := range profileSettings {
		profileSettingKey := profileKey + "." + key
		if viper.IsSet(profileSettingKey) && !isFlagExplicitlySet(key) {
			viper.Set(key, viper.Get(profileSettingKey))
		}
	}
}

func isFlagExplicitlySet(viperKey string) bool {
	flagName := strings.ReplaceAll(viperKey, "_", "-")
	f := rootCmd.PersistentFlags().Lookup(flagName)
	return f != nil && f.Changed
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)

	if viper.GetString("log_format") == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// expandPath expands ~ to the home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// logFileOrDiscard returns the configured log_file, or io.Discard.
func logFileOrDiscard() io.Writer {
	path := expandPath(viper.GetString("log_file"))
	if path == "" {
		return io.Discard
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return io.Discard
	}
	return f
}
