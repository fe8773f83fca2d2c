package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage configuration profiles",
	Long: `Manage configuration profiles for different accounts and relays.

Profiles let one install switch between, say, a brokerage Outlook account
and a personal Google Calendar.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE:  runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show profile settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfileShow,
}

var profileAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileAdd,
}

var profileSetDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileSetDefault,
}

var profileEditCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Edit a profile's settings",
	Long: `Edit a profile's settings using flags.

Example:
  crmcal profile edit brokerage --provider=microsoft --view=month
  crmcal profile edit personal --store-backend=badger`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileEdit,
}

// profileFlag maps a profile command flag to its config key.
type profileFlag struct {
	flag   string
	key    string
	usage  string
	isBool bool
}

var profileFlags = []profileFlag{
	{flag: "provider", key: "provider", usage: "Calendar provider: google or microsoft"},
	{flag: "relay-url", key: "relay_url", usage: "Base URL of the OAuth relay"},
	{flag: "redirect-uri", key: "redirect_uri", usage: "Redirect URI registered with the provider"},
	{flag: "callback-origin", key: "callback_origin", usage: "Origin the local redirect listener serves"},
	{flag: "production-host", key: "production_host", usage: "Host of the production deployment"},
	{flag: "view", key: "view", usage: "Default view: day, week or month"},
	{flag: "store-backend", key: "store.backend", usage: "Token store backend: file or badger"},
	{flag: "store-dir", key: "store.dir", usage: "Token store directory"},
	{flag: "desktop-notify", key: "notify.desktop", usage: "Send desktop notifications", isBool: true},
	{flag: "log-level", key: "log_level", usage: "Log level"},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileSetDefaultCmd)
	profileCmd.AddCommand(profileEditCmd)

	for _, c := range []*cobra.Command{profileAddCmd, profileEditCmd} {
		for _, f := range profileFlags {
			if f.isBool {
				c.Flags().Bool(f.flag, false, f.usage)
			} else {
				c.Flags().String(f.flag, "", f.usage)
			}
		}
	}
}

func runProfileList(cmd *cobra.Command, args []string) error {
	profiles := viper.GetStringMap("profiles")
	defaultProfile := viper.GetString("default_profile")

	if len(profiles) == 0 {
		fmt.Println("No profiles configured.")
		fmt.Println("\nAdd one with: crmcal profile add <name> --provider=<google|microsoft>")
		return nil
	}

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available profiles:")
	fmt.Println("─────────────────────────────────────────────────")
	for _, name := range names {
		marker := "  "
		if name == defaultProfile {
			marker = "* "
		}
		fmt.Printf("%s%s\n", marker, name)
	}
	fmt.Println("─────────────────────────────────────────────────")
	if defaultProfile != "" {
		fmt.Printf("Default: %s\n", defaultProfile)
	}
	fmt.Println("\nUse 'crmcal profile show <name>' for details")
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	var profileName string
	if len(args) > 0 {
		profileName = args[0]
	} else {
		profileName = viper.GetString("default_profile")
		if profileName == "" {
			return fmt.Errorf("no profile specified and no default profile set")
		}
	}

	profileKey := "profiles." + profileName
	if !viper.IsSet(profileKey) {
		return fmt.Errorf("profile '%s' not found", profileName)
	}

	fmt.Printf("Profile: %s\n", profileName)
	if profileName == viper.GetString("default_profile") {
		fmt.Println("(default)")
	}
	fmt.Println("─────────────────────────────────────────────────")
	for _, f := range profileFlags {
		if v := viper.Get(profileKey + "." + f.key); v != nil {
			fmt.Printf("  %s: %v\n", f.flag, v)
		}
	}
	if viper.IsSet(profileKey + ".store.passphrase") {
		fmt.Println("  store-passphrase: (set)")
	}
	fmt.Println()
	return nil
}

func runProfileAdd(cmd *cobra.Command, args []string) error {
	profileName := args[0]
	if viper.IsSet("profiles." + profileName) {
		return fmt.Errorf("profile '%s' already exists. Use 'crmcal profile edit %s' to modify it", profileName, profileName)
	}

	settings := map[string]interface{}{}
	changedProfileFlags(cmd, settings)

	if err := saveProfileToConfig(profileName, settings); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	fmt.Printf("✓ Profile '%s' created\n", profileName)
	fmt.Printf("\nUse it with: crmcal -p %s\n", profileName)
	fmt.Printf("Set as default: crmcal profile default %s\n", profileName)
	return nil
}

func runProfileSetDefault(cmd *cobra.Command, args []string) error {
	profileName := args[0]
	if !viper.IsSet("profiles." + profileName) {
		return fmt.Errorf("profile '%s' not found", profileName)
	}

	config, err := readConfigFile()
	if err != nil {
		return err
	}
	config["default_profile"] = profileName
	if err := writeConfigFile(config); err != nil {
		return fmt.Errorf("failed to set default profile: %w", err)
	}

	fmt.Printf("✓ Default profile set to '%s'\n", profileName)
	return nil
}

func runProfileEdit(cmd *cobra.Command, args []string) error {
	profileName := args[0]
	profileKey := "profiles." + profileName
	if !viper.IsSet(profileKey) {
		return fmt.Errorf("profile '%s' not found. Use 'crmcal profile add %s' to create it", profileName, profileName)
	}

	settings := map[string]interface{}{}
	for k, v := range viper.GetStringMap(profileKey) {
		settings[k] = v
	}

	if !changedProfileFlags(cmd, settings) {
		fmt.Println("No changes specified. Use flags to update settings:")
		fmt.Println("  crmcal profile edit", profileName, "--view=month --provider=microsoft")
		return nil
	}

	if err := saveProfileToConfig(profileName, settings); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	fmt.Printf("✓ Profile '%s' updated\n", profileName)
	return nil
}

// changedProfileFlags copies every flag the user set into settings, nesting
// dotted keys ("store.backend") as maps. It reports whether anything changed.
func changedProfileFlags(cmd *cobra.Command, settings map[string]interface{}) bool {
	changed := false
	for _, f := range profileFlags {
		if !cmd.Flags().Changed(f.flag) {
			continue
		}
		var val interface{}
		if f.isBool {
			val, _ = cmd.Flags().GetBool(f.flag)
		} else {
			val, _ = cmd.Flags().GetString(f.flag)
		}
		setNested(settings, f.key, val)
		changed = true
	}
	return changed
}

func setNested(m map[string]interface{}, key string, val interface{}) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = val
}

// Config file manipulation functions

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(xdg.ConfigHome, "crmcal", "config.yaml")
}

func readConfigFile() (map[string]interface{}, error) {
	data, err := os.ReadFile(getConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]interface{}), nil
		}
		return nil, err
	}

	var config map[string]interface{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	if config == nil {
		config = make(map[string]interface{})
	}
	return config, nil
}

func writeConfigFile(config map[string]interface{}) error {
	configPath := getConfigPath()
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	// Profiles may carry a store passphrase.
	return os.WriteFile(configPath, data, 0600)
}

func saveProfileToConfig(name string, settings map[string]interface{}) error {
	config, err := readConfigFile()
	if err != nil {
		return err
	}

	profiles, ok := config["profiles"].(map[string]interface{})
	if !ok {
		profiles = make(map[string]interface{})
	}
	profiles[name] = settings
	config["profiles"] = profiles

	return writeConfigFile(config)
}
