package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/theakshaypant/crmcal/internal/calclient"
	"github.com/theakshaypant/crmcal/internal/core"
	"github.com/theakshaypant/crmcal/internal/notify"
	"github.com/theakshaypant/crmcal/internal/relay"
	"github.com/theakshaypant/crmcal/internal/tokenstore"
)

// session bundles a calendar client with the backend it persists to.
type session struct {
	client  *calclient.Client
	store   *tokenstore.Store
	backend tokenstore.Backend
}

func (s *session) Close() error {
	return s.backend.Close()
}

func providerKind() (core.ProviderKind, error) {
	switch p := viper.GetString("provider"); p {
	case "google", "":
		return core.ProviderGoogle, nil
	case "microsoft", "outlook":
		return core.ProviderMicrosoft, nil
	default:
		return "", fmt.Errorf("unknown provider: %s (supported: google, microsoft)", p)
	}
}

func redirectPolicy() calclient.RedirectPolicy {
	return calclient.RedirectPolicy{
		PinnedURI:      viper.GetString("redirect_uri"),
		ProductionHost: viper.GetString("production_host"),
	}
}

// cliNotifier is what commands outside the TUI report through.
func cliNotifier() notify.Notifier {
	return notify.Multi{
		notify.NewLogNotifier(logrus.WithField("component", "calendar")),
		notify.NewDesktop(viper.GetBool("notify.desktop")),
	}
}

// openSession builds the calendar client for the configured provider.
func openSession(n notify.Notifier) (*session, error) {
	kind, err := providerKind()
	if err != nil {
		return nil, err
	}

	backend, err := tokenstore.Open(tokenstore.Config{
		Backend:    viper.GetString("store.backend"),
		Dir:        expandPath(viper.GetString("store.dir")),
		Passphrase: viper.GetString("store.passphrase"),
	})
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}
	store := tokenstore.New(backend, tokenstore.KeyFor(kind))

	rc := relay.NewClient(relay.EndpointFor(viper.GetString("relay_url"), kind), nil)
	if key := viper.GetString("relay_api_key"); key != "" {
		rc = rc.WithHeader("apikey", key)
	}

	client := calclient.New(calclient.Options{
		Provider:    kind,
		Relay:       rc,
		Store:       store,
		Notifier:    n,
		Opener:      calclient.BrowserOpener,
		RedirectURI: redirectPolicy().RedirectURI(kind, viper.GetString("callback_origin")),
	})
	return &session{client: client, store: store, backend: backend}, nil
}
