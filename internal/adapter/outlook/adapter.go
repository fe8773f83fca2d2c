package outlook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	abstractions "github.com/microsoft/kiota-abstractions-go"
	"github.com/microsoft/kiota-abstractions-go/authentication"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"

	"github.com/theakshaypant/crmcal/internal/adapter/oauthutil"
	"github.com/theakshaypant/crmcal/internal/core"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

const (
	defaultTenant   = "common"
	defaultTimezone = "UTC"
	graphBaseURL    = "https://graph.microsoft.com/v1.0"
)

var scopes = []string{"Calendars.Read", "User.Read", "offline_access"}

// Config holds the OAuth client and the endpoints the adapter talks to.
// Endpoint overrides exist for tests and sovereign clouds.
type Config struct {
	ClientID           string
	ClientSecret       string
	TenantID           string
	DefaultRedirectURI string
	// IANA zone Graph renders event times in (Prefer: outlook.timezone)
	Timezone string

	AuthURL  string
	TokenURL string
	GraphURL string

	// Base client for token calls. nil means http.DefaultClient.
	HTTPClient *http.Client
}

// staticCredential hands a caller-supplied access token to the Azure SDK's
// TokenCredential interface. The relay never refreshes on its own, so the
// token is returned as-is.
type staticCredential struct {
	token string
}

func (c staticCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	if c.token == "" {
		return azcore.AccessToken{}, errors.New("no access token")
	}
	return azcore.AccessToken{Token: c.token, ExpiresOn: time.Now().Add(time.Hour)}, nil
}

// credentialTokenProvider bridges an azcore.TokenCredential into kiota's
// AccessTokenProvider. Unlike the azure kiota provider it does not insist on
// https, which keeps local Graph mocks usable.
type credentialTokenProvider struct {
	cred  azcore.TokenCredential
	hosts *authentication.AllowedHostsValidator
}

func (p *credentialTokenProvider) GetAuthorizationToken(ctx context.Context, uri *url.URL, _ map[string]interface{}) (string, error) {
	tok, err := p.cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{"https://graph.microsoft.com/.default"},
	})
	if err != nil {
		return "", err
	}
	return tok.Token, nil
}

func (p *credentialTokenProvider) GetAllowedHostsValidator() *authentication.AllowedHostsValidator {
	return p.hosts
}

// OutlookAdapter is the relay-side Microsoft Outlook / Office 365 provider,
// built on the official Microsoft Graph SDK.
type OutlookAdapter struct {
	cfg      Config
	endpoint oauth2.Endpoint
	location *time.Location
}

var _ core.Provider = (*OutlookAdapter)(nil)

func NewOutlookAdapter(cfg Config) *OutlookAdapter {
	if cfg.TenantID == "" {
		cfg.TenantID = defaultTenant
	}
	if cfg.Timezone == "" {
		cfg.Timezone = defaultTimezone
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = graphBaseURL
	}

	endpoint := microsoft.AzureADEndpoint(cfg.TenantID)
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return &OutlookAdapter{cfg: cfg, endpoint: endpoint, location: loc}
}

func (o *OutlookAdapter) Kind() core.ProviderKind { return core.ProviderMicrosoft }
func (o *OutlookAdapter) Name() string            { return "Microsoft" }
func (o *OutlookAdapter) Console() string         { return "Azure AD" }

func (o *OutlookAdapter) Configured() bool {
	return o.cfg.ClientID != "" && o.cfg.ClientSecret != ""
}

// OAuthConfig returns the OAuth2 configuration for Microsoft identity platform.
func (o *OutlookAdapter) OAuthConfig(redirectURI string) *oauth2.Config {
	if redirectURI == "" {
		redirectURI = o.cfg.DefaultRedirectURI
	}
	return &oauth2.Config{
		ClientID:     o.cfg.ClientID,
		ClientSecret: o.cfg.ClientSecret,
		Endpoint:     o.endpoint,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
	}
}

func (o *OutlookAdapter) withClient(ctx context.Context) context.Context {
	if o.cfg.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, o.cfg.HTTPClient)
}

func (o *OutlookAdapter) AuthURL(redirectURI string) string {
	return o.OAuthConfig(redirectURI).AuthCodeURL("",
		oauth2.SetAuthURLParam("response_mode", "query"),
		oauth2.ApprovalForce,
	)
}

func (o *OutlookAdapter) Exchange(ctx context.Context, code, redirectURI string) (*core.Grant, error) {
	tok, err := o.OAuthConfig(redirectURI).Exchange(o.withClient(ctx), code)
	if err != nil {
		return nil, oauthutil.TranslateError(err)
	}
	return oauthutil.GrantFromToken(tok, ""), nil
}

func (o *OutlookAdapter) Refresh(ctx context.Context, refreshToken string) (*core.Grant, error) {
	src := o.OAuthConfig("").TokenSource(o.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, oauthutil.TranslateError(err)
	}
	return oauthutil.GrantFromToken(tok, refreshToken), nil
}

// graphClient builds a Graph client authenticating with accessToken.
func (o *OutlookAdapter) graphClient(accessToken string) (*msgraphsdk.GraphServiceClient, error) {
	provider := &credentialTokenProvider{
		cred:  staticCredential{token: accessToken},
		hosts: &authentication.AllowedHostsValidator{},
	}
	auth := authentication.NewBaseBearerTokenAuthenticationProvider(provider)
	adapter, err := msgraphsdk.NewGraphRequestAdapter(auth)
	if err != nil {
		return nil, fmt.Errorf("create graph adapter: %w", err)
	}
	adapter.SetBaseUrl(o.cfg.GraphURL)
	return msgraphsdk.NewGraphServiceClient(adapter), nil
}

// FetchProfile maps displayName to name and mail (falling back to
// userPrincipalName) to email.
func (o *OutlookAdapter) FetchProfile(ctx context.Context, accessToken string) (*core.Profile, error) {
	client, err := o.graphClient(accessToken)
	if err != nil {
		return nil, err
	}

	me, err := client.Me().Get(ctx, nil)
	if err != nil {
		return nil, translateGraphError(err)
	}

	email := derefStr(me.GetMail())
	if email == "" {
		email = derefStr(me.GetUserPrincipalName())
	}
	return &core.Profile{
		Name:  derefStr(me.GetDisplayName()),
		Email: email,
	}, nil
}

// translateGraphError extracts the HTTP status and message from Graph SDK
// failures.
func translateGraphError(err error) error {
	var odataErr *odataerrors.ODataError
	if errors.As(err, &odataErr) {
		msg := odataErr.Error()
		if main := odataErr.GetErrorEscaped(); main != nil && main.GetMessage() != nil {
			msg = *main.GetMessage()
		}
		return &core.ProviderError{Status: odataErr.ResponseStatusCode, Message: msg, Err: err}
	}

	var apiErr *abstractions.ApiError
	if errors.As(err, &apiErr) {
		return &core.ProviderError{Status: apiErr.ResponseStatusCode, Message: apiErr.Message, Err: err}
	}
	return err
}
