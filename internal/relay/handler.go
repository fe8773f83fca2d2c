package relay

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/theakshaypant/crmcal/internal/core"
)

// Handler serves one provider's relay endpoint.
type Handler struct {
	provider core.Provider
	now      func() time.Time
}

// NewHandler returns the endpoint handler for provider.
func NewHandler(provider core.Provider) *Handler {
	return &Handler{provider: provider, now: time.Now}
}

// Serve dispatches on the request's action.
func (h *Handler) Serve(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		// An unreadable body behaves like an empty one and falls through to
		// "Invalid action".
		req = Request{}
	}

	log := requestLogger(c).WithFields(logrus.Fields{
		"provider": h.provider.Kind(),
		"action":   req.Action,
	})

	if !h.provider.Configured() {
		log.Error("Client credentials missing")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: fmt.Sprintf("Server configuration error: %s credentials not configured", h.provider.Name()),
		})
		return
	}

	switch req.Action {
	case ActionGetAuthURL:
		h.getAuthURL(c, log, req)
	case ActionExchangeCode:
		h.exchangeCode(c, log, req)
	case ActionRefreshToken:
		h.refreshToken(c, log, req)
	case ActionGetEvents:
		h.getEvents(c, log, req)
	case ActionGetProfile:
		h.getProfile(c, log, req)
	default:
		log.Warn("Invalid action")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid action"})
	}
}

func (h *Handler) getAuthURL(c *gin.Context, log *logrus.Entry, req Request) {
	authURL := h.provider.AuthURL(req.RedirectURI)
	log.WithField("redirect_uri", req.RedirectURI).Info("Built authorization URL")
	c.JSON(http.StatusOK, AuthURLResponse{AuthURL: authURL})
}

func (h *Handler) exchangeCode(c *gin.Context, log *logrus.Entry, req Request) {
	if req.Code == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Authorization code is required"})
		return
	}
	if req.RedirectURI == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Redirect URI is required"})
		return
	}

	// Authorization codes are single-use; never retry this call.
	grant, err := h.provider.Exchange(c.Request.Context(), req.Code, req.RedirectURI)
	if err != nil {
		if pe, ok := core.AsProviderError(err); ok {
			log.WithFields(logrus.Fields{
				"status": pe.Status,
				"code":   pe.Code,
			}).Warn("Token exchange rejected")
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: pe.Error(),
				Hint:  fmt.Sprintf("Ensure the redirect URI matches exactly what's registered in %s", h.provider.Console()),
			})
			return
		}
		h.internalError(c, log, err)
		return
	}

	log.WithField("expires_in", grant.ExpiresIn).Info("Token exchange succeeded")
	c.JSON(http.StatusOK, ExchangeResponse{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresIn:    grant.ExpiresIn,
	})
}

func (h *Handler) refreshToken(c *gin.Context, log *logrus.Entry, req Request) {
	if req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Refresh token is required"})
		return
	}

	grant, err := h.provider.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if pe, ok := core.AsProviderError(err); ok {
			log.WithField("code", pe.Code).Warn("Token refresh rejected")
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: pe.Error()})
			return
		}
		h.internalError(c, log, err)
		return
	}

	log.WithField("rotated", grant.RefreshToken != "").Info("Token refresh succeeded")
	c.JSON(http.StatusOK, RefreshResponse{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresIn:    grant.ExpiresIn,
	})
}

func (h *Handler) getEvents(c *gin.Context, log *logrus.Entry, req Request) {
	if req.AccessToken == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Access token required"})
		return
	}

	events, err := h.provider.FetchEvents(c.Request.Context(), req.AccessToken, h.now())
	if err != nil {
		h.upstreamError(c, log, err, "Failed to fetch calendar events")
		return
	}
	if events == nil {
		events = []core.Event{}
	}

	log.WithField("count", len(events)).Info("Fetched events")
	c.JSON(http.StatusOK, EventsResponse{Events: events})
}

func (h *Handler) getProfile(c *gin.Context, log *logrus.Entry, req Request) {
	if req.AccessToken == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Access token required"})
		return
	}

	profile, err := h.provider.FetchProfile(c.Request.Context(), req.AccessToken)
	if err != nil {
		h.upstreamError(c, log, err, "Failed to fetch profile")
		return
	}

	log.Info("Fetched profile")
	c.JSON(http.StatusOK, ProfileResponse{Profile: *profile})
}

// upstreamError passes the provider's HTTP status through so a client can
// tell an expired token (401) from other failures.
func (h *Handler) upstreamError(c *gin.Context, log *logrus.Entry, err error, message string) {
	pe, ok := core.AsProviderError(err)
	if !ok || pe.Status < 400 {
		h.internalError(c, log, err)
		return
	}
	log.WithError(err).WithField("status", pe.Status).Warn(message)
	c.JSON(pe.Status, ErrorResponse{Error: message, Status: pe.Status})
}

func (h *Handler) internalError(c *gin.Context, log *logrus.Entry, err error) {
	log.WithError(err).Error("Relay request failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}
