package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"ticketdesk-backend/internal/mailbox/usecase"
)

// AuthHandler drives the Google OAuth connect flow and stores the resulting
// session for the sync engine.
type AuthHandler struct {
	oauth   *oauth2.Config
	session *usecase.SessionSource
}

func NewAuthHandler(oauth *oauth2.Config, session *usecase.SessionSource) *AuthHandler {
	return &AuthHandler{oauth: oauth, session: session}
}

func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth/google")
	{
		auth.GET("/login", h.Login)
		auth.GET("/callback", h.Callback)
		auth.GET("/status", h.Status)
		auth.DELETE("", h.Disconnect)
	}
}

// Login redirects the browser to Google's consent screen. Offline access
// with forced consent guarantees a refresh token on first connect.
func (h *AuthHandler) Login(c *gin.Context) {
	url := h.oauth.AuthCodeURL(
		"state",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing authorization code"})
		return
	}

	token, err := h.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "token exchange failed: " + err.Error()})
		return
	}
	if err := h.session.Save(token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true})
}

func (h *AuthHandler) Status(c *gin.Context) {
	_, err := h.session.Credentials()
	c.JSON(http.StatusOK, gin.H{"connected": err == nil})
}

func (h *AuthHandler) Disconnect(c *gin.Context) {
	if err := h.session.Disconnect(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": false})
}
