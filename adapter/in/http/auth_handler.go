package http

import (
	"net/url"

	"smartmail_server/adapter/out/provider/gmail"
	"smartmail_server/core/domain"
	"smartmail_server/core/service/auth"
	"smartmail_server/pkg/apperr"
	"smartmail_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AuthHandler serves the Google OAuth login flow.
type AuthHandler struct {
	gmail          *gmail.Adapter
	issuer         *auth.TokenIssuer
	spaRedirectURL string
}

func NewAuthHandler(gmailAdapter *gmail.Adapter, issuer *auth.TokenIssuer, spaRedirectURL string) *AuthHandler {
	return &AuthHandler{
		gmail:          gmailAdapter,
		issuer:         issuer,
		spaRedirectURL: spaRedirectURL,
	}
}

// RegisterRoutes registers auth routes on the given router.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	group := router.Group("/auth")
	group.Get("/google", h.GoogleLogin)
	group.Get("/google/callback", h.GoogleCallback)
}

// GoogleLogin returns the Google authorization URL for the SPA to open.
func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	state := uuid.New().String()
	return SuccessResponse(c, fiber.Map{
		"authorization_url": h.gmail.AuthCodeURL(state),
	})
}

// GoogleCallback exchanges the authorization code, resolves the user's
// identity, and redirects to the SPA with a signed session token.
func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return apperr.BadRequest("missing authorization code")
	}

	token, err := h.gmail.ExchangeCode(c.Context(), code)
	if err != nil {
		return err
	}

	email, name, err := h.gmail.GetUserInfo(c.Context(), token)
	if err != nil {
		return err
	}

	session := domain.Session{
		Email:        email,
		Name:         name,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}

	signed, err := h.issuer.Sign(session)
	if err != nil {
		return err
	}

	logger.WithField("user_email", email).Info("user authenticated")

	params := url.Values{}
	params.Set("token", signed)
	params.Set("email", email)
	params.Set("name", name)

	return c.Redirect(h.spaRedirectURL+"?"+params.Encode(), fiber.StatusFound)
}
