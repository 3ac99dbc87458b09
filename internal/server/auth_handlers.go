package server

import (
	"log/slog"
	"time"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	// Identifier is a username or an email. Email is accepted as an alias.
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Register handles POST /api/auth/register
// @Summary User signup
// @Description Register a new user account across the main and auth stores
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string} true "Signup request"
// @Success 201 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := s.registrar.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	return s.respondWithToken(c, fiber.StatusCreated, user)
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate by username or email and return a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{identifier=string,password=string} true "Login credentials"
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" {
		identifier = req.Username
	}

	user, err := s.authenticator.Login(c.UserContext(), service.LoginInput{
		Identifier: identifier,
		Password:   req.Password,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	return s.respondWithToken(c, fiber.StatusOK, user)
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revoke the bearer token
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if raw, ok := middleware.BearerToken(c); ok {
		if err := s.tokens.Revoke(c.UserContext(), raw); err != nil {
			observability.Logger.WarnContext(c.UserContext(), "token revocation failed",
				slog.Uint64("user_id", uint64(currentUserID(c))),
				slog.String("error", err.Error()),
			)
		}
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

func (s *Server) respondWithToken(c *fiber.Ctx, status int, user *models.User) error {
	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return models.Respond(c, models.NewInternalError(err))
	}
	return c.Status(status).JSON(authResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		User:      user,
	})
}
