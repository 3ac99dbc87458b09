package server

import (
	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ToggleAdmin handles POST /api/admin/users/:id/toggle-admin
// @Summary Grant or revoke admin rights
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Target user ID"
// @Success 200 {object} object{user_id=int,is_admin=bool}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/toggle-admin [post]
func (s *Server) ToggleAdmin(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	result, err := s.admin.ToggleAdmin(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(result)
}

// ListAdmins handles GET /api/admin/admins
// @Summary List admins
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Router /admin/admins [get]
func (s *Server) ListAdmins(c *fiber.Ctx) error {
	admins, err := s.admin.ListAdmins(c.UserContext())
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(admins)
}

// GetFeatureFlags handles GET /api/admin/feature-flags
// @Summary Feature flags
// @Description Raw configuration plus evaluation for the requesting admin
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{raw=object,evaluated=object}
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(currentUserID(c)),
	})
}
