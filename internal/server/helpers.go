package server

import (
	"strings"
	"unicode"

	"agora/internal/middleware"
	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination reads limit and offset, clamping limit to 1..100 and
// offset to >= 0.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	return Pagination{
		Limit:  min(limit, maxPaginationLimit),
		Offset: max(c.QueryInt("offset", 0), 0),
	}
}

// parseID reads a positive numeric route parameter. The returned error is
// a validation AppError the app's ErrorHandler renders as 400.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("Invalid " + humanizeParam(param))
	}
	return uint(id), nil
}

// humanizeParam turns a route param name into a label: "id" is "ID",
// "commentId" is "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	stem, ok := strings.CutSuffix(param, "Id")
	if !ok {
		return param
	}
	var b strings.Builder
	for i, r := range stem {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String() + " ID"
}

// currentUserID returns the authenticated user. Routes using it sit behind AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := middleware.UserID(c)
	return id
}

// parseBody decodes the JSON body into dst.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}
