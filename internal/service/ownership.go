package service

import (
	"agora/internal/models"
	"agora/internal/observability"
)

// Action is a mutation checked by Authorize.
type Action string

const (
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Authorize decides whether actor may perform action on resource. Only the
// author may edit; the author or any admin may delete.
func Authorize(actor *models.User, resource models.Owned, action Action) error {
	if actor != nil && resource != nil {
		isAuthor := resource.OwnerID() == actor.ID
		switch action {
		case ActionEdit:
			if isAuthor {
				return nil
			}
		case ActionDelete:
			if isAuthor || actor.IsAdmin {
				return nil
			}
		}
	}
	observability.AuthorizationDenials.WithLabelValues(string(action)).Inc()
	return models.NewForbiddenError("You are not allowed to " + string(action) + " this resource")
}
