package database

import "agora/internal/models"

// Logical store names.
const (
	StoreMain = "main"
	StoreAuth = "auth"
)

// MainModels returns the schema-managed GORM models of the main store.
func MainModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Follow{},
	}
}

// AuthModels returns the schema-managed GORM models of the auth store.
func AuthModels() []interface{} {
	return []interface{}{
		&models.Credential{},
	}
}

// PersistentModels returns the models owned by the named store.
func PersistentModels(store string) []interface{} {
	switch store {
	case StoreAuth:
		return AuthModels()
	default:
		return MainModels()
	}
}
