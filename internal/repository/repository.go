package repository

import (
	"github.com/prperemyshlev/session-auth/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User       UserRepository
	OAuthToken OAuthTokenRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		OAuthToken: NewOAuthTokenRepository(db),
	}
}
