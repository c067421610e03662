package permissions

import (
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/google/uuid"
)

// Actor is the authenticated user a command runs as.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsElevated reports whether the actor holds a manager-level role.
func (a Actor) IsElevated() bool {
	return IsElevated(a.Role)
}

// Valid reports whether the actor carries an identity and a known role.
func (a Actor) Valid() bool {
	return a.UserID != uuid.Nil && a.Role.IsValid()
}

// SystemActor is the identity scheduled jobs act as. It has no user id, so
// audit rows it produces carry a nil actor.
func SystemActor() Actor {
	return Actor{Role: enums.UserRoleAdmin}
}

// IsSystem reports whether the actor is the scheduler identity.
func (a Actor) IsSystem() bool {
	return a.UserID == uuid.Nil && a.Role == enums.UserRoleAdmin
}
