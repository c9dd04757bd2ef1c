package cart

import "github.com/google/uuid"

// Identity scopes a cart to either an authenticated user or an anonymous
// guest session. Exactly one of the two fields is set.
type Identity struct {
	UserID         uuid.UUID
	GuestSessionID string
}

// UserIdentity builds an identity for an authenticated user.
func UserIdentity(userID uuid.UUID) Identity {
	return Identity{UserID: userID}
}

// GuestIdentity builds an identity for an anonymous session.
func GuestIdentity(sessionID string) Identity {
	return Identity{GuestSessionID: sessionID}
}

// IsGuest reports whether the identity belongs to an anonymous session.
func (i Identity) IsGuest() bool {
	return i.UserID == uuid.Nil
}

// IsZero reports whether the identity carries neither a user nor a session.
func (i Identity) IsZero() bool {
	return i.UserID == uuid.Nil && i.GuestSessionID == ""
}
