// services/identity.go
package services

import "game-session-engine/models"

// Identity is the verified caller handed in by the edge. The core trusts it as is.
type Identity struct {
	AccountID string
	Role      models.Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// canAct reports whether the caller may act on a resource owned by accountID.
func (i Identity) canAct(accountID string) bool {
	return i.IsAdmin() || i.AccountID == accountID
}
