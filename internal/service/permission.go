package service

import "lifecycle-service/internal/models"

// RolePermissions is the default permission capability. Role claims arrive
// already verified by the surrounding auth layer; this check enforces the
// ownership rule on top of them: customers may only act on entities they
// own, staff and admins may act on any entity. Which actions each role may
// perform at all is the state machine's rule table, not this check.
type RolePermissions struct{}

// NewRolePermissions creates the default permission checker.
func NewRolePermissions() *RolePermissions {
	return &RolePermissions{}
}

// Check reports whether the actor may exercise capability against an entity
// owned by ownerID.
func (p *RolePermissions) Check(actorID, actorRole, capability, ownerID string) bool {
	switch actorRole {
	case models.RoleAdmin, models.RoleStaff:
		return actorID != ""
	case models.RoleCustomer:
		return actorID != "" && actorID == ownerID
	}
	return false
}
