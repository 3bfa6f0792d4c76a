package rbac

import (
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
)

// Resources understood by the authorization layer
const (
	ResourceOrganization = "organization"
	ResourceUser         = "user"
	ResourceRole         = "role"
	ResourcePermission   = "permission"
	ResourceBus          = "bus"
	ResourceRoute        = "route"
	ResourceStudent      = "student"
	ResourceTrip         = "trip"
	ResourceLocation     = "location"
	ResourceSubscription = "subscription"
)

// Actions understood by the authorization layer
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// codeAll marks the wildcard grant held by the platform superadmin
const codeAll = "*"

// Code builds the permission code for an action restricted to owned records
func Code(resource, action string) string {
	return resource + ":" + action
}

// CodeAll builds the permission code for an unrestricted action
func CodeAll(resource, action string) string {
	return resource + ":" + action + "_all"
}

func grantAll(resources ...string) []string {
	var codes []string
	for _, r := range resources {
		codes = append(codes,
			CodeAll(r, ActionCreate),
			CodeAll(r, ActionRead),
			CodeAll(r, ActionUpdate),
			CodeAll(r, ActionDelete),
		)
	}
	return codes
}

// fixedMatrix is the built-in permission matrix for the four fixed roles.
// Custom tenant roles augment, never narrow, these grants.
var fixedMatrix = map[string][]string{
	model.RoleSuperadmin: {codeAll},
	model.RoleAdmin: grantAll(
		ResourceUser,
		ResourceRole,
		ResourcePermission,
		ResourceBus,
		ResourceRoute,
		ResourceStudent,
		ResourceTrip,
		ResourceLocation,
		ResourceSubscription,
	),
	model.RoleDriver: {
		Code(ResourceTrip, ActionRead),
		Code(ResourceTrip, ActionUpdate),
		Code(ResourceLocation, ActionCreate),
		Code(ResourceLocation, ActionRead),
		Code(ResourceBus, ActionRead),
		Code(ResourceRoute, ActionRead),
	},
	model.RoleParent: {
		Code(ResourceStudent, ActionRead),
		Code(ResourceTrip, ActionRead),
		Code(ResourceLocation, ActionRead),
		Code(ResourceSubscription, ActionCreate),
		Code(ResourceSubscription, ActionRead),
		Code(ResourceSubscription, ActionDelete),
	},
}

// FixedCodes returns the built-in permission codes for a fixed role name
func FixedCodes(role string) []string {
	return fixedMatrix[role]
}
