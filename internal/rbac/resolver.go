// Package rbac decides whether an identity may perform an action on a
// resource. The decision core is a pure function over supplied data; the
// tenant role expansion needed to feed it lives in loader.go.
package rbac

import (
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
)

// Tier is the breadth of an authorization grant
type Tier string

const (
	// TierAll grants unrestricted access to the resource type
	TierAll Tier = "all"
	// TierOwn restricts access to records the caller owns
	TierOwn Tier = "own"
	// TierNone denies access
	TierNone Tier = "none"
)

// AuthorizeInput carries everything the decision needs. ExtraCodes holds the
// caller's custom-role permission codes, already expanded from the tenant
// database. OwnerID is the target row's owning user id under the caller's
// role's ownership rule (the student's parent for parents, the trip's driver
// for drivers); nil means the target has no resolved owner.
type AuthorizeInput struct {
	Role       string
	ExtraCodes []string
	Resource   string
	Action     string
	CallerID   uint
	OwnerID    *uint
}

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed bool
	Tier    Tier
	Reason  string
}

// Authorize collapses the caller's fixed-role grants and custom-role grants
// into one allow/deny decision, checking tiers high to low
func Authorize(in AuthorizeInput) Decision {
	granted := make(map[string]struct{})
	for _, code := range FixedCodes(in.Role) {
		granted[code] = struct{}{}
	}
	for _, code := range in.ExtraCodes {
		granted[code] = struct{}{}
	}

	if _, ok := granted[codeAll]; ok {
		return Decision{Allowed: true, Tier: TierAll}
	}

	// Unrestricted tier first
	if _, ok := granted[CodeAll(in.Resource, in.Action)]; ok {
		return Decision{Allowed: true, Tier: TierAll}
	}

	// Lesser tier applies the per-role ownership rule
	if _, ok := granted[Code(in.Resource, in.Action)]; ok {
		switch in.Role {
		case model.RoleParent, model.RoleDriver:
			if in.OwnerID != nil && *in.OwnerID == in.CallerID {
				return Decision{Allowed: true, Tier: TierOwn}
			}
			return Decision{Allowed: false, Tier: TierOwn, Reason: "can only access own records"}
		default:
			// No ownership rule defined for this role: explicit deny
			return Decision{Allowed: false, Tier: TierOwn, Reason: "can only access own records"}
		}
	}

	return Decision{Allowed: false, Tier: TierNone, Reason: "insufficient permission"}
}
