package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
)

func uintPtr(v uint) *uint { return &v }

func TestAuthorizeSuperadminWildcard(t *testing.T) {
	d := Authorize(AuthorizeInput{
		Role:     model.RoleSuperadmin,
		Resource: ResourceOrganization,
		Action:   ActionDelete,
		CallerID: 1,
	})
	assert.True(t, d.Allowed)
	assert.Equal(t, TierAll, d.Tier)
}

func TestAuthorizeAdminAllTier(t *testing.T) {
	// Admin holds the unrestricted read grant, so ownership is irrelevant
	d := Authorize(AuthorizeInput{
		Role:     model.RoleAdmin,
		Resource: ResourceTrip,
		Action:   ActionRead,
		CallerID: 7,
		OwnerID:  uintPtr(99),
	})
	assert.True(t, d.Allowed)
	assert.Equal(t, TierAll, d.Tier)
}

func TestAuthorizeAdminCreate(t *testing.T) {
	// Creating a record has no meaningful owner yet, so the admin grant
	// must not fall into the ownership tier
	for _, resource := range []string{
		ResourceUser,
		ResourceBus,
		ResourceRoute,
		ResourceStudent,
		ResourceTrip,
		ResourceRole,
		ResourcePermission,
	} {
		d := Authorize(AuthorizeInput{
			Role:     model.RoleAdmin,
			Resource: resource,
			Action:   ActionCreate,
			CallerID: 7,
		})
		assert.True(t, d.Allowed, "admin create on %s", resource)
		assert.Equal(t, TierAll, d.Tier, "admin create on %s", resource)
	}
}

func TestAuthorizeParentOwnTier(t *testing.T) {
	in := AuthorizeInput{
		Role:     model.RoleParent,
		Resource: ResourceTrip,
		Action:   ActionRead,
		CallerID: 42,
	}

	in.OwnerID = uintPtr(42)
	d := Authorize(in)
	assert.True(t, d.Allowed)
	assert.Equal(t, TierOwn, d.Tier)

	in.OwnerID = uintPtr(43)
	d = Authorize(in)
	assert.False(t, d.Allowed)
	assert.Equal(t, TierOwn, d.Tier)
	assert.Equal(t, "can only access own records", d.Reason)
}

func TestAuthorizeDriverOwnTier(t *testing.T) {
	in := AuthorizeInput{
		Role:     model.RoleDriver,
		Resource: ResourceLocation,
		Action:   ActionCreate,
		CallerID: 5,
	}

	in.OwnerID = uintPtr(5)
	d := Authorize(in)
	assert.True(t, d.Allowed)
	assert.Equal(t, TierOwn, d.Tier)

	in.OwnerID = uintPtr(6)
	d = Authorize(in)
	assert.False(t, d.Allowed)
}

func TestAuthorizeOwnTierWithoutOwner(t *testing.T) {
	// A parent asking about a row with no resolved owner is denied, not crashed
	d := Authorize(AuthorizeInput{
		Role:     model.RoleParent,
		Resource: ResourceStudent,
		Action:   ActionRead,
		CallerID: 42,
		OwnerID:  nil,
	})
	assert.False(t, d.Allowed)
	assert.Equal(t, TierOwn, d.Tier)
}

func TestAuthorizeOwnTierNoOwnershipRule(t *testing.T) {
	// A role with only the lesser grant and no ownership rule gets an
	// explicit deny
	d := Authorize(AuthorizeInput{
		Role:       model.RoleAdmin,
		ExtraCodes: []string{Code(ResourceOrganization, ActionRead)},
		Resource:   ResourceOrganization,
		Action:     ActionRead,
		CallerID:   1,
	})
	assert.False(t, d.Allowed)
	assert.Equal(t, TierOwn, d.Tier)
	assert.Equal(t, "can only access own records", d.Reason)
}

func TestAuthorizeDeniedWithoutGrant(t *testing.T) {
	d := Authorize(AuthorizeInput{
		Role:     model.RoleParent,
		Resource: ResourceBus,
		Action:   ActionDelete,
		CallerID: 42,
	})
	assert.False(t, d.Allowed)
	assert.Equal(t, TierNone, d.Tier)
	assert.Equal(t, "insufficient permission", d.Reason)
}

func TestAuthorizeCustomRoleAugments(t *testing.T) {
	// Custom role grants widen the fixed matrix: a driver elevated to
	// unrestricted trip reads
	d := Authorize(AuthorizeInput{
		Role:       model.RoleDriver,
		ExtraCodes: []string{CodeAll(ResourceTrip, ActionRead)},
		Resource:   ResourceTrip,
		Action:     ActionRead,
		CallerID:   5,
		OwnerID:    uintPtr(999),
	})
	assert.True(t, d.Allowed)
	assert.Equal(t, TierAll, d.Tier)

	// The fixed grants survive alongside the custom ones
	d = Authorize(AuthorizeInput{
		Role:       model.RoleDriver,
		ExtraCodes: []string{CodeAll(ResourceTrip, ActionRead)},
		Resource:   ResourceBus,
		Action:     ActionRead,
		CallerID:   5,
		OwnerID:    uintPtr(5),
	})
	assert.True(t, d.Allowed)
	assert.Equal(t, TierOwn, d.Tier)
}
