package model

// TenantModels lists every model migrated into a tenant database, in
// dependency order
func TenantModels() []interface{} {
	return []interface{}{
		&User{},
		&Permission{},
		&Role{},
		&Bus{},
		&Route{},
		&Stop{},
		&Student{},
		&Trip{},
		&LocationTracking{},
		&Subscription{},
	}
}

// PlatformModels lists the models migrated into the platform database. The
// users table here holds only the superadmin bootstrap record.
func PlatformModels() []interface{} {
	return []interface{}{
		&Organization{},
		&User{},
	}
}
