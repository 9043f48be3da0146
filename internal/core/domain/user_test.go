package domain

import "testing"

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleManager, RoleEmployee} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	for _, r := range []Role{"", "admin", "SUPERUSER"} {
		if r.Valid() {
			t.Errorf("%q should be invalid", r)
		}
	}
}

func TestRole_IsAdmin(t *testing.T) {
	if !RoleAdmin.IsAdmin() {
		t.Error("ADMIN must report admin access")
	}
	if RoleManager.IsAdmin() || RoleEmployee.IsAdmin() || Role("").IsAdmin() {
		t.Error("only ADMIN grants admin access")
	}
}
