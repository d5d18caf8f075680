package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRoleIsValid(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleAnalyst, RoleViewer} {
		if !role.IsValid() {
			t.Errorf("expected %s to be valid", role)
		}
	}
	for _, role := range []Role{"", "superuser", "Admin"} {
		if role.IsValid() {
			t.Errorf("expected %q to be invalid", role)
		}
	}
}

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role Role
		min  Role
		want bool
	}{
		{RoleAdmin, RoleViewer, true},
		{RoleAdmin, RoleAdmin, true},
		{RoleAnalyst, RoleViewer, true},
		{RoleAnalyst, RoleAdmin, false},
		{RoleViewer, RoleAnalyst, false},
		{"unknown", RoleViewer, false},
	}

	for _, tt := range tests {
		if got := tt.role.AtLeast(tt.min); got != tt.want {
			t.Errorf("%s.AtLeast(%s) = %v, want %v", tt.role, tt.min, got, tt.want)
		}
	}
}

func TestUserPermissionsByRole(t *testing.T) {
	tests := []struct {
		role    Role
		admin   bool
		manage  bool
		ingest  bool
	}{
		{RoleAdmin, true, true, true},
		{RoleAnalyst, false, false, true},
		{RoleViewer, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			user := &User{Role: tt.role, Active: true}
			if got := user.IsAdmin(); got != tt.admin {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.admin)
			}
			if got := user.CanManageUsers(); got != tt.manage {
				t.Errorf("CanManageUsers() = %v, want %v", got, tt.manage)
			}
			if got := user.CanTriggerIngest(); got != tt.ingest {
				t.Errorf("CanTriggerIngest() = %v, want %v", got, tt.ingest)
			}
			if !user.CanQuery() {
				t.Error("expected every active role to be able to query")
			}
		})
	}
}

func TestUserCanQueryRequiresActiveAccount(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleAnalyst, RoleViewer} {
		user := &User{Role: role, Active: false}
		if user.CanQuery() {
			t.Errorf("expected deactivated %s to be denied", role)
		}
	}
	if (&User{Role: "unknown", Active: true}).CanQuery() {
		t.Error("expected unknown role to be denied")
	}
}

func TestUserToSummaryOmitsPasswordHash(t *testing.T) {
	now := time.Now()
	user := &User{
		ID:           "user-123",
		Email:        "analyst@finsight.example",
		PasswordHash: "bcrypt-secret",
		Name:         "Test Analyst",
		Role:         RoleAnalyst,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLoginAt:  &now,
	}

	summary := user.ToSummary()
	if summary.ID != user.ID || summary.Email != user.Email || summary.Name != user.Name {
		t.Errorf("summary = %+v, want the user's identity fields", summary)
	}
	if summary.Role != RoleAnalyst || !summary.Active || summary.LastLoginAt == nil {
		t.Errorf("summary = %+v, want role, active, and last login carried over", summary)
	}

	// Serialized views must never leak the hash
	for _, v := range []any{user, summary} {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if strings.Contains(string(raw), "bcrypt-secret") {
			t.Errorf("%T JSON leaks the password hash: %s", v, raw)
		}
	}
}
