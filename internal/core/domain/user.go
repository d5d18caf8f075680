package domain

import "time"

// Role is a user's permission level. Roles form a strict hierarchy:
// admin > analyst > viewer.
type Role string

const (
	RoleAdmin   Role = "admin"   // manage users, ingest, settings
	RoleAnalyst Role = "analyst" // ask questions, trigger company syncs
	RoleViewer  Role = "viewer"  // ask questions only
)

var roleRank = map[Role]int{
	RoleViewer:  1,
	RoleAnalyst: 2,
	RoleAdmin:   3,
}

func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether this role grants everything min does.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// User is an account on this deployment.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// UserSummary is the view of a user returned by the API. It carries no
// password hash.
type UserSummary struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        Role       `json:"role"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (u *User) ToSummary() *UserSummary {
	return &UserSummary{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
	}
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanManageUsers reports whether the user can create or delete accounts.
func (u *User) CanManageUsers() bool {
	return u.Role.AtLeast(RoleAdmin)
}

// CanTriggerIngest reports whether the user can start filing syncs.
func (u *User) CanTriggerIngest() bool {
	return u.Role.AtLeast(RoleAnalyst)
}

// CanQuery reports whether the user can ask research questions.
// Deactivated accounts keep their role but lose access.
func (u *User) CanQuery() bool {
	return u.Active && u.Role.IsValid()
}
