package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Role levels carried in User.Role. Roles are a set, not a single enum —
// a user may hold several levels at once.
const (
	RolePlainUser int64 = 0
	RoleApprover  int64 = 2
	RoleAdmin     int64 = 3
)

// User represents the central user entity for logic and database structure
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username  string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"type:varchar(255);not null" json:"-"` // Omit password from JSON requests/responses
	Role      pq.Int64Array  `gorm:"type:integer[];not null" json:"role"` // e.g. [0], [2,3]
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

// IsElevated reports whether the user's role set grants admin/override
// capability. Levels 2 and 3 are treated identically everywhere.
func (u *User) IsElevated() bool {
	return HasElevatedRole(u.Role)
}

// HasElevatedRole checks a raw role set for an elevated level.
func HasElevatedRole(roles []int64) bool {
	for _, r := range roles {
		if r == RoleApprover || r == RoleAdmin {
			return true
		}
	}
	return false
}

// SessionToken stores issued access tokens so sessions can be listed and
// revoked server-side (single token, per user, or globally).
type SessionToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(512);uniqueIndex;not null" json:"token"`
	IPAddress string    `gorm:"type:varchar(64)" json:"ip_address"`
	UserAgent string    `gorm:"type:varchar(512)" json:"user_agent"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
