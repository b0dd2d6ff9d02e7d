package models

import "time"

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Don't expose in JSON
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	IsAdmin      bool       `json:"is_admin"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Groups []Group `json:"groups,omitempty"`
}

// FullName joins first and last name, skipping an empty part. The operator
// CLI shows it in user listings.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (u User) Subject() Subject {
	return Subject{Type: SubjectUser, ID: u.ID}
}

type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	MemberCount int    `json:"member_count"`
	Members     []User `json:"members,omitempty"`
}

func (g Group) Subject() Subject {
	return Subject{Type: SubjectGroup, ID: g.ID}
}
