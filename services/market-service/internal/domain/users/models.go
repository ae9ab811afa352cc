package users

import "time"

// User is keyed by username. Phone and Facebook are optional but at least
// one of them is always set.
type User struct {
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never return in JSON
	Phone        string    `json:"phone,omitempty" db:"phone"`
	Facebook     string    `json:"facebook,omitempty" db:"facebook_handle"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ContactInfo is what a user shares when asking a seller to get in touch.
type ContactInfo struct {
	Phone    string
	Facebook string
}

func (c ContactInfo) IsEmpty() bool {
	return c.Phone == "" && c.Facebook == ""
}

func (u *User) ContactInfo() ContactInfo {
	return ContactInfo{Phone: u.Phone, Facebook: u.Facebook}
}
