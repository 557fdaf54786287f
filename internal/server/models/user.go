package models

import "time"

// Role grants coarse privileges. Unknown roles have no admin rights.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           int64     `db:"id" json:"id"`
	UserName     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password" json:"-"`
	Role         Role      `db:"role" json:"role"`
	Nickname     string    `db:"nickname" json:"nickname"`
	Phone        string    `db:"phone" json:"phone"`
	Email        string    `db:"email" json:"email"`
	Gender       string    `db:"gender" json:"gender"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Profile is the user-editable part of User.
type Profile struct {
	Nickname string `json:"nickname"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Gender   string `json:"gender"`
}

func (u *User) Profile() Profile {
	return Profile{Nickname: u.Nickname, Phone: u.Phone, Email: u.Email, Gender: u.Gender}
}

func (u *User) ApplyProfile(p Profile) {
	u.Nickname = p.Nickname
	u.Phone = p.Phone
	u.Email = p.Email
	u.Gender = p.Gender
}
