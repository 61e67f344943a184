package models

import (
	"time"

	"github.com/epicevents/crm/internal/policy"
)

// Department is a row of the departments table.
type Department struct {
	ID   int64             `json:"id" db:"id"`
	Name policy.Department `json:"name" db:"name"`
}

// TableName returns the table name for the Department model
func (Department) TableName() string {
	return "departments"
}

// User is a CRM collaborator. Department carries the department name joined
// from the departments table; DepartmentID is the stored reference.
type User struct {
	ID           int64             `json:"id" db:"id"`
	Username     string            `json:"username" db:"username"`
	PasswordHash string            `json:"-" db:"password_hash"`
	FullName     string            `json:"full_name" db:"full_name"`
	Email        string            `json:"email" db:"email"`
	Phone        string            `json:"phone" db:"phone"`
	DepartmentID int64             `json:"department_id" db:"department_id"`
	Department   policy.Department `json:"department" db:"department_name"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance with its timestamps set
func NewUser(username, passwordHash, fullName, email, phone string, dept *Department) *User {
	now := time.Now().UTC()
	return &User{
		Username:     username,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Email:        email,
		Phone:        phone,
		DepartmentID: dept.ID,
		Department:   dept.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// InDepartment reports whether the user belongs to dept.
func (u *User) InDepartment(dept policy.Department) bool {
	return u.Department == dept
}

// UserHoldings counts the records a user is responsible for. It gates deletion.
type UserHoldings struct {
	Clients   int `json:"clients"`
	Contracts int `json:"contracts"`
	Events    int `json:"events"`
}

// Empty reports whether the user owns or supports nothing.
func (h UserHoldings) Empty() bool {
	return h.Clients == 0 && h.Contracts == 0 && h.Events == 0
}
