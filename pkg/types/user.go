package types

import (
	"errors"
	"strings"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleParent  Role = "PARENT"
	RoleAdmin   Role = "ADMIN"
	RolePending Role = "PENDING"
)

// Roles lists every role in display order.
var Roles = []Role{RoleStudent, RoleParent, RoleAdmin, RolePending}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleParent, RoleAdmin, RolePending:
		return true
	}
	return false
}

// SelfSelectable reports whether a volunteer may request this role on the signup form.
func (r Role) SelfSelectable() bool {
	switch r {
	case RoleStudent, RoleParent:
		return true
	case RoleAdmin, RolePending:
		return false
	}
	return false
}

// ContactFields returns the role specific profile fields that apply to r.
func (r Role) ContactFields() []UserField {
	switch r {
	case RoleStudent:
		return []UserField{UserFieldParentName, UserFieldParentEmail, UserFieldParentPhone}
	case RoleParent:
		return []UserField{UserFieldStudentName, UserFieldStudentSchool}
	case RoleAdmin, RolePending:
		return nil
	}
	return nil
}

func (r Role) Label() string {
	switch r {
	case RoleStudent:
		return "Student"
	case RoleParent:
		return "Parent"
	case RoleAdmin:
		return "Admin"
	case RolePending:
		return "Pending"
	}
	return "Unknown"
}

type UserStatus string

const (
	UserStatusPending  UserStatus = "PENDING"
	UserStatusApproved UserStatus = "APPROVED"
	UserStatusRejected UserStatus = "REJECTED"
)

var UserStatuses = []UserStatus{UserStatusPending, UserStatusApproved, UserStatusRejected}

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusPending, UserStatusApproved, UserStatusRejected:
		return true
	}
	return false
}

type User struct {
	ID       string     `db:"id"`
	FullName string     `db:"full_name"`
	Email    string     `db:"email"`
	Phone    *string    `db:"phone"`
	Role     Role       `db:"role"`
	Status   UserStatus `db:"status"`

	ParentName    *string `db:"parent_name"`
	ParentEmail   *string `db:"parent_email"`
	ParentPhone   *string `db:"parent_phone"`
	StudentName   *string `db:"student_name"`
	StudentSchool *string `db:"student_school"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// UserAccess is the slice of a user record the access gate needs.
type UserAccess struct {
	Status UserStatus `db:"status"`
	Role   Role       `db:"role"`
}

func (a *UserAccess) Approved() bool {
	return a != nil && a.Status == UserStatusApproved
}

func (a *UserAccess) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

type UserField string

const (
	UserFieldEmail         UserField = "email"
	UserFieldPhone         UserField = "phone"
	UserFieldFullName      UserField = "full_name"
	UserFieldParentName    UserField = "parent_name"
	UserFieldParentEmail   UserField = "parent_email"
	UserFieldParentPhone   UserField = "parent_phone"
	UserFieldStudentName   UserField = "student_name"
	UserFieldStudentSchool UserField = "student_school"
)

// Value returns the value of field f on u, or "" when unset.
func (u *User) Value(f UserField) string {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}

	switch f {
	case UserFieldEmail:
		return u.Email
	case UserFieldPhone:
		return deref(u.Phone)
	case UserFieldFullName:
		return u.FullName
	case UserFieldParentName:
		return deref(u.ParentName)
	case UserFieldParentEmail:
		return deref(u.ParentEmail)
	case UserFieldParentPhone:
		return deref(u.ParentPhone)
	case UserFieldStudentName:
		return deref(u.StudentName)
	case UserFieldStudentSchool:
		return deref(u.StudentSchool)
	}
	return ""
}

// SignupForm is the volunteer signup payload. Role specific fields are only
// kept for the role that uses them.
type SignupForm struct {
	FullName        string `form:"full_name" validate:"required,max=200"`
	Email           string `form:"email" validate:"required,email"`
	Phone           string `form:"phone" validate:"max=40"`
	Role            Role   `form:"role" validate:"required,oneof=STUDENT PARENT"`
	ParentName      string `form:"parent_name" validate:"max=200"`
	ParentEmail     string `form:"parent_email" validate:"omitempty,email"`
	ParentPhone     string `form:"parent_phone" validate:"max=40"`
	StudentName     string `form:"student_name" validate:"max=200"`
	StudentSchool   string `form:"student_school" validate:"max=200"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

// NewUser builds the pending user record for identity id from the form.
func (f *SignupForm) NewUser(id string) *User {
	u := &User{
		ID:       id,
		FullName: strings.TrimSpace(f.FullName),
		Email:    strings.TrimSpace(f.Email),
		Phone:    nilIfBlank(f.Phone),
		Role:     f.Role,
		Status:   UserStatusPending,
	}

	for _, field := range f.Role.ContactFields() {
		switch field {
		case UserFieldParentName:
			u.ParentName = nilIfBlank(f.ParentName)
		case UserFieldParentEmail:
			u.ParentEmail = nilIfBlank(f.ParentEmail)
		case UserFieldParentPhone:
			u.ParentPhone = nilIfBlank(f.ParentPhone)
		case UserFieldStudentName:
			u.StudentName = nilIfBlank(f.StudentName)
		case UserFieldStudentSchool:
			u.StudentSchool = nilIfBlank(f.StudentSchool)
		case UserFieldEmail, UserFieldPhone, UserFieldFullName:
		}
	}

	return u
}

func nilIfBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
