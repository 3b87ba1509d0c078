package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is the basic entity of the system
type User struct {
	gorm.Model
	Name     string  `gorm:"uniqueIndex;type:varchar(32);not null;comment:login name"`
	Nickname *string `gorm:"type:varchar(64);comment:display name"`
	Password *string `gorm:"type:varchar(128);comment:bcrypt hash, empty for LDAP-only accounts"`
	Role     Role    `gorm:"not null;default:2;comment:platform role"`
	Status   Status  `gorm:"not null;default:1;comment:account status"`

	UnitID uint `gorm:"index;comment:organizational unit the user belongs to"`
	Unit   Unit `gorm:"foreignKey:UnitID"`

	Attributes datatypes.JSONType[UserAttribute] `gorm:"comment:profile attributes"`
}

// UserAttribute holds profile fields that do not participate in queries.
type UserAttribute struct {
	Name       string  `json:"name"`
	Nickname   string  `json:"nickname"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	EmployeeNo *string `json:"employeeNo"`
	Grade      *string `json:"grade"` // personnel grade, used by promotion requests
}

// UserInfo is the embedded subset returned inside other responses.
type UserInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}

// Unit is one organizational unit of the fixed two-tier hierarchy.
// The second tier (central review) is a role, not a unit.
type Unit struct {
	gorm.Model
	Name   string `gorm:"uniqueIndex;type:varchar(64);not null;comment:unit name"`
	Code   string `gorm:"uniqueIndex;type:varchar(16);not null;comment:short code used in exports"`
	Active bool   `gorm:"not null;default:true;comment:inactive units accept no new submissions"`
}
