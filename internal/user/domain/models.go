package domain

import "strings"

// User is a per-organization user record. org_user_id alone is the primary
// key, so an id taken by one organization is unavailable to every other.
type User struct {
	OrgUserID    string    `gorm:"column:org_user_id;primaryKey" json:"org_user_id"`
	OrgID        string    `gorm:"column:org_id;not null;index" json:"org_id"`
	Name         string    `gorm:"column:name;not null" json:"name"`
	ContactNo    string    `gorm:"column:contact_no" json:"contact_no"`
	EmployeeCode string    `gorm:"column:employee_code" json:"employee_code"`
	CreatedDate  Timestamp `gorm:"column:created_date" json:"created_date"`
	ValidTill    Timestamp `gorm:"column:valid_till" json:"valid_till"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// UserPayload is the request body for create and update. Key fields may be
// left empty, in which case the path values apply.
type UserPayload struct {
	OrgUserID    string     `json:"org_user_id"`
	OrgID        string     `json:"org_id"`
	Name         string     `json:"name"`
	ContactNo    string     `json:"contact_no"`
	EmployeeCode string     `json:"employee_code"`
	CreatedDate  *Timestamp `json:"created_date"`
	ValidTill    *Timestamp `json:"valid_till"`
}

// Normalize trims the descriptive fields. Key fields are left verbatim so a
// record is only reachable through its exact (org_id, org_user_id) pair.
func (p UserPayload) Normalize() UserPayload {
	p.Name = strings.TrimSpace(p.Name)
	p.ContactNo = strings.TrimSpace(p.ContactNo)
	p.EmployeeCode = strings.TrimSpace(p.EmployeeCode)
	return p
}
