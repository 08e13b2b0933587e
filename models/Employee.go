package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Employee is a staff directory entry. Payroll and scheduling live in the
// back office; the server only reads and edits the directory fields.
type Employee struct {
	gorm.Model
	FirstName  string          `gorm:"not null" json:"first_name"`
	LastName   string          `gorm:"not null" json:"last_name"`
	Role       string          `json:"role"`
	Department string          `json:"department"`
	Email      string          `gorm:"uniqueIndex" json:"email"`
	Phone      string          `json:"phone"`
	HourlyRate decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"hourly_rate"`
	HiredAt    *time.Time      `json:"hired_at"`
	Active     bool            `gorm:"not null;default:true" json:"active"`
}
