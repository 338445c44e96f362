package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PetType struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

type Breed struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	PetTypeID uint   `json:"pet_type_id" gorm:"index;not null"`
	Name      string `json:"name" gorm:"not null"`
}

type Pet struct {
	gorm.Model
	OwnerID     uint                `json:"owner_id" gorm:"index;not null"`
	Name        string              `json:"name" gorm:"not null"`
	PetTypeID   uint                `json:"pet_type_id"`
	PetType     *PetType            `json:"pet_type,omitempty" gorm:"foreignKey:PetTypeID"`
	BreedID     *uint               `json:"breed_id"`
	Breed       *Breed              `json:"breed,omitempty" gorm:"foreignKey:BreedID"`
	Sex         string              `json:"sex" gorm:"type:varchar(10)"`
	BirthDate   *time.Time          `json:"birth_date"`
	WeightKg    decimal.NullDecimal `json:"weight_kg" gorm:"type:decimal(6,2)"`
	Color       string              `json:"color"`
	MicrochipID string              `json:"microchip_id"`
	IsNeutered  bool                `json:"is_neutered"`
}

type PetMedicalRecord struct {
	gorm.Model
	PetID         uint      `json:"pet_id" gorm:"index;not null"`
	AppointmentID *uint     `json:"appointment_id" gorm:"index"`
	ClinicID      *uint     `json:"clinic_id" gorm:"index"`
	ClinicStaffID *uint     `json:"clinic_staff_id"`
	RecordDate    time.Time `json:"record_date" gorm:"not null"`
	Diagnosis     string    `json:"diagnosis" gorm:"type:text"`
	Treatment     string    `json:"treatment" gorm:"type:text"`
	Prescription  string    `json:"prescription" gorm:"type:text"`
	Notes         string    `json:"notes" gorm:"type:text"`
}

type PetVaccination struct {
	gorm.Model
	PetID            uint       `json:"pet_id" gorm:"index;not null"`
	ClinicID         *uint      `json:"clinic_id"`
	VaccineName      string     `json:"vaccine_name" gorm:"not null"`
	AdministeredAt   time.Time  `json:"administered_at" gorm:"not null"`
	NextDueDate      *time.Time `json:"next_due_date" gorm:"index"`
	BatchNumber      string     `json:"batch_number"`
	AdministeredByID *uint      `json:"administered_by_id"`
}

func (v *PetVaccination) IsDue(now time.Time) bool {
	return v.NextDueDate != nil && !v.NextDueDate.After(now)
}

type PetHealthCondition struct {
	gorm.Model
	PetID       uint       `json:"pet_id" gorm:"index;not null"`
	Name        string     `json:"name" gorm:"not null"`
	Severity    string     `json:"severity" gorm:"type:varchar(20)"`
	DiagnosedAt *time.Time `json:"diagnosed_at"`
	IsChronic   bool       `json:"is_chronic"`
	IsResolved  bool       `json:"is_resolved"`
	Notes       string     `json:"notes" gorm:"type:text"`
}
