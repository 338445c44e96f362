package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/meinhoongagan/vetcare-app/models"
	"github.com/meinhoongagan/vetcare-app/services"
)

type PetRepository struct {
	db *gorm.DB
}

func NewPetRepository(db *gorm.DB) *PetRepository {
	return &PetRepository{db: db}
}

func (r *PetRepository) CreatePet(ctx context.Context, p *models.Pet) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

func (r *PetRepository) UpdatePet(ctx context.Context, p *models.Pet) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error
}

func (r *PetRepository) GetPet(ctx context.Context, id uint) (*models.Pet, error) {
	var p models.Pet
	if err := r.db.WithContext(ctx).Preload("PetType").Preload("Breed").First(&p, id).Error; err != nil {
		return nil, notFound(err, services.ErrPetNotFound)
	}
	return &p, nil
}

func (r *PetRepository) ListPets(ctx context.Context, ownerID uint) ([]models.Pet, error) {
	var list []models.Pet
	err := r.db.WithContext(ctx).Preload("PetType").Preload("Breed").
		Where("owner_id = ?", ownerID).Order("name").Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("listing pets: %w", err)
	}
	return list, nil
}

func (r *PetRepository) ListPetTypes(ctx context.Context) ([]models.PetType, error) {
	var list []models.PetType
	err := r.db.WithContext(ctx).Order("name").Find(&list).Error
	return list, err
}

func (r *PetRepository) ListBreeds(ctx context.Context, petTypeID uint) ([]models.Breed, error) {
	var list []models.Breed
	err := r.db.WithContext(ctx).Where("pet_type_id = ?", petTypeID).Order("name").Find(&list).Error
	return list, err
}

func (r *PetRepository) CreateMedicalRecord(ctx context.Context, rec *models.PetMedicalRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *PetRepository) ListMedicalRecords(ctx context.Context, petID uint) ([]models.PetMedicalRecord, error) {
	var list []models.PetMedicalRecord
	err := r.db.WithContext(ctx).Where("pet_id = ?", petID).Order("record_date DESC").Find(&list).Error
	return list, err
}

func (r *PetRepository) CreateVaccination(ctx context.Context, v *models.PetVaccination) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *PetRepository) ListVaccinations(ctx context.Context, petID uint) ([]models.PetVaccination, error) {
	var list []models.PetVaccination
	err := r.db.WithContext(ctx).Where("pet_id = ?", petID).Order("administered_at DESC").Find(&list).Error
	return list, err
}

func (r *PetRepository) CreateHealthCondition(ctx context.Context, c *models.PetHealthCondition) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *PetRepository) GetHealthCondition(ctx context.Context, id uint) (*models.PetHealthCondition, error) {
	var c models.PetHealthCondition
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err, services.ErrRecordNotFound)
	}
	return &c, nil
}

func (r *PetRepository) UpdateHealthCondition(ctx context.Context, c *models.PetHealthCondition) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *PetRepository) ListHealthConditions(ctx context.Context, petID uint) ([]models.PetHealthCondition, error) {
	var list []models.PetHealthCondition
	err := r.db.WithContext(ctx).Where("pet_id = ?", petID).Order("is_resolved, id").Find(&list).Error
	return list, err
}
