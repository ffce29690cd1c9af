package repository

import (
	"context"

	"github.com/lexvia/ConsultAppBack/internal/models"
)

type LawyerProfileRepository struct {
	db DBTX
}

func NewLawyerProfileRepository(db DBTX) *LawyerProfileRepository {
	return &LawyerProfileRepository{db: db}
}

func (r *LawyerProfileRepository) GetByID(ctx context.Context, id int64) (*models.LawyerProfile, error) {
	query := `
		SELECT id, user_id, full_name, bio, specialties, hourly_rate, is_verified, created_at, updated_at
		FROM lawyer_profiles
		WHERE id = $1
	`
	return r.scanOne(ctx, query, id)
}

func (r *LawyerProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.LawyerProfile, error) {
	query := `
		SELECT id, user_id, full_name, bio, specialties, hourly_rate, is_verified, created_at, updated_at
		FROM lawyer_profiles
		WHERE user_id = $1
	`
	return r.scanOne(ctx, query, userID)
}

func (r *LawyerProfileRepository) scanOne(ctx context.Context, query string, arg any) (*models.LawyerProfile, error) {
	var profile models.LawyerProfile
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.Bio,
		&profile.Specialties,
		&profile.HourlyRate,
		&profile.IsVerified,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
