package models

import "time"

type LawyerProfile struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	FullName    *string   `json:"full_name"`
	Bio         *string   `json:"bio"`
	Specialties *[]string `json:"specialties"`
	HourlyRate  *float64  `json:"hourly_rate"`
	IsVerified  bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
