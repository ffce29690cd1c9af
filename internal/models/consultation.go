package models

import "time"

type Consultation struct {
	ID              int64      `json:"id"`
	AppointmentID   int64      `json:"appointment_id"`
	VideoRoomID     string     `json:"video_room_id"`
	VideoLink       string     `json:"video_link"`
	StartedAt       *time.Time `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationMinutes *int       `json:"duration_minutes"`
	ClientNotes     *string    `json:"client_notes"`
	LawyerNotes     *string    `json:"lawyer_notes"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
