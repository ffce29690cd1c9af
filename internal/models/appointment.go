package models

import "time"

const (
	AppointmentPending   = "pending"
	AppointmentAccepted  = "accepted"
	AppointmentScheduled = "scheduled"
	AppointmentRejected  = "rejected"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
	AppointmentNoShow    = "no_show"
)

type Appointment struct {
	ID                 int64      `json:"id"`
	ClientID           int64      `json:"client_id"`
	LawyerProfileID    int64      `json:"lawyer_profile_id"`
	ScheduledAt        time.Time  `json:"scheduled_at"`
	DurationMinutes    int        `json:"duration_minutes"`
	Status             string     `json:"status"`
	ClientNotes        *string    `json:"client_notes"`
	LawyerNotes        *string    `json:"lawyer_notes"`
	ConsultationLink   *string    `json:"consultation_link"`
	RejectionReason    *string    `json:"rejection_reason"`
	CancellationReason *string    `json:"cancellation_reason"`
	CancelledBy        *int64     `json:"cancelled_by"`
	CompletedAt        *time.Time `json:"completed_at"`
	Amount             *float64   `json:"amount"`
	IsPaid             bool       `json:"is_paid"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IsTerminal reports whether no further status transitions are allowed.
func (a *Appointment) IsTerminal() bool {
	switch a.Status {
	case AppointmentRejected, AppointmentCompleted, AppointmentCancelled, AppointmentNoShow:
		return true
	default:
		return false
	}
}
