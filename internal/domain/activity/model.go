package activity

import (
	"fmt"
	"time"
)

// Event types in the activity feed.
const (
	TypeAppointmentCreated = "appointment_created"
	TypeDoctorRegistered   = "doctor_registered"
	TypePatientRegistered  = "patient_registered"
)

// Event is one row of the merged activity feed. Events are derived from the
// source tables at read time; nothing is stored.
type Event struct {
	Type        string    `json:"type"`
	RefID       int64     `json:"ref_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Age         string    `json:"age"`
}

// Filter narrows the feed. Zero values mean no constraint.
type Filter struct {
	Types []string
	Since time.Time
	Until time.Time
}

// RelativeAge renders how long ago t was relative to now. Recent events get
// coarse human labels; after a week the label flattens to the absolute date.
func RelativeAge(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		n := int(d.Minutes())
		if n == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", n)
	case d < 24*time.Hour:
		n := int(d.Hours())
		if n == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", n)
	case d < 48*time.Hour:
		return "Yesterday"
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
