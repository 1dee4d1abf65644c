package database

// Role is the privilege level stored on a user row.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User represents a record in the 'users' table.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"` // Never serialised
	Role         Role   `db:"role" json:"role"`
}

// Event represents a competition category in the 'events' table.
type Event struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// RegistrationStatus is the moderation flag on a registration.
type RegistrationStatus string

const (
	StatusPending  RegistrationStatus = "pending"
	StatusApproved RegistrationStatus = "approved"
	StatusRejected RegistrationStatus = "rejected"
)

// Valid reports whether s is one of the three moderation states.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Registration represents a competitor's request to take part in one event.
// EventName is not a column; it is filled by joining on the events table.
type Registration struct {
	ID        string             `db:"id" json:"id"`
	FirstName string             `db:"first_name" json:"firstName"`
	LastName  string             `db:"last_name" json:"lastName"`
	Email     string             `db:"email" json:"email"`
	EventID   string             `db:"event_id" json:"eventId"`
	EventName string             `db:"event_name" json:"eventName"`
	Status    RegistrationStatus `db:"status" json:"status"`
	CreatedAt string             `db:"created_at" json:"createdAt"`
}

// Result is one athlete's placement in one event. EventName is captured when the
// result is written and is not kept in sync with later event renames.
type Result struct {
	ID        string  `db:"id" json:"id"`
	Athlete   string  `db:"athlete" json:"athlete"`
	Club      *string `db:"club" json:"club,omitempty"`
	EventID   string  `db:"event_id" json:"eventId"`
	EventName string  `db:"event_name" json:"eventName"`
	Position  int     `db:"position" json:"position"`
	Score     float64 `db:"score" json:"score"`
	Date      string  `db:"date" json:"date"`
}

// NewRegistration is a validated public sign-up, ready to persist.
type NewRegistration struct {
	FirstName string
	LastName  string
	Email     string
	EventID   string
}

// NewResult is a validated leaderboard entry, ready to persist.
type NewResult struct {
	Athlete   string
	Club      *string
	EventID   string
	EventName string
	Position  int
	Score     float64
	Date      string
}
