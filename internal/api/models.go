// internal/api/models.go

package api

import (
	"strings"

	"github.com/highlandgames/gathering/internal/database"
)

// loginPayload is the body of POST /auth/login.
type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public view of a logged-in user.
type UserResponse struct {
	Email string        `json:"email"`
	Role  database.Role `json:"role"`
}

func toUserResponse(user *database.User) UserResponse {
	return UserResponse{Email: user.Email, Role: user.Role}
}

// registrationPayload is the body of POST /registrations. Any status sent by
// the client is ignored; new registrations always start as pending.
type registrationPayload struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	EventID   string `json:"eventId" validate:"required"`
}

func (p *registrationPayload) normalize() {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Email = strings.TrimSpace(p.Email)
	p.EventID = strings.TrimSpace(p.EventID)
}

func (p registrationPayload) toCommand() database.NewRegistration {
	return database.NewRegistration{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		EventID:   p.EventID,
	}
}

// statusPayload is the body of PATCH /registrations/{id}.
type statusPayload struct {
	Status database.RegistrationStatus `json:"status"`
}

// resultPayload is the body of POST /results. Position and Score are pointers
// so that a missing field is told apart from zero.
type resultPayload struct {
	Athlete   string   `json:"athlete" validate:"required"`
	Club      *string  `json:"club"`
	EventID   string   `json:"eventId" validate:"required"`
	EventName string   `json:"eventName" validate:"required"`
	Position  *int     `json:"position" validate:"required,min=1"`
	Score     *float64 `json:"score" validate:"required"`
	Date      string   `json:"date" validate:"required"`
}

func (p *resultPayload) normalize() {
	p.Athlete = strings.TrimSpace(p.Athlete)
	p.EventID = strings.TrimSpace(p.EventID)
	p.EventName = strings.TrimSpace(p.EventName)
	p.Date = strings.TrimSpace(p.Date)
	if p.Club != nil {
		club := strings.TrimSpace(*p.Club)
		if club == "" {
			p.Club = nil
		} else {
			p.Club = &club
		}
	}
}

// toCommand must only be called after validation succeeded.
func (p resultPayload) toCommand() database.NewResult {
	return database.NewResult{
		Athlete:   p.Athlete,
		Club:      p.Club,
		EventID:   p.EventID,
		EventName: p.EventName,
		Position:  *p.Position,
		Score:     *p.Score,
		Date:      p.Date,
	}
}
