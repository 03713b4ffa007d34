/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *Request:  Request body types from clients
  - *Response: Response types returned to clients

DATES:
  Every date on the wire is "dd-MM-yyyy" (e.g. "18-03-2015"). parseDate and
  formatDate are the only places that know this layout.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Absence endpoints
  - users.go:    User, company and login endpoints
*/
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/personalman/absence-server/absence"
	"github.com/personalman/absence-server/calendar"
	"github.com/personalman/absence-server/directory"
)

// DateLayout is the external date form, dd-MM-yyyy.
const DateLayout = "02-01-2006"

func parseDate(field, s string) (calendar.Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return calendar.Date{}, fmt.Errorf("%s must be a date in dd-MM-yyyy format, got %q", field, s)
	}
	return calendar.FromTime(t), nil
}

func formatDate(d calendar.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(DateLayout)
}

// =============================================================================
// ABSENCES
// =============================================================================

// AbsenceRequest books an absence.
type AbsenceRequest struct {
	Company   string `json:"company"`
	Username  string `json:"username"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Category  string `json:"category"`
}

type BookingResponse struct {
	Accepted bool `json:"accepted"`
}

type AbsenceResponse struct {
	ID        string `json:"id"`
	Company   string `json:"company"`
	Username  string `json:"username"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Category  string `json:"category"`
}

// AbsencesResponse answers GET /api/absences. With onlyCount set, Count is a
// day total, the list is null and every statistic is zero.
type AbsencesResponse struct {
	Count         int               `json:"count"`
	Absences      []AbsenceResponse `json:"absenceResponseList"`
	StatisticsMap map[string]int    `json:"statisticsMap"`
}

type DeleteResponse struct {
	Deleted int `json:"deleted"`
}

func toAbsenceResponse(r absence.Record) AbsenceResponse {
	return AbsenceResponse{
		ID:        r.ID,
		Company:   r.Company,
		Username:  r.Username,
		StartDate: formatDate(r.Start),
		EndDate:   formatDate(r.End),
		Category:  r.Category.String(),
	}
}

// =============================================================================
// USERS
// =============================================================================

type UserRequest struct {
	Company                 string `json:"company"`
	Username                string `json:"username"`
	Password                string `json:"password"`
	FirstName               string `json:"firstName"`
	Surname                 string `json:"surname"`
	Position                string `json:"position"`
	LeaveEntitlementPerYear int    `json:"leaveEntitlementPerYear"`
	WorkingDays             string `json:"workingDays"`
	StartDate               string `json:"startDate"`
}

type UserResponse struct {
	Company                 string `json:"company"`
	Username                string `json:"username"`
	FirstName               string `json:"firstName"`
	Surname                 string `json:"surname"`
	Position                string `json:"position"`
	LeaveEntitlementPerYear int    `json:"leaveEntitlementPerYear"`
	WorkingDays             string `json:"workingDays"`
	StartDate               string `json:"startDate,omitempty"`
}

type UsersResponse struct {
	Count int            `json:"count"`
	Users []UserResponse `json:"userResponses"`
}

func toUserResponse(u directory.User) UserResponse {
	return UserResponse{
		Company:                 u.Company,
		Username:                u.Username,
		FirstName:               u.FirstName,
		Surname:                 u.Surname,
		Position:                u.Position,
		LeaveEntitlementPerYear: u.LeaveEntitlementPerYear,
		WorkingDays:             u.WorkingDays.String(),
		StartDate:               formatDate(u.StartDate),
	}
}

type LoginRequest struct {
	Company  string `json:"company"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// =============================================================================
// COMPANIES
// =============================================================================

type CompanyRequest struct {
	Name                     string `json:"name"`
	DefaultAnnualLeaveInDays int    `json:"defaultAnnualLeaveInDays"`
	Country                  string `json:"country"`
}

type CompanyResponse struct {
	Name                     string `json:"name"`
	DefaultAnnualLeaveInDays int    `json:"defaultAnnualLeaveInDays"`
	Country                  string `json:"country"`
}

func toCompanyResponse(c directory.Company) CompanyResponse {
	return CompanyResponse{
		Name:                     c.Name,
		DefaultAnnualLeaveInDays: c.DefaultAnnualLeaveInDays,
		Country:                  c.Country,
	}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
