/*
handlers.go - HTTP API handlers for the absence server

PURPOSE:
  Exposes the absence engine and the employee directory via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  absence.Service and directory.Service.

ENDPOINTS:
  Absences:
    POST   /api/absences                 Book an absence
    GET    /api/absences                 Find (or count with onlyCount=true)
    DELETE /api/absences                 Delete every absence in a window

  Users:
    POST   /api/users                    Register a user
    GET    /api/users?company=           List a company's users
    GET    /api/users/{company}/{username}
    DELETE /api/users/{company}/{username}
    POST   /api/users/login              Issue a token (when auth is enabled)

  Companies:
    POST   /api/companies                Register a company
    GET    /api/companies                List companies
    GET    /api/companies/{name}
    DELETE /api/companies/{name}         Delete with all users and absences

QUERY PARAMETERS (GET/DELETE /api/absences):
  company (required), username (optional, empty = whole company),
  startDate and endDate (dd-MM-yyyy, required), category, onlyCount.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, unknown category
  - 401: Missing or invalid token
  - 403: Token scoped to another company
  - 404: Employee or company not found
  - 409: Duplicate user, company or absence
  - 422: Booking rejected by policy
  - 500: Internal errors

SEE ALSO:
  - dto.go:    Request/response data structures
  - users.go:  User and company handlers
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/httplog/v3"

	"github.com/personalman/absence-server/absence"
	"github.com/personalman/absence-server/calendar"
	"github.com/personalman/absence-server/directory"
)

// MaxBookingDays caps the span of a single booking at two calendar years,
// the widest range a holiday can be split across. Query windows are not
// capped.
const MaxBookingDays = 2 * 366

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Absences  *absence.Service
	Directory *directory.Service

	// Auth is nil when authentication is disabled.
	Auth *Auth
}

func NewHandler(absences *absence.Service, dir *directory.Service, auth *Auth) *Handler {
	return &Handler{Absences: absences, Directory: dir, Auth: auth}
}

// =============================================================================
// ABSENCE HANDLERS
// =============================================================================

// BookAbsence books an absence. 201 when accepted, 422 when a policy rejects.
func (h *Handler) BookAbsence(w http.ResponseWriter, r *http.Request) {
	var req AbsenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Company == "" || req.Username == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, "company, username and category are required", nil)
		return
	}
	category, ok := absence.ParseCategory(req.Category)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown category", errors.New(req.Category))
		return
	}
	period, err := parsePeriod(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}
	if period.Len() > MaxBookingDays {
		writeError(w, http.StatusBadRequest, "Invalid period",
			fmt.Errorf("a booking may cover at most %d days, got %d", MaxBookingDays, period.Len()))
		return
	}
	if !h.Auth.allowCompany(r, req.Company) {
		writeError(w, http.StatusForbidden, "Token not valid for this company", nil)
		return
	}

	httplog.SetAttrs(r.Context(),
		slog.String("absence.company", req.Company),
		slog.String("absence.username", req.Username),
		slog.String("absence.category", category.String()),
	)

	accepted, err := h.Absences.Book(r.Context(), absence.Request{
		Company:  req.Company,
		Username: req.Username,
		Start:    period.Start,
		End:      period.End,
		Category: category,
	})
	if err != nil {
		writeDomainError(w, r, "Failed to book absence", err)
		return
	}
	if !accepted {
		writeJSON(w, http.StatusUnprocessableEntity, BookingResponse{Accepted: false})
		return
	}
	writeJSON(w, http.StatusCreated, BookingResponse{Accepted: true})
}

// FindAbsences lists absences in a window, or returns a day count for one
// category when onlyCount=true.
func (h *Handler) FindAbsences(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	params := r.URL.Query()

	onlyCount := false
	if v := params.Get("onlyCount"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "onlyCount must be true or false", err)
			return
		}
		onlyCount = b
	}

	var (
		category    absence.Category
		hasCategory bool
	)
	if v := params.Get("category"); v != "" {
		if category, hasCategory = absence.ParseCategory(v); !hasCategory {
			writeError(w, http.StatusBadRequest, "Unknown category", errors.New(v))
			return
		}
	}

	if onlyCount {
		if !hasCategory {
			writeError(w, http.StatusBadRequest, "category is required with onlyCount", nil)
			return
		}
		n, err := h.Absences.Count(r.Context(), q, category)
		if err != nil {
			writeDomainError(w, r, "Failed to count absences", err)
			return
		}
		writeJSON(w, http.StatusOK, AbsencesResponse{
			Count:         n,
			StatisticsMap: absence.AggregateStatistics(nil),
		})
		return
	}

	records, err := h.Absences.Find(r.Context(), q)
	if err != nil {
		writeDomainError(w, r, "Failed to find absences", err)
		return
	}
	if hasCategory {
		filtered := records[:0]
		for _, rec := range records {
			if rec.Category == category {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	dtos := make([]AbsenceResponse, len(records))
	for i, rec := range records {
		dtos[i] = toAbsenceResponse(rec)
	}
	writeJSON(w, http.StatusOK, AbsencesResponse{
		Count:         len(records),
		Absences:      dtos,
		StatisticsMap: absence.AggregateStatistics(records),
	})
}

// DeleteAbsences removes every absence in the window.
func (h *Handler) DeleteAbsences(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	n, err := h.Absences.Delete(r.Context(), q)
	if err != nil {
		writeDomainError(w, r, "Failed to delete absences", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: n})
}

// parseQuery reads company, username, startDate and endDate. On failure it
// has already written the response.
func (h *Handler) parseQuery(w http.ResponseWriter, r *http.Request) (absence.Query, bool) {
	params := r.URL.Query()
	company := params.Get("company")
	if company == "" {
		writeError(w, http.StatusBadRequest, "company is required", nil)
		return absence.Query{}, false
	}
	period, err := parsePeriod(params.Get("startDate"), params.Get("endDate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return absence.Query{}, false
	}
	if !h.Auth.allowCompany(r, company) {
		writeError(w, http.StatusForbidden, "Token not valid for this company", nil)
		return absence.Query{}, false
	}
	return absence.Query{Company: company, Username: params.Get("username"), Period: period}, true
}

func parsePeriod(start, end string) (calendar.Period, error) {
	from, err := parseDate("startDate", start)
	if err != nil {
		return calendar.Period{}, err
	}
	to, err := parseDate("endDate", end)
	if err != nil {
		return calendar.Period{}, err
	}
	if to.Before(from) {
		return calendar.Period{}, absence.ErrInvalidPeriod
	}
	return calendar.NewPeriod(from, to), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine and directory errors to a status code.
// Unmapped errors are 500 and attached to the request log.
func writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case absence.IsNotFound(err), directory.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case absence.IsConflict(err), directory.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case absence.IsClientError(err), errors.Is(err, directory.ErrValidation):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, directory.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, message, err)
	default:
		httplog.SetError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, message, nil)
	}
}

func trimmed(s string) string { return strings.TrimSpace(s) }
