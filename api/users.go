package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/personalman/absence-server/calendar"
	"github.com/personalman/absence-server/directory"
)

// =============================================================================
// COMPANY HANDLERS
// =============================================================================

func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req CompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c := directory.Company{
		Name:                     trimmed(req.Name),
		DefaultAnnualLeaveInDays: req.DefaultAnnualLeaveInDays,
		Country:                  trimmed(req.Country),
	}
	if err := h.Directory.RegisterCompany(r.Context(), c); err != nil {
		writeDomainError(w, r, "Failed to create company", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCompanyResponse(c))
}

func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Directory.Companies(r.Context())
	if err != nil {
		writeDomainError(w, r, "Failed to list companies", err)
		return
	}
	out := make([]CompanyResponse, len(companies))
	for i, c := range companies {
		out[i] = toCompanyResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	c, err := h.Directory.Company(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeDomainError(w, r, "Failed to get company", err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyResponse(c))
}

// DeleteCompany removes the company with every user and absence it owns.
func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.Auth.allowCompany(r, name) {
		writeError(w, http.StatusForbidden, "Token not valid for this company", nil)
		return
	}
	if err := h.Directory.DeleteCompany(r.Context(), name); err != nil {
		writeDomainError(w, r, "Failed to delete company", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// CreateUser registers a user. Working days default to Monday to Friday.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	week := calendar.MondayToFriday()
	if trimmed(req.WorkingDays) != "" {
		parsed, err := calendar.ParseWorkWeek(req.WorkingDays)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid workingDays", err)
			return
		}
		week = parsed
	}
	var start calendar.Date
	if trimmed(req.StartDate) != "" {
		d, err := parseDate("startDate", req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid startDate", err)
			return
		}
		start = d
	}

	u, err := h.Directory.RegisterUser(r.Context(), directory.Registration{
		User: directory.User{
			Company:                 req.Company,
			Username:                req.Username,
			FirstName:               trimmed(req.FirstName),
			Surname:                 trimmed(req.Surname),
			Position:                trimmed(req.Position),
			LeaveEntitlementPerYear: req.LeaveEntitlementPerYear,
			WorkingDays:             week,
			StartDate:               start,
		},
		Password: req.Password,
	})
	if err != nil {
		writeDomainError(w, r, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// ListUsers returns every user of ?company=.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	if company == "" {
		writeError(w, http.StatusBadRequest, "company is required", nil)
		return
	}
	if !h.Auth.allowCompany(r, company) {
		writeError(w, http.StatusForbidden, "Token not valid for this company", nil)
		return
	}

	users, err := h.Directory.Users(r.Context(), company)
	if err != nil {
		writeDomainError(w, r, "Failed to list users", err)
		return
	}
	resp := UsersResponse{Count: len(users), Users: make([]UserResponse, len(users))}
	for i, u := range users {
		resp.Users[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	company := chi.URLParam(r, "company")
	if !h.Auth.allowCompany(r, company) {
		writeError(w, http.StatusForbidden, "Token not valid for this company", nil)
		return
	}
	u, err := h.Directory.User(r.Context(), company, chi.URLParam(r, "username"))
	if err != nil {
		writeDomainError(w, r, "Failed to get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	company := chi.URLParam(r, "company")
	if !h.Auth.allowCompany(r, company) {
		writeError(w, http.StatusForbidden, "Token not valid for this company", nil)
		return
	}
	if err := h.Directory.DeleteUser(r.Context(), company, chi.URLParam(r, "username")); err != nil {
		writeDomainError(w, r, "Failed to delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Login exchanges credentials for a bearer token. Without a configured
// secret there is nothing to issue and the route answers 404.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Auth == nil {
		writeError(w, http.StatusNotFound, "Authentication is disabled", nil)
		return
	}
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	u, err := h.Directory.Authenticate(r.Context(), req.Company, req.Username, req.Password)
	if err != nil {
		writeDomainError(w, r, "Login failed", err)
		return
	}
	token, expiresAt, err := h.Auth.IssueToken(u)
	if err != nil {
		writeDomainError(w, r, "Failed to issue token", err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt})
}
