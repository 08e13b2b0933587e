package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tintaria/internal/listing"
	applog "tintaria/internal/log"
	"tintaria/models"
)

type employeeRequest struct {
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	Role       string          `json:"role"`
	Department string          `json:"department"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	HiredAt    *time.Time      `json:"hired_at"`
	Active     *bool           `json:"active"`
}

type employeeResponse struct {
	ID         uint            `json:"id"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	Role       string          `json:"role,omitempty"`
	Department string          `json:"department,omitempty"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone,omitempty"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	HiredAt    *time.Time      `json:"hired_at,omitempty"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type employeeListResponse struct {
	Items      []employeeResponse `json:"items"`
	TotalCount int64              `json:"total_count"`
	Offset     int                `json:"offset"`
	HasMore    bool               `json:"has_more"`
}

// EmployeeResource handles CRUD interactions for the staff directory.
func EmployeeResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "employee request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/employees")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listEmployees(w, r)
		case http.MethodPost:
			createEmployee(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid employee identifier", "identifier", path, "error", err)
		http.NotFound(w, r)
		return
	}
	employeeID := uint(idValue)

	switch r.Method {
	case http.MethodGet:
		showEmployee(w, r, employeeID)
	case http.MethodPut:
		updateEmployee(w, r, employeeID)
	case http.MethodDelete:
		deleteEmployee(w, r, employeeID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listEmployees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := listing.QueryFromRequest(r)

	source := listing.GormSource[models.Employee]{
		DB:            database,
		SearchColumns: []string{"first_name", "last_name", "email", "role", "department"},
		Order:         "last_name asc, first_name asc, id asc",
	}
	if department := strings.TrimSpace(r.URL.Query().Get("department")); department != "" {
		source.Scope = func(db *gorm.DB) *gorm.DB {
			return db.Where("lower(department) = ?", strings.ToLower(department))
		}
	}

	page, err := source.Fetch(ctx, query)
	if err != nil {
		applog.Error(ctx, "failed to list employees", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load employees")
		return
	}

	response := employeeListResponse{
		Items:      make([]employeeResponse, 0, len(page.Items)),
		TotalCount: page.TotalCount,
		Offset:     page.Offset,
		HasMore:    page.HasMore,
	}
	for _, employee := range page.Items {
		response.Items = append(response.Items, projectEmployee(employee))
	}

	writeJSON(w, http.StatusOK, response)
}

func showEmployee(w http.ResponseWriter, r *http.Request, employeeID uint) {
	ctx := r.Context()
	var employee models.Employee
	if err := database.WithContext(ctx).First(&employee, employeeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load employee", "error", err, "id", employeeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load employee")
		return
	}

	writeJSON(w, http.StatusOK, projectEmployee(employee))
}

func createEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid employee create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateEmployeePayload(payload); err != nil {
		applog.Debug(ctx, "employee validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	employee := models.Employee{
		FirstName:  strings.TrimSpace(payload.FirstName),
		LastName:   strings.TrimSpace(payload.LastName),
		Role:       strings.TrimSpace(payload.Role),
		Department: strings.TrimSpace(payload.Department),
		Email:      strings.ToLower(strings.TrimSpace(payload.Email)),
		Phone:      strings.TrimSpace(payload.Phone),
		HourlyRate: payload.HourlyRate,
		HiredAt:    payload.HiredAt,
		Active:     true,
	}
	if payload.Active != nil {
		employee.Active = *payload.Active
	}

	if err := database.WithContext(ctx).Create(&employee).Error; err != nil {
		applog.Error(ctx, "failed to create employee", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to create employee")
		return
	}

	writeJSON(w, http.StatusCreated, projectEmployee(employee))
}

func updateEmployee(w http.ResponseWriter, r *http.Request, employeeID uint) {
	ctx := r.Context()
	var existing models.Employee
	if err := database.WithContext(ctx).First(&existing, employeeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load employee for update", "error", err, "id", employeeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load employee")
		return
	}

	var payload employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid employee update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateEmployeePayload(payload); err != nil {
		applog.Debug(ctx, "employee update validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	updates := map[string]any{
		"first_name":  strings.TrimSpace(payload.FirstName),
		"last_name":   strings.TrimSpace(payload.LastName),
		"role":        strings.TrimSpace(payload.Role),
		"department":  strings.TrimSpace(payload.Department),
		"email":       strings.ToLower(strings.TrimSpace(payload.Email)),
		"phone":       strings.TrimSpace(payload.Phone),
		"hourly_rate": payload.HourlyRate,
		"hired_at":    payload.HiredAt,
	}
	if payload.Active != nil {
		updates["active"] = *payload.Active
	}

	if err := database.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		applog.Error(ctx, "failed to update employee", "error", err, "id", employeeID)
		writeJSONError(w, http.StatusBadRequest, "unable to update employee")
		return
	}

	if err := database.WithContext(ctx).First(&existing, employeeID).Error; err != nil {
		applog.Error(ctx, "failed to reload updated employee", "error", err, "id", employeeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load employee")
		return
	}

	writeJSON(w, http.StatusOK, projectEmployee(existing))
}

func deleteEmployee(w http.ResponseWriter, r *http.Request, employeeID uint) {
	ctx := r.Context()

	var inUse int64
	if err := database.WithContext(ctx).
		Model(&models.Production{}).
		Where("operator_id = ?", employeeID).
		Count(&inUse).Error; err != nil {
		applog.Error(ctx, "failed to count employee references", "error", err, "id", employeeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete employee")
		return
	}
	if inUse > 0 {
		writeJSONError(w, http.StatusConflict, "employee is referenced by production records")
		return
	}

	if err := database.WithContext(ctx).Delete(&models.Employee{}, employeeID).Error; err != nil {
		applog.Error(ctx, "failed to delete employee", "error", err, "id", employeeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete employee")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func projectEmployee(employee models.Employee) employeeResponse {
	return employeeResponse{
		ID:         employee.ID,
		FirstName:  employee.FirstName,
		LastName:   employee.LastName,
		Role:       employee.Role,
		Department: employee.Department,
		Email:      employee.Email,
		Phone:      employee.Phone,
		HourlyRate: employee.HourlyRate,
		HiredAt:    employee.HiredAt,
		Active:     employee.Active,
		CreatedAt:  employee.CreatedAt,
		UpdatedAt:  employee.UpdatedAt,
	}
}

func validateEmployeePayload(payload employeeRequest) error {
	if strings.TrimSpace(payload.FirstName) == "" {
		return errors.New("first_name is required")
	}
	if strings.TrimSpace(payload.LastName) == "" {
		return errors.New("last_name is required")
	}
	if strings.TrimSpace(payload.Email) == "" {
		return errors.New("email is required")
	}
	if payload.HourlyRate.IsNegative() {
		return errors.New("hourly_rate cannot be negative")
	}
	return nil
}
