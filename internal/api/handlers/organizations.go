package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hugh/toga/internal/api/dto"
	"github.com/hugh/toga/internal/api/middleware"
	"github.com/hugh/toga/internal/database/models"
	"gorm.io/gorm"
)

type OrganizationHandler struct {
	db *gorm.DB
}

func NewOrganizationHandler(db *gorm.DB) *OrganizationHandler {
	return &OrganizationHandler{db: db}
}

type CreateOrganizationRequest struct {
	Name string `json:"name"`
}

type OrganizationResponse struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	MemberCount int64  `json:"member_count"`
	CreatedAt   string `json:"created_at"`
}

func organizationToResponse(o *models.Organization, memberCount int64) OrganizationResponse {
	return OrganizationResponse{
		ID:          o.ID.String(),
		OwnerID:     o.OwnerID.String(),
		Name:        o.Name,
		MemberCount: memberCount,
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
	}
}

// Create handles POST /api/organizations. The caller becomes the owner
// and its first member; names are unique.
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())

	var req CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"name": "Name is required"},
		})
		return
	}

	var existing models.Organization
	err := h.db.Where("name = ?", req.Name).First(&existing).Error
	switch {
	case err == nil:
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Organization name already taken"})
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create organization"})
		return
	}

	org := models.Organization{OwnerID: callerID, Name: req.Name}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		return tx.Create(&models.Membership{UserID: callerID, OrganizationID: org.ID}).Error
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create organization"})
		return
	}

	writeJSON(w, http.StatusCreated, organizationToResponse(&org, 1))
}

type organizationRow struct {
	models.Organization
	MemberCount int64 `gorm:"column:member_count"`
}

// List handles GET /api/organizations with member counts.
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	var rows []organizationRow
	err := h.db.Table("organizations").
		Select("organizations.*, COUNT(members.id) AS member_count").
		Joins("LEFT JOIN members ON members.organization_id = organizations.id").
		Group("organizations.id").
		Order("organizations.name ASC").
		Find(&rows).Error
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list organizations"})
		return
	}

	response := make([]OrganizationResponse, len(rows))
	for i := range rows {
		response[i] = organizationToResponse(&rows[i].Organization, rows[i].MemberCount)
	}

	writeJSON(w, http.StatusOK, response)
}

// Join handles POST /api/organizations/{id}/join. Joining twice is a
// no-op.
func (h *OrganizationHandler) Join(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	orgID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var org models.Organization
	if err := h.db.First(&org, "id = ?", orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Organization not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to join organization"})
		return
	}

	var membership models.Membership
	err := h.db.Where("user_id = ? AND organization_id = ?", callerID, orgID).
		First(&membership).Error
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Already a member"})
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to join organization"})
		return
	}

	membership = models.Membership{UserID: callerID, OrganizationID: orgID}
	if err := h.db.Create(&membership).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to join organization"})
		return
	}

	writeJSON(w, http.StatusCreated, dto.SuccessResponse{Message: "Joined organization"})
}

// Leave handles POST /api/organizations/{id}/leave. The owner cannot
// leave its own organization.
func (h *OrganizationHandler) Leave(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	orgID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var org models.Organization
	if err := h.db.First(&org, "id = ?", orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Organization not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to leave organization"})
		return
	}

	if org.OwnerID == callerID {
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Owner cannot leave the organization"})
		return
	}

	err := h.db.Where("user_id = ? AND organization_id = ?", callerID, orgID).
		Delete(&models.Membership{}).Error
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to leave organization"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Left organization"})
}

type MemberResponse struct {
	UserID            string `json:"user_id"`
	Username          string `json:"username"`
	FullName          string `json:"full_name,omitempty"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
	JoinedAt          string `json:"joined_at"`
}

type memberRow struct {
	UserID            string    `gorm:"column:user_id"`
	Username          string    `gorm:"column:username"`
	FullName          string    `gorm:"column:full_name"`
	ProfilePictureURL string    `gorm:"column:profile_picture_url"`
	JoinedAt          time.Time `gorm:"column:joined_at"`
}

// Members handles GET /api/organizations/{id}/members.
func (h *OrganizationHandler) Members(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var org models.Organization
	if err := h.db.First(&org, "id = ?", orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Organization not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list members"})
		return
	}

	var rows []memberRow
	err := h.db.Table("members").
		Select(`users.id AS user_id, users.username, users.full_name,
			users.profile_picture_url, members.created_at AS joined_at`).
		Joins("JOIN users ON users.id = members.user_id").
		Where("members.organization_id = ?", orgID).
		Order("members.created_at ASC").
		Find(&rows).Error
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list members"})
		return
	}

	response := make([]MemberResponse, len(rows))
	for i, row := range rows {
		response[i] = MemberResponse{
			UserID:            row.UserID,
			Username:          row.Username,
			FullName:          row.FullName,
			ProfilePictureURL: row.ProfilePictureURL,
			JoinedAt:          row.JoinedAt.Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, response)
}
