package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/toga/internal/api/dto"
	"github.com/hugh/toga/internal/api/middleware"
	"github.com/hugh/toga/internal/database/models"
	"gorm.io/gorm"
)

// eventDisplayWindow is how long an event stays in its display window
// after its start date.
const eventDisplayWindow = 3 * 24 * time.Hour

type EventHandler struct {
	db *gorm.DB
}

func NewEventHandler(db *gorm.DB) *EventHandler {
	return &EventHandler{db: db}
}

type CreateEventRequest struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	EventDate      time.Time `json:"event_date"`
	Location       string    `json:"location"`
	ImageURL       string    `json:"image_url"`
	OrganizationID *string   `json:"organization_id,omitempty"`
}

func (r CreateEventRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Title == "" {
		errors["title"] = "Title is required"
	}
	if r.EventDate.IsZero() {
		errors["event_date"] = "Event date is required"
	}
	if r.OrganizationID != nil {
		if _, err := uuid.Parse(*r.OrganizationID); err != nil {
			errors["organization_id"] = "Invalid organization ID format"
		}
	}
	return errors
}

type UpdateEventRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	EventDate   *time.Time `json:"event_date,omitempty"`
	Location    *string    `json:"location,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
}

type EventResponse struct {
	ID              string    `json:"id"`
	CreatorID       string    `json:"creator_id"`
	CreatorUsername string    `json:"creator_username,omitempty"`
	OrganizationID  *string   `json:"organization_id,omitempty"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	EventDate       time.Time `json:"event_date"`
	EventBegin      time.Time `json:"event_begin"`
	EventEnd        time.Time `json:"event_end"`
	Location        string    `json:"location,omitempty"`
	ImageURL        string    `json:"image_url,omitempty"`
	CreatedAt       string    `json:"created_at"`
}

func eventToResponse(e *models.Event, creatorUsername string) EventResponse {
	resp := EventResponse{
		ID:              e.ID.String(),
		CreatorID:       e.CreatorID.String(),
		CreatorUsername: creatorUsername,
		Title:           e.Title,
		Description:     e.Description,
		EventDate:       e.EventDate,
		EventBegin:      e.EventDate,
		EventEnd:        e.EventDate.Add(eventDisplayWindow),
		Location:        e.Location,
		ImageURL:        e.ImageURL,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
	if e.OrganizationID != nil {
		orgID := e.OrganizationID.String()
		resp.OrganizationID = &orgID
	}
	return resp
}

// Create handles POST /api/events. The creator is always the caller; an
// organization scope is optional and must reference an existing org.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	event := models.Event{
		CreatorID:   callerID,
		Title:       req.Title,
		Description: req.Description,
		EventDate:   req.EventDate,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
	}

	if req.OrganizationID != nil {
		orgID, _ := uuid.Parse(*req.OrganizationID)
		var org models.Organization
		if err := h.db.First(&org, "id = ?", orgID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Organization not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create event"})
			return
		}
		event.OrganizationID = &orgID
	}

	if err := h.db.Create(&event).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create event"})
		return
	}

	writeJSON(w, http.StatusCreated, eventToResponse(&event, h.creatorUsername(callerID)))
}

// creatorUsername resolves a creator's username for write responses, so
// they carry the same fields as List and Get. A lookup failure degrades
// to an empty username rather than failing the write.
func (h *EventHandler) creatorUsername(creatorID uuid.UUID) string {
	var creator models.User
	if err := h.db.Select("username").First(&creator, "id = ?", creatorID).Error; err != nil {
		return ""
	}
	return creator.Username
}

type eventRow struct {
	models.Event
	CreatorUsername string `gorm:"column:creator_username"`
}

// List handles GET /api/events, optionally filtered by organization,
// soonest first.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	query := h.db.Table("events").
		Select("events.*, users.username AS creator_username").
		Joins("JOIN users ON users.id = events.creator_id")

	if org := r.URL.Query().Get("organization"); org != "" {
		if id, err := uuid.Parse(org); err == nil {
			query = query.Where("events.organization_id = ?", id)
		}
	}

	var rows []eventRow
	if err := query.Order("events.event_date ASC").Find(&rows).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list events"})
		return
	}

	response := make([]EventResponse, len(rows))
	for i := range rows {
		response[i] = eventToResponse(&rows[i].Event, rows[i].CreatorUsername)
	}

	writeJSON(w, http.StatusOK, response)
}

// Get handles GET /api/events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var row eventRow
	err := h.db.Table("events").
		Select("events.*, users.username AS creator_username").
		Joins("JOIN users ON users.id = events.creator_id").
		Where("events.id = ?", eventID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Event not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get event"})
		return
	}

	writeJSON(w, http.StatusOK, eventToResponse(&row.Event, row.CreatorUsername))
}

// Update handles PUT /api/events/{id}. Creator-gated partial update.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	eventID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	var event models.Event
	if err := h.db.First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Event not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get event"})
		return
	}

	if !isOwner(event.CreatorID, callerID) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Not the event creator"})
		return
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.EventDate != nil {
		updates["event_date"] = *req.EventDate
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}

	if len(updates) > 0 {
		if err := h.db.Model(&event).Updates(updates).Error; err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update event"})
			return
		}
	}

	writeJSON(w, http.StatusOK, eventToResponse(&event, h.creatorUsername(event.CreatorID)))
}

// Delete handles DELETE /api/events/{id}. Creator-gated; attached
// listings go with the event.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	eventID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var event models.Event
	if err := h.db.First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Event not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get event"})
		return
	}

	if !isOwner(event.CreatorID, callerID) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Not the event creator"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Delete(&models.EventListing{}).Error; err != nil {
			return err
		}
		return tx.Delete(&event).Error
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete event"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Event deleted"})
}

type AttachListingRequest struct {
	ItemID string `json:"item_id"`
}

// AttachListing handles POST /api/events/{id}/listings. Only the item's
// owner may list it; re-attaching is a no-op.
func (h *EventHandler) AttachListing(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	eventID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req AttachListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"item_id": "Invalid item ID format"},
		})
		return
	}

	var event models.Event
	if err := h.db.First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Event not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to attach listing"})
		return
	}

	var item models.ClothingItem
	if err := h.db.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to attach listing"})
		return
	}

	if !isOwner(item.OwnerID, callerID) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Not the item owner"})
		return
	}

	var listing models.EventListing
	err = h.db.Where("event_id = ? AND item_id = ?", eventID, itemID).First(&listing).Error
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, listing)
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to attach listing"})
		return
	}

	listing = models.EventListing{EventID: eventID, ItemID: itemID}
	if err := h.db.Create(&listing).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to attach listing"})
		return
	}

	writeJSON(w, http.StatusCreated, listing)
}

// DetachListing handles DELETE /api/events/{id}/listings/{itemId}.
func (h *EventHandler) DetachListing(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	eventID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemId")
	if !ok {
		return
	}

	var item models.ClothingItem
	if err := h.db.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to detach listing"})
		return
	}

	if !isOwner(item.OwnerID, callerID) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Not the item owner"})
		return
	}

	err := h.db.Where("event_id = ? AND item_id = ?", eventID, itemID).
		Delete(&models.EventListing{}).Error
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to detach listing"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Listing removed"})
}

// Listings handles GET /api/events/{id}/listings: the items attached to
// an event.
func (h *EventHandler) Listings(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var event models.Event
	if err := h.db.First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Event not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list event items"})
		return
	}

	var listings []models.EventListing
	err := h.db.Preload("Item").
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&listings).Error
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list event items"})
		return
	}

	response := make([]ItemResponse, 0, len(listings))
	for i := range listings {
		if listings[i].Item == nil {
			continue
		}
		response = append(response, itemToResponse(listings[i].Item))
	}

	writeJSON(w, http.StatusOK, response)
}
