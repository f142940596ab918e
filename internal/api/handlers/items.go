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

type ItemHandler struct {
	db *gorm.DB
}

func NewItemHandler(db *gorm.DB) *ItemHandler {
	return &ItemHandler{db: db}
}

type CreateItemRequest struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Category           string   `json:"category"`
	Size               string   `json:"size"`
	Condition          string   `json:"condition"`
	PurchasePrice      float64  `json:"purchase_price"`
	RentalPrice        float64  `json:"rental_price"`
	IsAvailableForRent *bool    `json:"is_available_for_rent,omitempty"`
	IsAvailableForSale *bool    `json:"is_available_for_sale,omitempty"`
	Images             []string `json:"images"`
}

func (r CreateItemRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Title == "" {
		errors["title"] = "Title is required"
	}
	if r.Category == "" {
		errors["category"] = "Category is required"
	}
	if r.Size == "" {
		errors["size"] = "Size is required"
	}
	if r.Condition == "" {
		errors["condition"] = "Condition is required"
	}
	if r.PurchasePrice < 0 {
		errors["purchase_price"] = "Purchase price cannot be negative"
	}
	if r.RentalPrice < 0 {
		errors["rental_price"] = "Rental price cannot be negative"
	}
	return errors
}

// UpdateItemRequest carries partial update semantics: nil fields are left
// unchanged.
type UpdateItemRequest struct {
	Title              *string   `json:"title,omitempty"`
	Description        *string   `json:"description,omitempty"`
	Category           *string   `json:"category,omitempty"`
	Size               *string   `json:"size,omitempty"`
	Condition          *string   `json:"condition,omitempty"`
	PurchasePrice      *float64  `json:"purchase_price,omitempty"`
	RentalPrice        *float64  `json:"rental_price,omitempty"`
	IsAvailableForRent *bool     `json:"is_available_for_rent,omitempty"`
	IsAvailableForSale *bool     `json:"is_available_for_sale,omitempty"`
	Images             *[]string `json:"images,omitempty"`
}

type ItemResponse struct {
	ID                 string   `json:"id"`
	OwnerID            string   `json:"owner_id"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	Category           string   `json:"category"`
	Size               string   `json:"size"`
	Condition          string   `json:"condition"`
	PurchasePrice      float64  `json:"purchase_price"`
	RentalPrice        float64  `json:"rental_price"`
	IsAvailableForRent bool     `json:"is_available_for_rent"`
	IsAvailableForSale bool     `json:"is_available_for_sale"`
	Images             []string `json:"images"`
	IsBookmarked       *bool    `json:"is_bookmarked,omitempty"`
	CreatedAt          string   `json:"created_at"`
	UpdatedAt          string   `json:"updated_at"`
}

func itemToResponse(item *models.ClothingItem) ItemResponse {
	images := item.Images
	if images == nil {
		images = models.StringArray{}
	}
	return ItemResponse{
		ID:                 item.ID.String(),
		OwnerID:            item.OwnerID.String(),
		Title:              item.Title,
		Description:        item.Description,
		Category:           item.Category,
		Size:               item.Size,
		Condition:          item.Condition,
		PurchasePrice:      item.PurchasePrice,
		RentalPrice:        item.RentalPrice,
		IsAvailableForRent: item.IsAvailableForRent,
		IsAvailableForSale: item.IsAvailableForSale,
		Images:             images,
		CreatedAt:          item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          item.UpdatedAt.Format(time.RFC3339),
	}
}

type listedItem struct {
	models.ClothingItem
	IsBookmarked bool `gorm:"column:is_bookmarked"`
}

// List handles GET /api/items. All filters are optional; pagination is
// 1-based page/limit. Authenticated callers get their bookmark state
// joined in.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	pagination := parsePagination(r)

	query := h.db.Model(&models.ClothingItem{})

	if category := r.URL.Query().Get("category"); category != "" {
		query = query.Where("clothing_items.category = ?", category)
	}
	if size := r.URL.Query().Get("size"); size != "" {
		query = query.Where("clothing_items.size = ?", size)
	}
	if owner := r.URL.Query().Get("user"); owner != "" {
		if id, err := uuid.Parse(owner); err == nil {
			query = query.Where("clothing_items.owner_id = ?", id)
		}
	}
	if org := r.URL.Query().Get("organization"); org != "" {
		if id, err := uuid.Parse(org); err == nil {
			query = query.Where(
				"clothing_items.owner_id IN (?)",
				h.db.Model(&models.Membership{}).
					Select("user_id").
					Where("organization_id = ?", id),
			)
		}
	}

	// The destination struct carries is_bookmarked, so the column list
	// must be explicit in both branches; letting GORM derive it would
	// reference a column clothing_items does not have.
	authenticated := callerID != uuid.Nil
	if authenticated {
		query = query.
			Select("clothing_items.*, b.id IS NOT NULL AS is_bookmarked").
			Joins("LEFT JOIN bookmarks b ON b.item_id = clothing_items.id AND b.user_id = ?", callerID)
	} else {
		query = query.Select("clothing_items.*")
	}

	var rows []listedItem
	if err := query.
		Order("clothing_items.created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit).
		Find(&rows).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list items"})
		return
	}

	response := make([]ItemResponse, len(rows))
	for i := range rows {
		response[i] = itemToResponse(&rows[i].ClothingItem)
		if authenticated {
			bookmarked := rows[i].IsBookmarked
			response[i].IsBookmarked = &bookmarked
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// Create handles POST /api/items
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())

	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	item := models.ClothingItem{
		OwnerID:            callerID,
		Title:              req.Title,
		Description:        req.Description,
		Category:           req.Category,
		Size:               req.Size,
		Condition:          req.Condition,
		PurchasePrice:      req.PurchasePrice,
		RentalPrice:        req.RentalPrice,
		IsAvailableForRent: true,
		IsAvailableForSale: true,
		Images:             req.Images,
	}
	if req.IsAvailableForRent != nil {
		item.IsAvailableForRent = *req.IsAvailableForRent
	}
	if req.IsAvailableForSale != nil {
		item.IsAvailableForSale = *req.IsAvailableForSale
	}

	if err := h.db.Create(&item).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create item"})
		return
	}

	writeJSON(w, http.StatusCreated, itemToResponse(&item))
}

// Get handles GET /api/items/{id}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var item models.ClothingItem
	if err := h.db.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get item"})
		return
	}

	writeJSON(w, http.StatusOK, itemToResponse(&item))
}

// Update handles PUT /api/items/{id}. Absent rows yield 404; rows owned
// by someone else yield 403.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	itemID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	var item models.ClothingItem
	if err := h.db.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get item"})
		return
	}

	if !isOwner(item.OwnerID, callerID) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Not the item owner"})
		return
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Size != nil {
		updates["size"] = *req.Size
	}
	if req.Condition != nil {
		updates["condition"] = *req.Condition
	}
	if req.PurchasePrice != nil {
		updates["purchase_price"] = *req.PurchasePrice
	}
	if req.RentalPrice != nil {
		updates["rental_price"] = *req.RentalPrice
	}
	if req.IsAvailableForRent != nil {
		updates["is_available_for_rent"] = *req.IsAvailableForRent
	}
	if req.IsAvailableForSale != nil {
		updates["is_available_for_sale"] = *req.IsAvailableForSale
	}
	if req.Images != nil {
		updates["images"] = models.StringArray(*req.Images)
	}

	if len(updates) > 0 {
		if err := h.db.Model(&item).Updates(updates).Error; err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update item"})
			return
		}
	}

	writeJSON(w, http.StatusOK, itemToResponse(&item))
}

// Delete handles DELETE /api/items/{id}. Items with a PENDING or ACTIVE
// transaction cannot be deleted.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	itemID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var item models.ClothingItem
	if err := h.db.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get item"})
		return
	}

	if !isOwner(item.OwnerID, callerID) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Not the item owner"})
		return
	}

	var active int64
	if err := h.db.Model(&models.Transaction{}).
		Where("item_id = ? AND status IN ?", itemID, models.ActiveStatuses()).
		Count(&active).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to check transactions"})
		return
	}
	if active > 0 {
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Item has active transactions"})
		return
	}

	if err := h.db.Delete(&item).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete item"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Item deleted"})
}
