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

type BookmarkHandler struct {
	db *gorm.DB
}

func NewBookmarkHandler(db *gorm.DB) *BookmarkHandler {
	return &BookmarkHandler{db: db}
}

type CreateBookmarkRequest struct {
	ItemID string `json:"clothing_item_id"`
}

type BookmarkResponse struct {
	ID        string       `json:"id"`
	ItemID    string       `json:"clothing_item_id"`
	Item      ItemResponse `json:"item"`
	CreatedAt string       `json:"created_at"`
}

// Add handles POST /api/bookmarks. Bookmarking an already-bookmarked
// item returns the existing bookmark rather than an error.
func (h *BookmarkHandler) Add(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())

	var req CreateBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"clothing_item_id": "Invalid item ID format"},
		})
		return
	}

	var item models.ClothingItem
	if err := h.db.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create bookmark"})
		return
	}

	var bookmark models.Bookmark
	err = h.db.Where("user_id = ? AND item_id = ?", callerID, itemID).First(&bookmark).Error
	switch {
	case err == nil:
		// Already bookmarked.
		writeJSON(w, http.StatusOK, bookmarkToResponse(&bookmark, &item))
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create bookmark"})
		return
	}

	bookmark = models.Bookmark{UserID: callerID, ItemID: itemID}
	if err := h.db.Create(&bookmark).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create bookmark"})
		return
	}

	writeJSON(w, http.StatusCreated, bookmarkToResponse(&bookmark, &item))
}

// Remove handles DELETE /api/bookmarks/{itemId}. Removing a bookmark
// that does not exist is a no-op success.
func (h *BookmarkHandler) Remove(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	itemID, ok := pathID(w, r, "itemId")
	if !ok {
		return
	}

	h.remove(w, callerID, itemID)
}

// RemoveBody handles POST /api/bookmarks/remove, the body-addressed
// form of Remove.
func (h *BookmarkHandler) RemoveBody(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())

	var req CreateBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"clothing_item_id": "Invalid item ID format"},
		})
		return
	}

	h.remove(w, callerID, itemID)
}

func (h *BookmarkHandler) remove(w http.ResponseWriter, callerID, itemID uuid.UUID) {
	err := h.db.Where("user_id = ? AND item_id = ?", callerID, itemID).
		Delete(&models.Bookmark{}).Error
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to remove bookmark"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Bookmark removed"})
}

// List handles GET /api/bookmarks: the caller's bookmarks with the
// bookmarked items joined in, newest first.
func (h *BookmarkHandler) List(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())

	var bookmarks []models.Bookmark
	err := h.db.Preload("Item").
		Where("user_id = ?", callerID).
		Order("created_at DESC").
		Find(&bookmarks).Error
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list bookmarks"})
		return
	}

	response := make([]BookmarkResponse, 0, len(bookmarks))
	for i := range bookmarks {
		if bookmarks[i].Item == nil {
			continue
		}
		response = append(response, bookmarkToResponse(&bookmarks[i], bookmarks[i].Item))
	}

	writeJSON(w, http.StatusOK, response)
}

func bookmarkToResponse(b *models.Bookmark, item *models.ClothingItem) BookmarkResponse {
	resp := itemToResponse(item)
	bookmarked := true
	resp.IsBookmarked = &bookmarked
	return BookmarkResponse{
		ID:        b.ID.String(),
		ItemID:    b.ItemID.String(),
		Item:      resp,
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
	}
}
