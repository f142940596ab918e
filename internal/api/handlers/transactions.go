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
	"gorm.io/gorm/clause"
)

type TransactionHandler struct {
	db *gorm.DB
}

func NewTransactionHandler(db *gorm.DB) *TransactionHandler {
	return &TransactionHandler{db: db}
}

type CreateTransactionRequest struct {
	ItemID          string     `json:"item_id"`
	TransactionType string     `json:"transaction_type"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
}

func (r CreateTransactionRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.ItemID == "" {
		errors["item_id"] = "Item ID is required"
	} else if _, err := uuid.Parse(r.ItemID); err != nil {
		errors["item_id"] = "Invalid item ID format"
	}
	switch models.TransactionType(r.TransactionType) {
	case models.TransactionTypeRent, models.TransactionTypeBuy:
	default:
		errors["transaction_type"] = "Transaction type must be RENT or BUY"
	}
	return errors
}

type TransactionResponse struct {
	ID              string     `json:"id"`
	ItemID          string     `json:"item_id"`
	BuyerID         string     `json:"buyer_id"`
	SellerID        string     `json:"seller_id"`
	TransactionType string     `json:"transaction_type"`
	Status          string     `json:"status"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	Price           float64    `json:"price"`
	CreatedAt       string     `json:"created_at"`
}

func transactionToResponse(t *models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID.String(),
		ItemID:          t.ItemID.String(),
		BuyerID:         t.BuyerID.String(),
		SellerID:        t.SellerID.String(),
		TransactionType: string(t.TransactionType),
		Status:          string(t.Status),
		StartDate:       t.StartDate,
		EndDate:         t.EndDate,
		Price:           t.Price,
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
	}
}

var (
	errItemNotFound    = errors.New("item not found")
	errItemUnavailable = errors.New("item unavailable")
)

// Create handles POST /api/transactions. The price is snapshotted from
// the item at creation time, the availability flag for the requested type
// must be set, and the whole read-then-insert runs atomically with a row
// lock on the item.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())

	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	itemID, _ := uuid.Parse(req.ItemID)
	txType := models.TransactionType(req.TransactionType)

	var created models.Transaction
	err := h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		itemQuery := tx
		// SQLite (tests) serializes writers inside a transaction; the
		// row lock only applies on Postgres.
		if tx.Dialector.Name() == "postgres" {
			itemQuery = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var item models.ClothingItem
		if err := itemQuery.First(&item, "id = ?", itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errItemNotFound
			}
			return err
		}

		price := item.PurchasePrice
		available := item.IsAvailableForSale
		if txType == models.TransactionTypeRent {
			price = item.RentalPrice
			available = item.IsAvailableForRent
		}
		if !available {
			return errItemUnavailable
		}

		created = models.Transaction{
			ItemID:          item.ID,
			BuyerID:         callerID,
			SellerID:        item.OwnerID,
			TransactionType: txType,
			Status:          models.TransactionStatusPending,
			StartDate:       req.StartDate,
			EndDate:         req.EndDate,
			Price:           price,
		}
		return tx.Create(&created).Error
	})

	if err != nil {
		switch {
		case errors.Is(err, errItemNotFound):
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Item not found"})
		case errors.Is(err, errItemUnavailable):
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Item is not available for this transaction type"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create transaction"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, transactionToResponse(&created))
}

type myTransactionRow struct {
	models.Transaction
	ItemTitle          string             `gorm:"column:item_title"`
	ItemImages         models.StringArray `gorm:"column:item_images"`
	OtherPartyUsername string             `gorm:"column:other_party_username"`
}

type MyTransactionResponse struct {
	TransactionResponse
	ItemTitle          string   `json:"item_title"`
	ItemImages         []string `json:"item_images"`
	OtherPartyUsername string   `json:"other_party_username"`
}

// ListMine handles GET /api/transactions/my-transactions: everything the
// caller participates in as buyer or seller, newest first, with the item
// and the counterpart's username joined in.
func (h *TransactionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())

	var rows []myTransactionRow
	err := h.db.Table("transactions").
		Select(`transactions.*,
			clothing_items.title AS item_title,
			clothing_items.images AS item_images,
			users.username AS other_party_username`).
		Joins("JOIN clothing_items ON clothing_items.id = transactions.item_id").
		Joins(`JOIN users ON users.id = CASE
			WHEN transactions.buyer_id = ? THEN transactions.seller_id
			ELSE transactions.buyer_id END`, callerID).
		Where("transactions.buyer_id = ? OR transactions.seller_id = ?", callerID, callerID).
		Order("transactions.created_at DESC").
		Find(&rows).Error
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list transactions"})
		return
	}

	response := make([]MyTransactionResponse, len(rows))
	for i := range rows {
		images := rows[i].ItemImages
		if images == nil {
			images = models.StringArray{}
		}
		response[i] = MyTransactionResponse{
			TransactionResponse: transactionToResponse(&rows[i].Transaction),
			ItemTitle:           rows[i].ItemTitle,
			ItemImages:          images,
			OtherPartyUsername:  rows[i].OtherPartyUsername,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PUT /api/transactions/{id}/status. Only the buyer
// or seller may move a transaction, and only along the allowed
// transitions; terminal states are locked.
func (h *TransactionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	txID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if !models.ValidTransactionStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"status": "Status must be one of PENDING, ACTIVE, COMPLETED, CANCELLED"},
		})
		return
	}
	newStatus := models.TransactionStatus(req.Status)

	var txn models.Transaction
	// Participation is part of the lookup, so outsiders see the same 404
	// as a missing row.
	err := h.db.
		Where("id = ? AND (buyer_id = ? OR seller_id = ?)", txID, callerID, callerID).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Transaction not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get transaction"})
		return
	}

	if !models.CanTransition(txn.Status, newStatus) {
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{
			Error: "Invalid status transition from " + string(txn.Status) + " to " + string(newStatus),
		})
		return
	}

	if err := h.db.Model(&txn).Update("status", newStatus).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update transaction"})
		return
	}

	writeJSON(w, http.StatusOK, transactionToResponse(&txn))
}
