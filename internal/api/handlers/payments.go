package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"

	"github.com/google/uuid"
	"github.com/hugh/toga/internal/api/dto"
	"github.com/hugh/toga/internal/api/middleware"
	"github.com/hugh/toga/internal/database/models"
	"github.com/hugh/toga/internal/payments"
	"gorm.io/gorm"
)

// maxWebhookBody bounds how much of a webhook payload is read.
const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	db             *gorm.DB
	provider       payments.Provider
	publishableKey string
	logger         *slog.Logger
}

func NewPaymentHandler(db *gorm.DB, provider payments.Provider, publishableKey string, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		db:             db,
		provider:       provider,
		publishableKey: publishableKey,
		logger:         logger,
	}
}

type CreateIntentRequest struct {
	ItemID          string `json:"item_id"`
	TransactionType string `json:"transaction_type"`
}

func (r CreateIntentRequest) Validate() map[string]string {
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

type CreateIntentResponse struct {
	ClientSecret   string `json:"client_secret"`
	PublishableKey string `json:"publishable_key"`
}

// CreateIntent handles POST /api/payments/create-payment-intent. The
// item, seller, and type ride along as intent metadata so the webhook
// can finalize the sale statelessly.
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())

	var req CreateIntentRequest
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

	var item models.ClothingItem
	if err := h.db.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create payment intent"})
		return
	}

	price := item.PurchasePrice
	available := item.IsAvailableForSale
	if txType == models.TransactionTypeRent {
		price = item.RentalPrice
		available = item.IsAvailableForRent
	}
	if !available {
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Item is not available for this transaction type"})
		return
	}

	intent, err := h.provider.CreateIntent(r.Context(), payments.CreateIntentInput{
		Amount: int64(math.Round(price * 100)),
		Metadata: map[string]string{
			payments.MetaUserID:          callerID.String(),
			payments.MetaItemID:          item.ID.String(),
			payments.MetaSellerID:        item.OwnerID.String(),
			payments.MetaTransactionType: string(txType),
		},
	})
	if err != nil {
		h.logger.Error("payment intent creation failed", "error", err, "item_id", item.ID)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create payment intent"})
		return
	}

	writeJSON(w, http.StatusOK, CreateIntentResponse{
		ClientSecret:   intent.ClientSecret,
		PublishableKey: h.publishableKey,
	})
}

// Webhook handles POST /api/payments/webhook. The provider signature is
// verified before anything else; a succeeded intent records the payment,
// marks the item unavailable, and inserts a COMPLETED transaction in one
// database transaction. Replayed deliveries are detected by the unique
// intent id and acknowledged without effect.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Failed to read request body"})
		return
	}

	event, err := h.provider.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid webhook signature"})
		return
	}

	if event.Type != payments.EventPaymentSucceeded {
		// Acknowledge everything else so the provider stops retrying.
		writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Event ignored"})
		return
	}

	if err := h.finalizeSale(event); err != nil {
		h.logger.Error("webhook processing failed", "error", err, "intent_id", event.IntentID)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to process webhook"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Webhook processed"})
}

func (h *PaymentHandler) finalizeSale(event *payments.ConfirmedEvent) error {
	buyerID, err := uuid.Parse(event.Metadata[payments.MetaUserID])
	if err != nil {
		return errors.New("missing or invalid user_id metadata")
	}
	itemID, err := uuid.Parse(event.Metadata[payments.MetaItemID])
	if err != nil {
		return errors.New("missing or invalid item_id metadata")
	}
	sellerID, err := uuid.Parse(event.Metadata[payments.MetaSellerID])
	if err != nil {
		return errors.New("missing or invalid seller_id metadata")
	}
	txType := models.TransactionType(event.Metadata[payments.MetaTransactionType])
	if txType != models.TransactionTypeRent && txType != models.TransactionTypeBuy {
		return errors.New("missing or invalid transaction_type metadata")
	}

	return h.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Payment
		err := tx.Where("provider_intent_id = ?", event.IntentID).First(&existing).Error
		switch {
		case err == nil:
			// Duplicate delivery, already processed.
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		payment := models.Payment{
			UserID:           buyerID,
			Amount:           event.Amount,
			Status:           models.PaymentStatusSucceeded,
			ProviderIntentID: event.IntentID,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		err = tx.Model(&models.ClothingItem{}).
			Where("id = ?", itemID).
			Updates(map[string]interface{}{
				"is_available_for_rent": false,
				"is_available_for_sale": false,
			}).Error
		if err != nil {
			return err
		}

		txn := models.Transaction{
			ItemID:          itemID,
			BuyerID:         buyerID,
			SellerID:        sellerID,
			TransactionType: txType,
			Status:          models.TransactionStatusCompleted,
			Price:           float64(event.Amount) / 100,
		}
		return tx.Create(&txn).Error
	})
}
