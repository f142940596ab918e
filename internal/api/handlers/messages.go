package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/toga/internal/api/dto"
	"github.com/hugh/toga/internal/api/middleware"
	"github.com/hugh/toga/internal/database/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const unreadCountTTL = 30 * time.Second

type MessageHandler struct {
	db    *gorm.DB
	redis *redis.Client // optional; unread counts fall back to the database
}

func NewMessageHandler(db *gorm.DB, redisClient *redis.Client) *MessageHandler {
	return &MessageHandler{db: db, redis: redisClient}
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

func (r SendMessageRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.ReceiverID == "" {
		errors["receiver_id"] = "Receiver ID is required"
	} else if _, err := uuid.Parse(r.ReceiverID); err != nil {
		errors["receiver_id"] = "Invalid receiver ID format"
	}
	if r.Content == "" {
		errors["content"] = "Content is required"
	}
	return errors
}

type MessageResponse struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
	Read       bool   `json:"read"`
	CreatedAt  string `json:"created_at"`
}

func messageToResponse(m *models.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID.String(),
		SenderID:   m.SenderID.String(),
		ReceiverID: m.ReceiverID.String(),
		Content:    m.Content,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt.Format(time.RFC3339),
	}
}

// Send handles POST /api/messages. The receiver must exist.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	receiverID, _ := uuid.Parse(req.ReceiverID)

	var receiver models.User
	if err := h.db.First(&receiver, "id = ?", receiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Receiver not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to send message"})
		return
	}

	msg := models.Message{
		SenderID:   callerID,
		ReceiverID: receiverID,
		Content:    req.Content,
	}
	if err := h.db.Create(&msg).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to send message"})
		return
	}

	h.invalidateUnreadCount(r, receiverID)

	writeJSON(w, http.StatusCreated, messageToResponse(&msg))
}

type ConversationResponse struct {
	OtherUserID       string `json:"other_user_id"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
	LastMessage       string `json:"last_message"`
	LastMessageTime   string `json:"last_message_time"`
}

type conversationRow struct {
	OtherUserID       uuid.UUID `gorm:"column:other_user_id"`
	Username          string    `gorm:"column:username"`
	ProfilePictureURL string    `gorm:"column:profile_picture_url"`
	LastMessage       string    `gorm:"column:last_message"`
	LastMessageTime   time.Time `gorm:"column:last_message_time"`
}

// Conversations handles GET /api/messages/conversations: the distinct
// counterparts the caller has exchanged messages with, each with the
// most recent message, ordered by recency.
func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())

	var rows []conversationRow
	err := h.db.Raw(`
		SELECT u.id AS other_user_id,
		       u.username,
		       u.profile_picture_url,
		       m.content AS last_message,
		       m.created_at AS last_message_time
		FROM users u
		JOIN messages m ON m.id = (
			SELECT m2.id FROM messages m2
			WHERE (m2.sender_id = ? AND m2.receiver_id = u.id)
			   OR (m2.sender_id = u.id AND m2.receiver_id = ?)
			ORDER BY m2.created_at DESC
			LIMIT 1
		)
		WHERE u.id IN (
			SELECT CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END
			FROM messages
			WHERE sender_id = ? OR receiver_id = ?
		)
		ORDER BY m.created_at DESC`,
		callerID, callerID, callerID, callerID, callerID,
	).Scan(&rows).Error
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list conversations"})
		return
	}

	response := make([]ConversationResponse, len(rows))
	for i, row := range rows {
		response[i] = ConversationResponse{
			OtherUserID:       row.OtherUserID.String(),
			Username:          row.Username,
			ProfilePictureURL: row.ProfilePictureURL,
			LastMessage:       row.LastMessage,
			LastMessageTime:   row.LastMessageTime.Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// Thread handles GET /api/messages/{userId}: the full history between
// the caller and one counterpart, oldest first.
func (h *MessageHandler) Thread(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	otherID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	var messages []models.Message
	err := h.db.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			callerID, otherID, otherID, callerID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list messages"})
		return
	}

	response := make([]MessageResponse, len(messages))
	for i := range messages {
		response[i] = messageToResponse(&messages[i])
	}

	writeJSON(w, http.StatusOK, response)
}

// MarkRead handles PUT /api/messages/{id}/read. Only the receiver may
// flip the flag; re-marking an already-read message is a no-op.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	msgID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var msg models.Message
	if err := h.db.First(&msg, "id = ?", msgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Message not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get message"})
		return
	}

	if msg.ReceiverID != callerID {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Not the message receiver"})
		return
	}

	if !msg.Read {
		if err := h.db.Model(&msg).Update("read", true).Error; err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to mark message read"})
			return
		}
		h.invalidateUnreadCount(r, callerID)
	}

	writeJSON(w, http.StatusOK, messageToResponse(&msg))
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

// UnreadCount handles GET /api/messages/unread/count. The count is
// cached briefly in Redis when available.
func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())

	if h.redis != nil {
		if cached, err := h.redis.Get(r.Context(), unreadCountKey(callerID)).Result(); err == nil {
			if count, err := strconv.ParseInt(cached, 10, 64); err == nil {
				writeJSON(w, http.StatusOK, UnreadCountResponse{UnreadCount: count})
				return
			}
		}
	}

	var count int64
	err := h.db.Model(&models.Message{}).
		Where("receiver_id = ? AND read = ?", callerID, false).
		Count(&count).Error
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count unread messages"})
		return
	}

	if h.redis != nil {
		h.redis.Set(r.Context(), unreadCountKey(callerID), count, unreadCountTTL)
	}

	writeJSON(w, http.StatusOK, UnreadCountResponse{UnreadCount: count})
}

func unreadCountKey(userID uuid.UUID) string {
	return "unread_count:" + userID.String()
}

func (h *MessageHandler) invalidateUnreadCount(r *http.Request, userID uuid.UUID) {
	if h.redis != nil {
		h.redis.Del(r.Context(), unreadCountKey(userID))
	}
}
