package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/toga/internal/auth"
	"github.com/hugh/toga/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Run migrations
	err = db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.Membership{},
		&models.ClothingItem{},
		&models.Transaction{},
		&models.Message{},
		&models.Event{},
		&models.EventListing{},
		&models.Bookmark{},
		&models.Payment{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// CreateTestUser creates a user with a unique institutional email
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	suffix := uuid.New().String()[:8]
	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:        "test-" + suffix + "@lsu.edu",
		PasswordHash: hash,
		Username:     "testuser-" + suffix,
		FullName:     "Test User",
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestItem creates a clothing item owned by the given user
func CreateTestItem(t *testing.T, db *gorm.DB, ownerID uuid.UUID) *models.ClothingItem {
	t.Helper()

	item := &models.ClothingItem{
		Base: models.Base{
			ID: uuid.New(),
		},
		OwnerID:            ownerID,
		Title:              "Test Jacket",
		Description:        "A jacket for testing",
		Category:           "outerwear",
		Size:               "M",
		Condition:          "good",
		PurchasePrice:      49.99,
		RentalPrice:        5.99,
		IsAvailableForRent: true,
		IsAvailableForSale: true,
		Images:             models.StringArray{"https://example.com/jacket.jpg"},
	}

	if err := db.Create(item).Error; err != nil {
		t.Fatalf("failed to create test item: %v", err)
	}

	return item
}

// CreateTestOrg creates an organization owned by the given user,
// including the owner's membership row
func CreateTestOrg(t *testing.T, db *gorm.DB, ownerID uuid.UUID) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Base: models.Base{
			ID: uuid.New(),
		},
		OwnerID: ownerID,
		Name:    "Test Club " + uuid.New().String()[:8],
	}

	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}
	if err := db.Create(&models.Membership{UserID: ownerID, OrganizationID: org.ID}).Error; err != nil {
		t.Fatalf("failed to create owner membership: %v", err)
	}

	return org
}

// CreateTestEvent creates an event created by the given user
func CreateTestEvent(t *testing.T, db *gorm.DB, creatorID uuid.UUID) *models.Event {
	t.Helper()

	event := &models.Event{
		Base: models.Base{
			ID: uuid.New(),
		},
		CreatorID: creatorID,
		Title:     "Test Fashion Show",
		EventDate: time.Now().Add(7 * 24 * time.Hour),
		Location:  "Student Union",
	}

	if err := db.Create(event).Error; err != nil {
		t.Fatalf("failed to create test event: %v", err)
	}

	return event
}

// CreateTestTransaction creates a transaction between two users
func CreateTestTransaction(t *testing.T, db *gorm.DB, itemID, buyerID, sellerID uuid.UUID, status models.TransactionStatus) *models.Transaction {
	t.Helper()

	txn := &models.Transaction{
		Base: models.Base{
			ID: uuid.New(),
		},
		ItemID:          itemID,
		BuyerID:         buyerID,
		SellerID:        sellerID,
		TransactionType: models.TransactionTypeBuy,
		Status:          status,
		Price:           49.99,
	}

	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}

	return txn
}

// CreateTestMessage creates a message between two users
func CreateTestMessage(t *testing.T, db *gorm.DB, senderID, receiverID uuid.UUID, content string) *models.Message {
	t.Helper()

	msg := &models.Message{
		Base: models.Base{
			ID: uuid.New(),
		},
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}

	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("failed to create test message: %v", err)
	}

	return msg
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.Email)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	User       *models.User
	Token      string
}

// NewTestContext creates a complete test setup with DB, user, and token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	user := CreateTestUser(t, db)
	token := GenerateTestToken(t, jwtService, user)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		User:       user,
		Token:      token,
	}
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
