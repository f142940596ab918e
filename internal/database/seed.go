package database

import (
	"errors"
	"log/slog"
	"time"

	"github.com/hugh/toga/internal/auth"
	"github.com/hugh/toga/internal/database/models"
	"gorm.io/gorm"
)

// Seed loads a minimal fixture set (sample user, listing, event, welcome
// message) so a fresh environment is immediately usable. Every insert is
// keyed on a natural identifier, so repeated runs are no-ops.
func Seed(db *gorm.DB, log *slog.Logger) error {
	hash, err := auth.HashPassword("password123")
	if err != nil {
		return err
	}

	var user models.User
	err = db.Where("email = ?", "testuser@lsu.edu").First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Email:        "testuser@lsu.edu",
			PasswordHash: hash,
			Username:     "testuser",
			FullName:     "Test User",
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
		log.Info("seeded sample user", "email", user.Email)
	} else if err != nil {
		return err
	}

	var item models.ClothingItem
	err = db.Where("title = ? AND owner_id = ?", "Blue Jeans", user.ID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		item = models.ClothingItem{
			OwnerID:            user.ID,
			Title:              "Blue Jeans",
			Description:        "Comfortable casual blue jeans",
			Category:           "pants",
			Size:               "M",
			Condition:          "good",
			PurchasePrice:      49.99,
			RentalPrice:        5.99,
			IsAvailableForRent: true,
			IsAvailableForSale: true,
			Images:             models.StringArray{"jeans1.jpg", "jeans2.jpg"},
		}
		if err := db.Create(&item).Error; err != nil {
			return err
		}
		log.Info("seeded sample listing", "title", item.Title)
	} else if err != nil {
		return err
	}

	var event models.Event
	err = db.Where("title = ?", "Summer Fashion Show").First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		event = models.Event{
			CreatorID:   user.ID,
			Title:       "Summer Fashion Show",
			Description: "Annual summer fashion exhibition",
			EventDate:   time.Now().AddDate(0, 0, 30),
			Location:    "Central Park",
			ImageURL:    "event1.jpg",
		}
		if err := db.Create(&event).Error; err != nil {
			return err
		}
		log.Info("seeded sample event", "title", event.Title)
	} else if err != nil {
		return err
	}

	var count int64
	if err := db.Model(&models.Message{}).
		Where("receiver_id = ?", user.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		msg := models.Message{
			SenderID:   user.ID,
			ReceiverID: user.ID,
			Content:    "Welcome to the platform!",
		}
		if err := db.Create(&msg).Error; err != nil {
			return err
		}
		log.Info("seeded welcome message")
	}

	return nil
}
