package Models

import (
	"fmt"

	"gorm.io/gorm"
)

// DeviceToken is a push notification registration for a user's device.
type DeviceToken struct {
	gorm.Model
	UserID string `json:"user_id" gorm:"size:36;index"`
	Value  string `json:"value" gorm:"uniqueIndex;size:255"`
}

// RegisterDevice stores the token for the user. A token that moves to
// another account is reassigned.
func RegisterDevice(db *gorm.DB, userID, value string) (DeviceToken, error) {
	var token DeviceToken
	err := db.Where(DeviceToken{Value: value}).
		Assign(DeviceToken{UserID: userID}).
		FirstOrCreate(&token).Error
	if err != nil {
		return DeviceToken{}, fmt.Errorf("register device: %w", err)
	}
	return token, nil
}

// DeviceTokens returns the push tokens of the user whose id or name is
// worker. Task assignees may hold either.
func DeviceTokens(db *gorm.DB, worker string) ([]string, error) {
	var tokens []string
	err := db.Model(&DeviceToken{}).
		Joins("JOIN users ON users.id = device_tokens.user_id").
		Where("(users.id = ? OR users.name = ?) AND users.active = ?", worker, worker, true).
		Pluck("device_tokens.value", &tokens).Error
	if err != nil {
		return nil, fmt.Errorf("device tokens of %s: %w", worker, err)
	}
	return tokens, nil
}
