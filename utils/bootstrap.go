package utils

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/expertqa/models"
)

// PromoteBootstrapAdmins grants the admin role to the configured usernames
// that exist and are not admins yet. Each promotion is recorded as a role
// change issued by the system (actor 0).
func PromoteBootstrapAdmins(db *gorm.DB, usernames []string) error {
	names := make([]string, 0, len(usernames))
	for _, u := range usernames {
		if u = strings.TrimSpace(u); u != "" {
			names = append(names, u)
		}
	}
	if len(names) == 0 {
		return nil
	}

	var users []models.User
	if err := db.Where("username IN ? AND role <> ?", names, models.RoleAdmin).Find(&users).Error; err != nil {
		return err
	}
	for _, u := range users {
		change := &models.RoleChange{
			ActorID:   0,
			TargetID:  u.ID,
			OldRole:   u.Role,
			NewRole:   models.RoleAdmin,
			Reason:    "bootstrap admin",
			CreatedAt: time.Now(),
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.User{}).Where("id = ?", u.ID).Update("role", models.RoleAdmin).Error; err != nil {
				return err
			}
			return tx.Create(change).Error
		})
		if err != nil {
			return err
		}
		L().Info("bootstrap admin promoted", zap.Uint("user_id", u.ID), zap.String("username", u.Username))
	}
	return nil
}
