package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/expertqa/models"
	"github.com/cppla/expertqa/policy"
)

const banSweepBatch = 100

// StartBanSweeper launches a background goroutine that periodically lifts
// temporary bans whose end time has passed. It stops when ctx is done.
func StartBanSweeper(ctx context.Context, db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			n, err := SweepExpiredBans(db, time.Now())
			if err != nil {
				L().Warn("ban sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				L().Info("lifted expired bans", zap.Int("count", n))
			}
		}
	}()
}

// SweepExpiredBans lifts up to one batch of lapsed temporary bans, writing a
// system-issued unban record for each, and returns how many were lifted.
func SweepExpiredBans(db *gorm.DB, now time.Time) (int, error) {
	var users []models.User
	err := db.Where("is_banned = ? AND is_permanent_ban = ? AND banned_until IS NOT NULL AND banned_until <= ?", true, false, now).
		Limit(banSweepBatch).
		Find(&users).Error
	if err != nil {
		return 0, err
	}

	lifted := 0
	for i := range users {
		u := &users[i]
		record := policy.ExpireBan(u, now)
		if record == nil {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.User{}).Where("id = ?", u.ID).Updates(u.BanColumns()).Error; err != nil {
				return err
			}
			return tx.Create(record).Error
		})
		if err != nil {
			L().Warn("lift expired ban failed", zap.Uint("user_id", u.ID), zap.Error(err))
			continue
		}
		lifted++
	}
	return lifted, nil
}
