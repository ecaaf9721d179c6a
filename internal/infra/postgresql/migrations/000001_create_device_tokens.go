package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/JiminSongSoftware/gagyo-push/internal/repository"
)

func createDeviceTokensTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_device_tokens",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DeviceTokenModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_device_tokens_tenant_user ON device_tokens (tenant_id, user_id) WHERE revoked_at IS NULL`,
				`CREATE INDEX IF NOT EXISTS idx_device_tokens_last_used ON device_tokens (last_used_at) WHERE revoked_at IS NULL`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DeviceTokenModel{})
		},
	}
}
