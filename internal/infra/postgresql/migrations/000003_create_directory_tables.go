package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/JiminSongSoftware/gagyo-push/internal/repository"
)

func createDirectoryTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_directory_tables",
		Migrate: func(tx *gorm.DB) error {
			models := []any{
				&repository.MembershipModel{},
				&repository.GroupModel{},
				&repository.ConversationParticipantModel{},
				&repository.ConversationExclusionModel{},
			}
			for _, model := range models {
				if err := tx.AutoMigrate(model); err != nil {
					return err
				}
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_memberships_tenant_role ON memberships (tenant_id, role) WHERE status = 'active'`,
				`CREATE INDEX IF NOT EXISTS idx_memberships_tenant_group ON memberships (tenant_id, group_id) WHERE group_id IS NOT NULL`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				&repository.ConversationExclusionModel{},
				&repository.ConversationParticipantModel{},
				&repository.GroupModel{},
				&repository.MembershipModel{},
			)
		},
	}
}
