package migration

import (
	"strings"

	"github.com/openpress/peerflow/internal/config"
	identitydomain "github.com/openpress/peerflow/internal/identity/domain"
	invitationdomain "github.com/openpress/peerflow/internal/invitation/domain"
	manuscriptdomain "github.com/openpress/peerflow/internal/manuscript/domain"
	notifdomain "github.com/openpress/peerflow/internal/notification/domain"
	reviewdomain "github.com/openpress/peerflow/internal/review/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned SQL migrations target postgres; other dialects, used
		// for local runs and tests, get the schema from the models.
		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		return conn.AutoMigrate(
			&identitydomain.User{},
			&manuscriptdomain.Manuscript{},
			&reviewdomain.Review{},
			&invitationdomain.Invitation{},
			&notifdomain.Notification{},
		)
	}),
)
