package db

import (
	"github.com/investly/investly-backend/internal/app/model"
	"github.com/investly/investly-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by the ledger.
func Models() []interface{} {
	return []interface{}{
		&model.Business{},
		&model.Investment{},
		&model.PromoCode{},
		&model.BusinessVerification{},
	}
}

// Migrate runs database migrations on the global connection.
func Migrate() error {
	return MigrateDB(DB)
}

func MigrateDB(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	// Backstop for the conditional updates: the aggregate can never be
	// negative and a promo counter can never pass its cap.
	if db.Dialector.Name() == "postgres" {
		constraints := []string{
			`DO $$ BEGIN
				ALTER TABLE businesses ADD CONSTRAINT chk_businesses_amount_raised CHECK (amount_raised >= 0);
			EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
			`DO $$ BEGIN
				ALTER TABLE promo_codes ADD CONSTRAINT chk_promo_codes_uses CHECK (current_uses >= 0 AND (max_uses IS NULL OR current_uses <= max_uses));
			EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
			`DO $$ BEGIN
				ALTER TABLE investments ADD CONSTRAINT chk_investments_amount CHECK (amount > 0);
			EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		}
		for _, stmt := range constraints {
			if err := db.Exec(stmt).Error; err != nil {
				logger.Error("Failed to add table constraint", err)
				return err
			}
		}
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
