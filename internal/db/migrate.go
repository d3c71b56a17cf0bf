package db

import (
	"github.com/ikkim/medilens-admin/internal/app/model"
	"github.com/ikkim/medilens-admin/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by the admin backend.
func Models() []interface{} {
	return []interface{}{
		&model.Institution{},
		&model.License{},
		&model.Payment{},
		&model.Sequence{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed adds sample institutions when the table is empty
func Seed() error {
	return SeedInstitutions(DB)
}

// SeedInstitutions 기본 기관 데이터 생성
func SeedInstitutions(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Institution{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Info("Institutions already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	institutions := []model.Institution{
		{
			ID:             "1",
			Name:           "서울밝은피부과의원",
			BusinessNumber: "123-45-67890",
			Representative: "김민수",
			PhoneNumber:    "02-555-1234",
			Email:          "admin@brightskin.kr",
			Address:        "서울특별시 강남구 테헤란로 123",
			Status:         model.InstitutionStatusActive,
			LicenseType:    model.LicenseTypeNone,
		},
		{
			ID:             "2",
			Name:           "부산해운대영상의학과",
			BusinessNumber: "234-56-78901",
			Representative: "이영희",
			PhoneNumber:    "051-741-5678",
			Email:          "office@haeundae-rad.kr",
			Address:        "부산광역시 해운대구 센텀중앙로 55",
			Status:         model.InstitutionStatusActive,
			LicenseType:    model.LicenseTypeNone,
		},
		{
			ID:             "3",
			Name:           "대전한빛검진센터",
			BusinessNumber: "345-67-89012",
			Representative: "박정훈",
			PhoneNumber:    "042-222-9012",
			Email:          "contact@hanbit-check.kr",
			Address:        "대전광역시 서구 둔산로 100",
			Status:         model.InstitutionStatusPending,
			LicenseType:    model.LicenseTypeNone,
		},
	}

	for _, institution := range institutions {
		if err := db.Create(&institution).Error; err != nil {
			logger.Error("Failed to create institution", err, map[string]interface{}{
				"institution_id": institution.ID,
			})
			return err
		}
	}

	logger.Info("Institutions seeded successfully", map[string]interface{}{
		"total_institutions": len(institutions),
	})
	return nil
}
