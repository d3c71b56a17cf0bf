package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/ikkim/medilens-admin/config"
	"github.com/ikkim/medilens-admin/internal/app/model"
	"github.com/ikkim/medilens-admin/internal/app/repository"
	"github.com/ikkim/medilens-admin/internal/app/service"
	"github.com/ikkim/medilens-admin/internal/db"
	"github.com/xuri/excelize/v2"
)

// 기관 목록 XLSX 컬럼 순서
const (
	colName = iota
	colBusinessNumber
	colRepresentative
	colPhoneNumber
	colEmail
	colAddress
	colStatus
)

var businessNumberPattern = regexp.MustCompile(`^\d{3}-\d{2}-\d{5}$`)

func main() {
	// 명령줄 인자 확인
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// DB 연결
	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	institutionService := service.NewInstitutionService(repository.NewInstitutionRepository(db.GetDB()))

	// XLSX 파일 읽기
	fmt.Printf("Reading XLSX file: %s\n", filePath)
	institutions, skipped, err := readInstitutionsFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total institutions to import: %d (skipped rows: %d)\n", len(institutions), skipped)

	// 사용자 확인
	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	ctx := context.Background()
	imported := 0
	for i := range institutions {
		if err := institutionService.CreateInstitution(ctx, &institutions[i]); err != nil {
			fmt.Printf("Failed to import %q: %v\n", institutions[i].Name, err)
			continue
		}
		imported++
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total institutions imported: %d\n", imported)
}

func readInstitutionsFromXLSX(filePath string) ([]model.Institution, int, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	// 첫 번째 시트 이름 가져오기
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, 0, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}

	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no data found in XLSX file")
	}

	institutions, skipped := parseInstitutionRows(rows[1:])
	return institutions, skipped, nil
}

// parseInstitutionRows 헤더를 제외한 행을 기관으로 변환. 사업자번호 기준 중복 제거
func parseInstitutionRows(rows [][]string) ([]model.Institution, int) {
	var institutions []model.Institution
	seen := make(map[string]bool)
	skipped := 0

	for _, row := range rows {
		cell := func(i int) string {
			if i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		name := cell(colName)
		businessNumber := cell(colBusinessNumber)
		if name == "" {
			skipped++
			continue
		}
		if businessNumber != "" && !businessNumberPattern.MatchString(businessNumber) {
			skipped++
			continue
		}

		key := name + "|" + businessNumber
		if seen[key] {
			skipped++
			continue
		}
		seen[key] = true

		status := model.InstitutionStatus(strings.ToLower(cell(colStatus)))
		if status == "" {
			status = model.InstitutionStatusPending
		}
		if !status.Valid() {
			skipped++
			continue
		}

		institutions = append(institutions, model.Institution{
			Name:           name,
			BusinessNumber: businessNumber,
			Representative: cell(colRepresentative),
			PhoneNumber:    cell(colPhoneNumber),
			Email:          cell(colEmail),
			Address:        cell(colAddress),
			Status:         status,
		})
	}

	return institutions, skipped
}
