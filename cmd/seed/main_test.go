package main

import (
	"testing"

	"github.com/ikkim/medilens-admin/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstitutionRows(t *testing.T) {
	rows := [][]string{
		{"광주새빛안과", "456-78-90123", "박지훈", "062-222-3333", "info@saebit.kr", "광주광역시 서구 상무대로 1", "Active"},
		// 기관명 없음
		{"  ", "567-89-01234"},
		// 사업자번호 형식 오류
		{"잘못된사업자", "12345"},
		// 중복
		{"광주새빛안과", "456-78-90123", "중복"},
		// 사업자번호 없이 등록 가능
		{"인천바다치과", "", "최유진"},
		// 알 수 없는 상태
		{"수원상태오류의원", "678-90-12345", "", "", "", "", "closed"},
	}

	institutions, skipped := parseInstitutionRows(rows)

	require.Len(t, institutions, 2)
	assert.Equal(t, 4, skipped)

	assert.Equal(t, "광주새빛안과", institutions[0].Name)
	assert.Equal(t, model.InstitutionStatusActive, institutions[0].Status)
	assert.Equal(t, "info@saebit.kr", institutions[0].Email)

	assert.Equal(t, "인천바다치과", institutions[1].Name)
	assert.Equal(t, model.InstitutionStatusPending, institutions[1].Status)
	assert.Empty(t, institutions[1].Address)
}
