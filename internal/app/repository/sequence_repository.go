package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ikkim/medilens-admin/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 채번 이름별로 발급된 ID가 저장되는 테이블과 접두어
var sequenceSources = map[string]struct {
	model  interface{}
	prefix string
}{
	"license": {model: &model.License{}, prefix: "LIC"},
	"payment": {model: &model.Payment{}, prefix: "PAY"},
}

// SequenceRepository issues year-scoped numbers from the sequences table.
type SequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next returns the next number for (name, year), starting at 1.
func (r *SequenceRepository) Next(ctx context.Context, name string, year int) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.Sequence{Name: name, Year: year}).Error; err != nil {
			return err
		}

		var seq model.Sequence
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ? AND year = ?", name, year).
			First(&seq).Error; err != nil {
			return err
		}

		next = seq.Value + 1
		return tx.Model(&model.Sequence{}).
			Where("name = ? AND year = ?", name, year).
			Update("value", next).Error
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Current returns the highest number already used for (name, year): the larger of
// the counter row and the ids stored in the entity table.
func (r *SequenceRepository) Current(ctx context.Context, name string, year int) (int64, error) {
	var current int64

	var seq model.Sequence
	err := r.db.WithContext(ctx).Where("name = ? AND year = ?", name, year).First(&seq).Error
	switch {
	case err == nil:
		current = seq.Value
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return 0, err
	}

	source, ok := sequenceSources[name]
	if !ok {
		return current, nil
	}

	prefix := fmt.Sprintf("%s-%d-", source.prefix, year)
	var ids []string
	if err := r.db.WithContext(ctx).Model(source.model).
		Where("id LIKE ?", prefix+"%").
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	for _, id := range ids {
		n, err := strconv.ParseInt(strings.TrimPrefix(id, prefix), 10, 64)
		if err == nil && n > current {
			current = n
		}
	}
	return current, nil
}
