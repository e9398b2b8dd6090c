package repository

import (
	"fmt"

	"github.com/kvanc/server/internal/dto"
	"github.com/kvanc/server/internal/model"
	"gorm.io/gorm"
)

// ResultRepository archives published result snapshots.
type ResultRepository interface {
	Create(record model.ResultRecord) (model.ResultRecord, error)
}

type result struct {
	db *gorm.DB
}

func newResultRepository(db *gorm.DB) ResultRepository {
	return &result{
		db: db,
	}
}

func (r *result) Create(record model.ResultRecord) (model.ResultRecord, error) {
	res := r.db.Create(&record)
	if res.Error != nil {
		return model.ResultRecord{}, fmt.Errorf("%w: %v", dto.ErrInternalFailure, res.Error)
	}

	return record, nil
}
