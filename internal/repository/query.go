package repository

import (
	"errors"

	"gorm.io/gorm"
)

// firstOrNil 取首条记录；不存在时返回 nil, nil，由 service 层决定是否视为错误
func firstOrNil[T any](query *gorm.DB, conds ...interface{}) (*T, error) {
	var row T
	err := query.First(&row, conds...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
