package metadata

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetValue 读取一个键的值。键不存在时返回空字符串。
func GetValue(db *gorm.DB, key string) (string, error) {
	var row Metadata
	err := db.Take(&row, "key = ?", key).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("读取元数据 '%s' 失败: %w", key, err)
	}
	return row.Value, nil
}

// SetValue 写入或覆盖一个键的值。
func SetValue(db *gorm.DB, key, value string) error {
	row := Metadata{Key: key, Value: value}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("写入元数据 '%s' 失败: %w", key, err)
	}
	return nil
}

func GetLastGossipEdition(db *gorm.DB) (string, error) {
	return GetValue(db, LastGossipEditionKey)
}

// GetLastGossipGeneratedAt 返回最近一次生成的时间，从未生成过时返回零值。
func GetLastGossipGeneratedAt(db *gorm.DB) (time.Time, error) {
	raw, err := GetValue(db, LastGossipGeneratedAtKey)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("元数据 '%s' 的时间格式无效: %w", LastGossipGeneratedAtKey, err)
	}
	return at, nil
}

// RecordGossipGeneration 在同一事务中记录一次生成的期号与完成时间。
func RecordGossipGeneration(db *gorm.DB, edition string, at time.Time) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := SetValue(tx, LastGossipEditionKey, edition); err != nil {
			return err
		}
		return SetValue(tx, LastGossipGeneratedAtKey, at.UTC().Format(time.RFC3339Nano))
	})
}
