// Package sqlstore persists schemas in a SQL table through gorm. Each row
// keeps the schema header in columns and the field list as JSON text, so
// records round-trip exactly.
package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

// TableName is the table holding form schemas.
const TableName = "form_schemas"

type formRecord struct {
	ID           string `gorm:"column:id;primaryKey"`
	Position     int64  `gorm:"column:position;index"`
	Name         string `gorm:"column:name"`
	CreatedAtISO string `gorm:"column:created_at"`
	Fields       string `gorm:"column:fields;type:text"`
}

func (formRecord) TableName() string { return TableName }

// Store is a gorm backed schema store.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to the sqlite database at dsn (a file path or a sqlite URI)
// and prepares the schema table.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", dsn, err)
	}
	return New(db)
}

// New wraps an existing connection and migrates the schema table.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: nil database")
	}
	if err := db.AutoMigrate(&formRecord{}); err != nil {
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying connection.
func (s *Store) DB() *gorm.DB { return s.db }

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Save(ctx context.Context, form schema.FormSchema) error {
	if err := store.CheckID(form); err != nil {
		return err
	}
	record, err := toRecord(schema.NormalizeValues(form))
	if err != nil {
		return store.Fail(store.OpSave, form.ID, err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing formRecord
		err := tx.Where("id = ?", record.ID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			var last int64
			if err := tx.Model(&formRecord{}).Select("COALESCE(MAX(position), -1)").Row().Scan(&last); err != nil {
				return err
			}
			record.Position = last + 1
			return tx.Create(&record).Error
		case err != nil:
			return err
		default:
			record.Position = existing.Position
			return tx.Save(&record).Error
		}
	})
	return store.Fail(store.OpSave, form.ID, err)
}

func (s *Store) LoadAll(ctx context.Context) ([]schema.FormSchema, error) {
	var records []formRecord
	if err := s.db.WithContext(ctx).Order("position asc").Find(&records).Error; err != nil {
		return nil, store.Fail(store.OpLoadAll, "", err)
	}

	forms := make([]schema.FormSchema, 0, len(records))
	for _, record := range records {
		form, err := fromRecord(record)
		if err != nil {
			return nil, store.Fail(store.OpLoadAll, record.ID, err)
		}
		forms = append(forms, form)
	}
	return forms, nil
}

func (s *Store) DeleteByID(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&formRecord{}).Error
	return store.Fail(store.OpDelete, id, err)
}

func toRecord(form schema.FormSchema) (formRecord, error) {
	fields, err := json.Marshal(form.Fields)
	if err != nil {
		return formRecord{}, fmt.Errorf("encoding fields: %w", err)
	}
	return formRecord{
		ID:           form.ID,
		Name:         form.Name,
		CreatedAtISO: form.CreatedAt,
		Fields:       string(fields),
	}, nil
}

func fromRecord(record formRecord) (schema.FormSchema, error) {
	form := schema.FormSchema{
		ID:        record.ID,
		Name:      record.Name,
		CreatedAt: record.CreatedAtISO,
	}
	if err := json.Unmarshal([]byte(record.Fields), &form.Fields); err != nil {
		return schema.FormSchema{}, fmt.Errorf("decoding fields: %w", err)
	}
	return form, nil
}
