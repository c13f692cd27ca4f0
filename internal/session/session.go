// Package session is the document host used by the command line tool. It
// records the documents the user has opened, which of them are visible or
// active, and the reference list each one owns, in a sqlite database.
package session

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/atinylittleshell/ctxref/internal/document"
	"github.com/atinylittleshell/ctxref/internal/references"
	"github.com/glebarez/sqlite"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrDocumentNotFound is returned when a named document is not open.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentRecord is an open document.
type DocumentRecord struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	Name      string `gorm:"uniqueIndex"`
	Path      string `gorm:"index"`
	Kind      string
	Content   sql.NullString
	Visible   bool
	Active    bool
	Ephemeral bool
}

// ReferenceRecord is one entry of a document's reference list.
type ReferenceRecord struct {
	ID           uint   `gorm:"primarykey"`
	DocumentName string `gorm:"index"`
	Position     int
	Value        string
}

// Session is a sqlite backed document.Host.
type Session struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenOptions controls how a document is opened.
type OpenOptions struct {
	Visible   bool
	Active    bool
	Ephemeral bool
	// Content is the live text, when it should not be read from disk.
	Content *string
}

// New opens or creates the session database at dbFilePath.
func New(dbFilePath string, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(dbFilePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := db.AutoMigrate(&DocumentRecord{}, &ReferenceRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}

	return &Session{
		db:     db,
		logger: log,
	}, nil
}

// Close releases the database connection.
func (s *Session) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toDocument(r DocumentRecord) *document.Document {
	doc := &document.Document{
		Name:      r.Name,
		Path:      r.Path,
		Kind:      document.ParseKind(r.Kind),
		Visible:   r.Visible,
		Ephemeral: r.Ephemeral,
	}
	if r.Content.Valid {
		content := r.Content.String
		doc.Content = &content
	}
	return doc
}

// Open registers the file at path as an open document and returns it. A
// file that is already open is updated in place, keeping its name.
func (s *Session) Open(path string, opts OpenOptions) (*document.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	var record DocumentRecord
	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("path = ?", abs).Limit(1).Find(&record)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			name, err := uniqueName(tx, filepath.Base(abs))
			if err != nil {
				return err
			}
			record = DocumentRecord{
				Name: name,
				Path: abs,
				Kind: document.KindForPath(abs).String(),
			}
		}

		record.Visible = opts.Visible
		record.Ephemeral = opts.Ephemeral
		record.Content = sql.NullString{}
		if opts.Content != nil {
			record.Content = sql.NullString{String: *opts.Content, Valid: true}
		}
		if opts.Active {
			if err := tx.Model(&DocumentRecord{}).Where("active = ?", true).Update("active", false).Error; err != nil {
				return err
			}
			record.Active = true
		}
		return tx.Save(&record).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	s.logger.Debug("opened document", zap.String("name", record.Name), zap.String("path", abs))
	return toDocument(record), nil
}

// uniqueName returns base, or base<N> for the smallest N that is free.
func uniqueName(tx *gorm.DB, base string) (string, error) {
	name := base
	for n := 2; ; n++ {
		var count int64
		if err := tx.Model(&DocumentRecord{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return name, nil
		}
		name = base + "<" + strconv.Itoa(n) + ">"
	}
}

// CloseDocument destroys the named document and the reference list it owns.
func (s *Session) CloseDocument(name string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("name = ?", name).Delete(&DocumentRecord{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
		}
		return tx.Where("document_name = ?", name).Delete(&ReferenceRecord{}).Error
	})
}

// Lookup implements document.Host.
func (s *Session) Lookup(name string) (*document.Document, bool) {
	var record DocumentRecord
	result := s.db.Where("name = ?", name).Limit(1).Find(&record)
	if result.Error != nil {
		s.logger.Debug("document lookup failed", zap.String("name", name), zap.Error(result.Error))
		return nil, false
	}
	if result.RowsAffected == 0 {
		return nil, false
	}
	return toDocument(record), true
}

// Documents implements document.Host, in the order documents were first opened.
func (s *Session) Documents() ([]*document.Document, error) {
	var records []DocumentRecord
	if err := s.db.Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	return lo.Map(records, func(r DocumentRecord, _ int) *document.Document {
		return toDocument(r)
	}), nil
}

// Find returns the document with the given name, or else the one backed by
// the given path.
func (s *Session) Find(nameOrPath string) (*document.Document, error) {
	if doc, ok := s.Lookup(nameOrPath); ok {
		return doc, nil
	}
	abs, err := filepath.Abs(nameOrPath)
	if err != nil {
		return nil, err
	}
	var record DocumentRecord
	result := s.db.Where("path = ?", abs).Limit(1).Find(&record)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, nameOrPath)
	}
	return toDocument(record), nil
}

// Active returns the active document.
func (s *Session) Active() (*document.Document, error) {
	var record DocumentRecord
	result := s.db.Where("active = ?", true).Limit(1).Find(&record)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: no active document", ErrDocumentNotFound)
	}
	return toDocument(record), nil
}

// UpdateContent stores the live text of a document; nil clears it.
func (s *Session) UpdateContent(name string, content *string) error {
	value := sql.NullString{}
	if content != nil {
		value = sql.NullString{String: *content, Valid: true}
	}
	result := s.db.Model(&DocumentRecord{}).Where("name = ?", name).Update("content", value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}
	return nil
}

// LoadRegistry reads every stored reference list into a new Registry.
func (s *Session) LoadRegistry() (*references.Registry, error) {
	var records []ReferenceRecord
	if err := s.db.Order("document_name, position").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load references: %w", err)
	}

	registry := references.NewRegistry()
	for _, r := range records {
		registry.Ensure(r.DocumentName).Add(r.Value)
	}
	return registry, nil
}

// SaveReferences replaces the stored reference list of a document.
func (s *Session) SaveReferences(name string, refs []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_name = ?", name).Delete(&ReferenceRecord{}).Error; err != nil {
			return err
		}
		if len(refs) == 0 {
			return nil
		}
		records := lo.Map(refs, func(ref string, i int) ReferenceRecord {
			return ReferenceRecord{DocumentName: name, Position: i, Value: ref}
		})
		return tx.Create(&records).Error
	})
}

// Commit writes every store in registry back to the database.
func (s *Session) Commit(registry *references.Registry) error {
	for _, name := range registry.Documents() {
		if err := s.SaveReferences(name, registry.Snapshot(name)); err != nil {
			return fmt.Errorf("failed to save references of %s: %w", name, err)
		}
	}
	return nil
}
