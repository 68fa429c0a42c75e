package service

import (
	"fmt"
	"path/filepath"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/gabriel-vasile/mimetype"
)

const (
	DefaultMaxUploadBytes = 10 << 20
	MaxAttachments        = 5
)

// DefaultAllowedTypes типы вложений к объяснительной по умолчанию
var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// AttachmentPolicy ограничения на вложения
type AttachmentPolicy struct {
	MaxBytes     int64
	AllowedTypes []string
}

// DefaultAttachmentPolicy 10 MB, JPEG/PNG/PDF
func DefaultAttachmentPolicy() AttachmentPolicy {
	return AttachmentPolicy{
		MaxBytes:     DefaultMaxUploadBytes,
		AllowedTypes: DefaultAllowedTypes,
	}
}

// Check определяет тип по содержимому (не по имени файла) и проверяет размер
func (p AttachmentPolicy) Check(upload model.Upload) (model.FileMeta, error) {
	size := int64(len(upload.Data))
	if size == 0 {
		return model.FileMeta{}, model.NewValidationError(model.FieldError{Field: "files", Error: upload.Filename + " is empty"})
	}

	maxBytes := p.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if size > maxBytes {
		return model.FileMeta{}, fmt.Errorf("%s is %d bytes, limit %d: %w", upload.Filename, size, maxBytes, model.ErrFileTooLarge)
	}

	mt := mimetype.Detect(upload.Data)

	allowed := p.AllowedTypes
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}
	if !mimetype.EqualsAny(mt.String(), allowed...) {
		return model.FileMeta{}, fmt.Errorf("%s has type %s: %w", upload.Filename, mt.String(), model.ErrUnsupportedFileType)
	}

	return model.FileMeta{
		Filename:    filepath.Base(upload.Filename),
		ContentType: mt.String(),
		Extension:   mt.Extension(),
		Size:        size,
	}, nil
}

// CheckAll проверяет все вложения до любой записи
func (p AttachmentPolicy) CheckAll(uploads []model.Upload) ([]model.FileMeta, error) {
	if len(uploads) > MaxAttachments {
		return nil, model.NewValidationError(model.FieldError{Field: "files", Error: fmt.Sprintf("at most %d files", MaxAttachments)})
	}

	metas := make([]model.FileMeta, 0, len(uploads))
	for _, upload := range uploads {
		meta, err := p.Check(upload)
		if err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}
	return metas, nil
}
