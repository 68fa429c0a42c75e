package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalStore хранит вложения на диске; имя файла генерируется, исходное имя не используется
type LocalStore struct {
	dir     string
	baseURL string
	logger  *zap.Logger
}

func NewLocalStore(dir, baseURL string, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// Store записывает файл и возвращает его URL
func (s *LocalStore) Store(ctx context.Context, data []byte, meta model.FileMeta) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.New().String() + meta.Extension
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	s.logger.Debug("File stored",
		zap.String("name", name),
		zap.String("original", meta.Filename),
		zap.String("content_type", meta.ContentType),
		zap.Int64("owner_id", meta.OwnerID),
		zap.Int("size", len(data)),
	)

	return s.baseURL + "/" + name, nil
}

// Remove удаляет файл по URL, выданному Store; отсутствующий файл не ошибка
func (s *LocalStore) Remove(_ context.Context, url string) error {
	path, err := s.Path(url)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}

	s.logger.Debug("File removed", zap.String("url", url))
	return nil
}

// Path возвращает путь к файлу по URL, выданному Store
func (s *LocalStore) Path(url string) (string, error) {
	name, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("file %q: %w", url, model.ErrNotFound)
	}
	return filepath.Join(s.dir, name), nil
}
