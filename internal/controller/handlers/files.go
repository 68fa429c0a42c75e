package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/go-telegram/bot"
)

// TelegramFiles скачивает файлы, присланные боту
type TelegramFiles struct {
	bot    *bot.Bot
	client *http.Client
}

func NewTelegramFiles(b *bot.Bot) *TelegramFiles {
	return &TelegramFiles{
		bot:    b,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Download читает не больше maxBytes; более длинный файл обрезается, и проверка размера его отклонит
func (f *TelegramFiles) Download(ctx context.Context, fileID string, maxBytes int64) ([]byte, error) {
	file, err := f.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if file.FilePath == "" {
		return nil, errors.New("telegram returned no file path")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, f.bot.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file %s: %w", fileID, model.ErrNotFound)
	}
	return data, nil
}
