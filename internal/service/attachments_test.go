package service

import (
	"testing"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentPolicy_Check(t *testing.T) {
	policy := AttachmentPolicy{MaxBytes: 1 << 10, AllowedTypes: []string{"image/png", "application/pdf"}}

	tests := []struct {
		name     string
		upload   model.Upload
		wantErr  error
		wantType string
		wantExt  string
	}{
		{
			name:     "png detected by content",
			upload:   model.Upload{Filename: "photo.jpg", Data: pngHeader},
			wantType: "image/png",
			wantExt:  ".png",
		},
		{
			name:     "pdf",
			upload:   model.Upload{Filename: "dir/scan.pdf", Data: pdfHeader},
			wantType: "application/pdf",
			wantExt:  ".pdf",
		},
		{
			name:    "plain text",
			upload:  model.Upload{Filename: "note.pdf", Data: []byte("just some text")},
			wantErr: model.ErrUnsupportedFileType,
		},
		{
			name:    "too large",
			upload:  model.Upload{Filename: "big.png", Data: append(append([]byte{}, pngHeader...), make([]byte, 1<<10)...)},
			wantErr: model.ErrFileTooLarge,
		},
		{
			name:    "empty",
			upload:  model.Upload{Filename: "empty.png"},
			wantErr: model.ErrValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := policy.Check(tt.upload)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, meta.ContentType)
			assert.Equal(t, tt.wantExt, meta.Extension)
			assert.Equal(t, int64(len(tt.upload.Data)), meta.Size)
		})
	}
}

func TestAttachmentPolicy_CheckAll(t *testing.T) {
	policy := DefaultAttachmentPolicy()

	files := make([]model.Upload, MaxAttachments+1)
	for i := range files {
		files[i] = model.Upload{Filename: "p.png", Data: pngHeader}
	}
	_, err := policy.CheckAll(files)
	assert.ErrorIs(t, err, model.ErrValidationFailed)

	metas, err := policy.CheckAll(files[:2])
	require.NoError(t, err)
	assert.Len(t, metas, 2)

	_, err = policy.CheckAll([]model.Upload{{Filename: "a.png", Data: pngHeader}, {Filename: "b.txt", Data: []byte("text")}})
	assert.ErrorIs(t, err, model.ErrUnsupportedFileType, "one bad file rejects the batch")

	none, err := policy.CheckAll(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
