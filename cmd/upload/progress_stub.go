//go:build no_bubbletea

package upload

import (
	"context"

	uploader "github.com/krau/fileopener/upload"
)

// UploadProgress manages the progress UI for uploads
type UploadProgress struct {
}

// NewUploadProgress creates a new upload progress tracker
func NewUploadProgress(ctx context.Context, fileName string, fileSize int64) *UploadProgress {
	return &UploadProgress{}
}

// Start starts the progress UI in a goroutine and returns immediately
func (up *UploadProgress) Start() {}

// Update forwards a controller state to the UI
func (up *UploadProgress) Update(s uploader.State) {}

// Wait waits for the progress UI to finish
func (up *UploadProgress) Wait() {}

// Quit quits the progress UI
func (up *UploadProgress) Quit() {}
