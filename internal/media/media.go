/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package media stores uploaded audio clips and hands back URLs the host's
// browser can play them from.
package media

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
)

var ErrUnsupportedType = errors.New("unsupported audio type")

// Object describes a stored upload.
type Object struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

type Store interface {
	Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (Object, error)
	Check(ctx context.Context) error
}

var audioTypes = map[string]string{
	"audio/mpeg":   ".mp3",
	"audio/mp3":    ".mp3",
	"audio/mp4":    ".m4a",
	"audio/x-m4a":  ".m4a",
	"audio/aac":    ".aac",
	"audio/ogg":    ".ogg",
	"audio/opus":   ".opus",
	"audio/wav":    ".wav",
	"audio/x-wav":  ".wav",
	"audio/wave":   ".wav",
	"audio/flac":   ".flac",
	"audio/x-flac": ".flac",
	"audio/webm":   ".webm",
}

var audioExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".webm": "audio/webm",
}

// Classify resolves the canonical content type and extension for an upload,
// trusting the declared type first and the file name second.
func Classify(name, contentType string) (string, string, error) {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mt = strings.ToLower(mt)
		if ext, ok := audioTypes[mt]; ok {
			return mt, ext, nil
		}
	}

	ext := strings.ToLower(path.Ext(name))
	if ct, ok := audioExtensions[ext]; ok {
		return ct, ext, nil
	}

	return "", "", ErrUnsupportedType
}

// NewKey returns a collision-free object key with the given extension.
func NewKey(ext string) string {
	return uuid.NewString() + ext
}
