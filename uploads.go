/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/Seednode/quizbox/internal/media"
)

const uploadField = "audio"

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}

func (s *server) serveUpload() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		// Leave headroom for the multipart framing around the file itself.
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.maxUploadSize+1<<20)

		file, header, err := r.FormFile(uploadField)
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				s.writeJSON(w, r, http.StatusRequestEntityTooLarge, map[string]string{
					"error": "File exceeds " + humanReadableSize(s.cfg.maxUploadSize) + ".",
				})
				return
			}
			s.writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "Missing audio file."})
			return
		}
		defer file.Close()

		if r.MultipartForm != nil {
			defer func() { _ = r.MultipartForm.RemoveAll() }()
		}

		if header.Size > s.cfg.maxUploadSize {
			s.writeJSON(w, r, http.StatusRequestEntityTooLarge, map[string]string{
				"error": "File exceeds " + humanReadableSize(s.cfg.maxUploadSize) + ".",
			})
			return
		}

		obj, err := s.media.Put(r.Context(), header.Filename, header.Header.Get("Content-Type"), file, header.Size)
		switch {
		case errors.Is(err, media.ErrUnsupportedType):
			s.writeJSON(w, r, http.StatusUnsupportedMediaType, map[string]string{"error": "Unsupported audio type."})
			return
		case err != nil:
			s.logger.Error("storing upload", zap.String("name", header.Filename), zap.Error(err))
			s.writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "Upload failed."})
			return
		}

		s.writeJSON(w, r, http.StatusCreated, obj)

		s.logger.Info("stored upload",
			zap.String("key", obj.Key),
			zap.String("size", humanReadableSize(obj.Size)),
			zap.String("remote", realIP(r)),
			zap.Duration("elapsed", time.Since(startTime).Round(time.Microsecond)),
		)
	}
}

// serveUploads serves clips written by the disk store. Directory listings
// are refused.
func (s *server) serveUploads(dir string) httprouter.Handle {
	files := http.FileServer(http.Dir(dir))

	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		name := p.ByName("filepath")
		if name == "" || strings.HasSuffix(name, "/") || strings.Contains(name, "/.") {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=86400")
		securityHeaders(s.cfg, w)

		r.URL.Path = name
		files.ServeHTTP(w, r)
	}
}
