package agent

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/duke-git/lancet/v2/fileutil"
	"github.com/duke-git/lancet/v2/slice"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/krau/fileopener/common/utils/fsutil"
	"github.com/krau/fileopener/common/utils/ioutil"
	"github.com/krau/fileopener/upload"
	"github.com/rs/xid"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "OK",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize)

	file, header, err := r.FormFile(upload.FileField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, "File exceeds the upload limit of "+humanize.IBytes(uint64(maxErr.Limit)), http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, "Failed to get file from request: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := fsutil.NormalizePathname(filepath.Base(header.Filename))
	if name == "" {
		name = "upload"
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		// no extension to go by, sniff one from the content
		mt, err := mimetype.DetectReader(file)
		if err != nil {
			respondError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			respondError(w, "Failed to read file: "+err.Error(), http.StatusInternalServerError)
			return
		}
		ext = mt.Extension()
		name += ext
	}

	if len(s.opts.AllowedExtensions) > 0 && !slice.Contain(s.opts.AllowedExtensions, ext) {
		respondError(w, "File type not allowed", http.StatusBadRequest)
		return
	}

	filePath := filepath.Join(s.opts.UploadDir, xid.New().String()+"_"+name)
	dst, err := fsutil.CreateFile(filePath)
	if err != nil {
		respondError(w, "Failed to create destination file: "+err.Error(), http.StatusInternalServerError)
		return
	}
	cw := ioutil.NewCountingWriter(dst)
	if _, err := io.Copy(cw, file); err != nil {
		dst.CloseAndRemove()
		respondError(w, "Failed to save file: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := dst.Close(); err != nil {
		respondError(w, "Failed to save file: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Info("Saved upload",
		"path", filePath,
		"size", humanize.IBytes(uint64(cw.Written())),
		"request_id", r.Header.Get("X-Request-Id"))

	if r.FormValue(upload.OpenNowField) == "true" {
		s.openAsync(filePath)
	}

	respondJSON(w, upload.Response{Success: true, FilePath: filePath}, http.StatusOK)
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if filename == "" || strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		respondError(w, "Invalid filename", http.StatusBadRequest)
		return
	}

	filePath := filepath.Join(s.opts.UploadDir, filename)
	if !fileutil.IsExist(filePath) {
		respondError(w, "File not found", http.StatusNotFound)
		return
	}

	s.openAsync(filePath)
	respondJSON(w, upload.Response{Success: true, FilePath: filePath}, http.StatusOK)
}

func respondJSON(w http.ResponseWriter, resp upload.Response, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, upload.Response{Success: false, ErrorMessage: message}, statusCode)
}
