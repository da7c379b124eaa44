package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// 100MB upload cap; scanned books run large.
const maxUploadSize = 100 * 1024 * 1024

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("files")
	if err != nil {
		file, header, err = r.FormFile("file")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		h.writeError(w, "Only PDF files are supported", http.StatusBadRequest)
		return
	}

	if err := h.ensureUploadsDir(); err != nil {
		h.writeError(w, "Failed to create uploads directory: "+err.Error(), http.StatusInternalServerError)
		return
	}

	fileData, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(fileData) >= maxUploadSize {
		h.writeError(w, "File too large (max 100MB)", http.StatusBadRequest)
		return
	}

	path, err := h.savePDF(fileData, header.Filename)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	session := h.createSession(r.Context(), header.Filename, path)

	response := map[string]any{
		"session_id": session.ID,
		"status":     session.Status,
		"message":    "Successfully uploaded " + header.Filename,
	}

	h.writeJSON(w, response)
}
