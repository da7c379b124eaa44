package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/iscc/iscc-metagen/internal/config"
	"github.com/iscc/iscc-metagen/internal/metadata"
	"github.com/iscc/iscc-metagen/internal/models"
	"github.com/iscc/iscc-metagen/internal/storage"
)

// Generator produces metadata for an uploaded document.
type Generator interface {
	GenerateFile(ctx context.Context, path string) (*metadata.BookMetadata, error)
}

type Handler struct {
	sessionStore *storage.SessionStore
	generator    Generator
	cfg          *config.Config
}

func New(cfg *config.Config, generator Generator) *Handler {
	return &Handler{
		sessionStore: storage.New(),
		generator:    generator,
		cfg:          cfg,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*models.Session, bool) {
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

// File operation helpers
func (h *Handler) ensureUploadsDir() error {
	return os.MkdirAll("uploads", 0755)
}

func (h *Handler) savePDF(fileData []byte, filename string) (string, error) {
	sum := sha256.Sum256(fileData)
	name := hex.EncodeToString(sum[:8]) + filepath.Ext(filename)
	path := filepath.Join("uploads", name)

	if err := os.WriteFile(path, fileData, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	slog.Info("Document saved", "filename", filename, "path", path)
	return path, nil
}

func (h *Handler) createSession(ctx context.Context, filename, path string) *models.Session {
	sessionID := fmt.Sprintf("%s_%d", filename, time.Now().Unix())
	session := &models.Session{
		ID:        sessionID,
		Filename:  filename,
		FilePath:  path,
		Provider:  h.cfg.Provider,
		Model:     h.cfg.Model(),
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}
	h.sessionStore.Set(sessionID, session)

	slog.Info("Generating metadata", "session_id", sessionID, "provider", session.Provider, "model", session.Model)
	m, err := h.generator.GenerateFile(ctx, path)
	if err != nil {
		slog.Error("Failed to generate metadata", "session_id", sessionID, "error", err)
		session.Status = models.StatusFailed
		session.Error = err.Error()
	} else {
		session.Status = models.StatusDone
		session.Metadata = m
		slog.Info("Metadata generated", "session_id", sessionID, "title", m.Title)
	}
	h.sessionStore.Set(sessionID, session)

	return session
}
