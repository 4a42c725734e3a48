package handlers

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/apperrors"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/importer"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/services"
)

const (
	maxImportSize    = 5 << 20
	maxThumbnailSize = 10 << 20
)

type CreateBookmarkRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	// UserID is accepted for compatibility and ignored; the owner always comes from the session.
	UserID string `json:"user_id,omitempty"`
}

type BookmarkResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Bookmark *models.Bookmark `json:"bookmark,omitempty"`
}

type BookmarksResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message,omitempty"`
	Bookmarks []models.Bookmark `json:"bookmarks"`
	Total     int               `json:"total"`
	Limit     int               `json:"limit"`
	Skip      int               `json:"skip"`
}

type DashboardResponse struct {
	Success   bool               `json:"success"`
	User      models.UserProfile `json:"user"`
	Bookmarks []models.Bookmark  `json:"bookmarks"`
	Total     int                `json:"total"`
}

type SearchResponse struct {
	Success bool                    `json:"success"`
	Query   string                  `json:"query"`
	Results []services.SearchResult `json:"results"`
}

type ImportResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

type LinkCheckResponse struct {
	Success bool                     `json:"success"`
	Results []models.LinkCheckResult `json:"results"`
}

// Dashboard loads the signed-in user and then their newest bookmarks.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.auth.User(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	dash, err := h.bookmarks.Dashboard(r.Context(), user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DashboardResponse{
		Success:   true,
		User:      dash.User,
		Bookmarks: nonNil(dash.Bookmarks),
		Total:     dash.Total,
	})
}

// ListBookmarks returns the user's bookmarks newest first. Supports ?limit and ?skip.
func (h *Handler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	skip, err := queryInt(r, "skip")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	page, err := h.bookmarks.List(r.Context(), userID, services.ListOptions{Limit: limit, Skip: skip})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, BookmarksResponse{
		Success:   true,
		Bookmarks: nonNil(page.Bookmarks),
		Total:     page.Total,
		Limit:     page.Limit,
		Skip:      page.Skip,
	})
}

func (h *Handler) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req CreateBookmarkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	b, err := h.bookmarks.Create(r.Context(), userID, req.Title, req.URL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, BookmarkResponse{
		Success:  true,
		Message:  "Bookmark created successfully",
		Bookmark: b,
	})
}

func (h *Handler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := bookmarkID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.bookmarks.Delete(r.Context(), userID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Bookmark deleted successfully"})
}

func (h *Handler) SearchBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	query := r.URL.Query().Get("q")
	results, err := h.bookmarks.Search(r.Context(), userID, query, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []services.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Success: true, Query: strings.TrimSpace(query), Results: results})
}

// ImportBookmarks accepts a multipart "file" field or the raw file as the request body.
func (h *Handler) ImportBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	format, err := importer.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, r, apperrors.Validation(err.Error()))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)

	var src io.Reader = r.Body
	if isMultipart(r) {
		file, err := formFile(r, maxImportSize)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		defer file.Close()
		src = file
	}

	// Read fully so an oversized body is reported before anything is parsed.
	data, err := io.ReadAll(src)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, apperrors.Validation("Bookmark file too large").WithContext("max_bytes", maxImportSize))
			return
		}
		h.writeError(w, r, apperrors.Validation("Failed to read bookmark file"))
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		h.writeError(w, r, apperrors.Validation("Bookmark file is empty"))
		return
	}

	res, err := h.bookmarks.Import(r.Context(), userID, format, bytes.NewReader(data))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{
		Success:  true,
		Message:  "Import finished",
		Imported: res.Imported,
		Skipped:  res.Skipped,
	})
}

// ExportBookmarks downloads every bookmark as a Netscape bookmark file.
func (h *Handler) ExportBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.bookmarks.Export(r.Context(), userID, &buf); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": "bookmarks.html"}))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// UploadThumbnail stores an image for a bookmark. Max 10MB.
func (h *Handler) UploadThumbnail(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := bookmarkID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxThumbnailSize)
	file, err := formFile(r, maxThumbnailSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer file.Close()

	b, err := h.bookmarks.AttachThumbnail(r.Context(), userID, id, file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BookmarkResponse{
		Success:  true,
		Message:  "Thumbnail uploaded successfully",
		Bookmark: b,
	})
}

// CheckLinks probes every bookmark URL of the user and reports its health.
func (h *Handler) CheckLinks(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	results, err := h.bookmarks.CheckLinks(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LinkCheckResponse{Success: true, Results: results})
}

func bookmarkID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperrors.Validation("Invalid bookmark id")
	}
	return id, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

type multipartFile interface {
	io.Reader
	io.Closer
}

func formFile(r *http.Request, maxMemory int64) (multipartFile, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.Validation("File too large").WithContext("max_bytes", maxMemory)
		}
		return nil, apperrors.Validation("Failed to parse form")
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, apperrors.Validation("No file provided")
	}
	return file, nil
}

func nonNil(bookmarks []models.Bookmark) []models.Bookmark {
	if bookmarks == nil {
		return []models.Bookmark{}
	}
	return bookmarks
}
