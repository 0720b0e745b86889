package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ont/internal/docservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// filePath extracts the file path from the URL (everything after /api/files/).
// Supports encoded slashes from OpenAPI clients (e.g. notes%2Fa.idm).
func filePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ifMatch returns the If-Match header without the quotes of the standard
// ETag format.
func ifMatch(r *http.Request) string {
	return strings.Trim(r.Header.Get("If-Match"), `"`)
}

// tagsParam collects tags from repeated ?tag= parameters and from
// comma-separated ?tags= lists.
func tagsParam(q url.Values) []string {
	var tags []string
	for _, t := range q["tag"] {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	for _, list := range q["tags"] {
		for _, t := range strings.Split(list, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// Outline handles GET /api/outline.
//
//	@Summary		Render the whole collection as one outline
//	@Tags			outline
//	@Produce		json
//	@Success		200	{object}	OutlineView
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/outline [get]
func (h *Handler) Outline(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Outline(r.Context())
	if err != nil {
		writeError(w, "outline", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListFiles handles GET /api/files.
//
//	@Summary		List collection files
//	@Tags			files
//	@Produce		json
//	@Success		200	{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.ListFiles(r.Context())
	if err != nil {
		writeError(w, "list files", err)
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: files})
}

// GetFile handles GET /api/files/*.
//
//	@Summary		Get a single file by path
//	@Tags			files
//	@Produce		json
//	@Param			path	path		string	true	"File path"
//	@Success		200		{object}	FileDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{path} [get]
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	path := filePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	file, err := h.svc.GetFile(r.Context(), path)
	if err != nil {
		writeError(w, "get file", err, slog.String("path", path))
		return
	}
	w.Header().Set("ETag", strconv.Quote(file.Checksum))
	writeJSON(w, http.StatusOK, file)
}

// PutFile handles PUT /api/files/*.
//
//	@Summary		Create or replace a file with optimistic concurrency
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string			true	"File path"
//	@Param			If-Match	header	string			false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	PutFileRequest	true	"File content"
//	@Success		200			{object}	FileDetail
//	@Success		201			{object}	FileDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{path} [put]
func (h *Handler) PutFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := filePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	var req PutFileRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	file, created, err := h.svc.PutFile(r.Context(), path, []byte(req.Content), ifMatch(r))
	if err != nil {
		writeError(w, "put file", err, slog.String("path", path))
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	w.Header().Set("ETag", strconv.Quote(file.Checksum))
	writeJSON(w, status, file)
}

// DeleteFile handles DELETE /api/files/*.
//
//	@Summary		Delete a file
//	@Tags			files
//	@Param			path		path	string	true	"File path"
//	@Param			If-Match	header	string	false	"SHA-256 checksum for optimistic concurrency"
//	@Success		204			"File deleted"
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{path} [delete]
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	path := filePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteFile(r.Context(), path, ifMatch(r)); err != nil {
		writeError(w, "delete file", err, slog.String("path", path))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sections handles GET /api/sections.
//
//	@Summary		List the indexed sections of a file
//	@Tags			sections
//	@Produce		json
//	@Param			file	query		string	true	"File path"
//	@Success		200		{object}	SectionListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections [get]
func (h *Handler) Sections(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("file")
	if file == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'file' is required"))
		return
	}
	sections, err := h.svc.Sections(r.Context(), file)
	if err != nil {
		writeError(w, "sections", err, slog.String("file", file))
		return
	}
	writeJSON(w, http.StatusOK, SectionListResponse{Sections: sections})
}

// Section handles GET /api/sections/{id}.
//
//	@Summary		Get one indexed section
//	@Tags			sections
//	@Produce		json
//	@Param			id	path		int	true	"Section id"
//	@Success		200	{object}	models.Section
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/{id} [get]
func (h *Handler) Section(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid section id"))
		return
	}
	section, err := h.svc.Section(r.Context(), id)
	if err != nil {
		writeError(w, "section", err)
		return
	}
	writeJSON(w, http.StatusOK, section)
}

// Tagged handles GET /api/tagged.
//
//	@Summary		Sections tagged with every given tag
//	@Tags			tags
//	@Produce		json
//	@Param			tag		query		[]string	false	"Tag (repeatable)"
//	@Param			tags	query		string		false	"Comma-separated tags"
//	@Param			tree	query		bool		false	"Return the pruned outline instead of a flat list"
//	@Param			limit	query		int			false	"Max results"
//	@Success		200		{object}	SectionListResponse
//	@Security		BearerAuth
//	@Router			/tagged [get]
func (h *Handler) Tagged(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tags := tagsParam(q)
	if tree, _ := strconv.ParseBool(q.Get("tree")); tree {
		text, err := h.svc.TaggedOutline(r.Context(), tags)
		if err != nil {
			writeError(w, "tagged outline", err)
			return
		}
		writeJSON(w, http.StatusOK, TaggedOutlineResponse{Outline: text})
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	sections, err := h.svc.Tagged(r.Context(), tags, limit)
	if err != nil {
		writeError(w, "tagged", err)
		return
	}
	writeJSON(w, http.StatusOK, SectionListResponse{Sections: sections})
}

// Tags handles GET /api/tags.
//
//	@Summary		Tag histogram
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	TagListResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		writeError(w, "tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across sections
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Weave handles POST /api/weave.
//
//	@Summary		Run the collection's changed scripts and splice their output
//	@Tags			weave
//	@Accept			json
//	@Produce		json
//	@Param			body	body		WeaveRequest	false	"Run options"
//	@Success		200		{object}	WeaveReport
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/weave [post]
func (h *Handler) Weave(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req WeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	report, err := h.svc.Weave(r.Context(), req.Force)
	if err != nil {
		writeError(w, "weave", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
