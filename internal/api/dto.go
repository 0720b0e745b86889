package api

import (
	"github.com/starford/ont/internal/docservice"
	"github.com/starford/ont/internal/models"
	"github.com/starford/ont/internal/weave"
)

// PutFileRequest is the request body for creating or replacing a file.
type PutFileRequest struct {
	Content string `json:"content" example:"groceries\n  milk" validate:"required"`
}

// WeaveRequest is the optional request body of a weave run.
type WeaveRequest struct {
	Force bool `json:"force" example:"false"`
}

// OutlineView is the whole collection (aliased from the domain layer).
type OutlineView = docservice.OutlineView

// FileDetail is the full file response type (aliased from the domain layer).
type FileDetail = docservice.FileDetail

// WeaveReport lists the scripts of a weave run (aliased from the domain layer).
type WeaveReport = weave.Report

// FileListResponse wraps file listings.
type FileListResponse struct {
	Files []models.FileMeta `json:"files" validate:"required"`
}

// SectionListResponse wraps section listings.
type SectionListResponse struct {
	Sections []models.Section `json:"sections" validate:"required"`
}

// TaggedOutlineResponse is the pruned outline returned by /tagged?tree=true.
type TaggedOutlineResponse struct {
	Outline string `json:"outline" example:"Projects\n  ont\n    :tags go"`
}

// TagListResponse wraps the tag histogram.
type TagListResponse struct {
	Tags []models.TagCount `json:"tags" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchResult `json:"results" validate:"required"`
}
