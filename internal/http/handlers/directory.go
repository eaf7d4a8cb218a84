package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/tvee/internal/directory"
)

// Directory is the browsable channel directory.
type Directory interface {
	BrowseCategories(ctx context.Context, search string) ([]directory.Category, error)
	BrowseChannels(ctx context.Context, categoryID, search string) ([]directory.Channel, error)
	Refresh(ctx context.Context) error
	LoadedAt() time.Time
}

// DirectoryHandler serves categories and channels.
type DirectoryHandler struct {
	directory Directory
	logger    *slog.Logger
}

// NewDirectoryHandler creates a directory handler.
func NewDirectoryHandler(dir Directory, logger *slog.Logger) *DirectoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryHandler{directory: dir, logger: logger}
}

// ListCategoriesInput is the input for ListCategories.
type ListCategoriesInput struct {
	Search string `query:"search" doc:"Case-insensitive substring of the category name"`
}

// ListCategoriesOutput is the output for ListCategories.
type ListCategoriesOutput struct {
	Body struct {
		Categories []directory.Category `json:"categories"`
		Count      int                  `json:"count"`
	}
}

// ListChannelsInput is the input for ListChannels.
type ListChannelsInput struct {
	CategoryID string `query:"category_id" doc:"Category ID, or 'favorites'"`
	Search     string `query:"search" doc:"Matches channel number, name and the programme airing now"`
}

// ListChannelsOutput is the output for ListChannels.
type ListChannelsOutput struct {
	Body struct {
		Channels []directory.Channel `json:"channels"`
		Count    int                 `json:"count"`
	}
}

// RefreshDirectoryInput is the input for RefreshDirectory.
type RefreshDirectoryInput struct{}

// RefreshDirectoryOutput is the output for RefreshDirectory.
type RefreshDirectoryOutput struct {
	Body struct {
		LoadedAt time.Time `json:"loaded_at"`
	}
}

// Register registers the directory routes.
func (h *DirectoryHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories",
		Summary:     "List categories",
		Description: "Favorites first when not searching, then USA categories, then the rest alphabetically",
		Tags:        []string{"Directory"},
	}, h.ListCategories)

	huma.Register(api, huma.Operation{
		OperationID: "listChannels",
		Method:      http.MethodGet,
		Path:        "/api/v1/channels",
		Summary:     "List channels",
		Description: "Channels of a category ordered by number",
		Tags:        []string{"Directory"},
	}, h.ListChannels)

	huma.Register(api, huma.Operation{
		OperationID: "refreshDirectory",
		Method:      http.MethodPost,
		Path:        "/api/v1/directory/refresh",
		Summary:     "Refresh directory",
		Description: "Reloads categories and channels from the provider",
		Tags:        []string{"Directory"},
	}, h.RefreshDirectory)
}

// ListCategories returns the ordered category list.
func (h *DirectoryHandler) ListCategories(ctx context.Context, input *ListCategoriesInput) (*ListCategoriesOutput, error) {
	categories, err := h.directory.BrowseCategories(ctx, input.Search)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing categories failed", slog.String("error", err.Error()))
		return nil, huma.Error502BadGateway("provider directory unavailable", err)
	}

	out := &ListCategoriesOutput{}
	out.Body.Categories = categories
	out.Body.Count = len(categories)
	return out, nil
}

// ListChannels returns the channels of a category.
func (h *DirectoryHandler) ListChannels(ctx context.Context, input *ListChannelsInput) (*ListChannelsOutput, error) {
	channels, err := h.directory.BrowseChannels(ctx, input.CategoryID, input.Search)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing channels failed",
			slog.String("category_id", input.CategoryID),
			slog.String("error", err.Error()))
		return nil, huma.Error502BadGateway("provider directory unavailable", err)
	}

	out := &ListChannelsOutput{}
	out.Body.Channels = channels
	out.Body.Count = len(channels)
	return out, nil
}

// RefreshDirectory reloads the directory.
func (h *DirectoryHandler) RefreshDirectory(ctx context.Context, _ *RefreshDirectoryInput) (*RefreshDirectoryOutput, error) {
	if err := h.directory.Refresh(ctx); err != nil {
		return nil, huma.Error502BadGateway("refreshing directory failed", err)
	}

	out := &RefreshDirectoryOutput{}
	out.Body.LoadedAt = h.directory.LoadedAt()
	return out, nil
}
