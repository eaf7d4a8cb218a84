package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Favorites is the persistent favorites set.
type Favorites interface {
	List(ctx context.Context) ([]int, error)
	IsFavorite(ctx context.Context, streamID int) (bool, error)
	Toggle(ctx context.Context, streamID int) (bool, error)
}

// FavoritesHandler serves the favorites set.
type FavoritesHandler struct {
	favorites Favorites
}

// NewFavoritesHandler creates a favorites handler.
func NewFavoritesHandler(favorites Favorites) *FavoritesHandler {
	return &FavoritesHandler{favorites: favorites}
}

// FavoriteStatus is the favorite flag of one stream.
type FavoriteStatus struct {
	StreamID int  `json:"stream_id"`
	Favorite bool `json:"favorite"`
}

// ListFavoritesInput is the input for ListFavorites.
type ListFavoritesInput struct{}

// ListFavoritesOutput is the output for ListFavorites.
type ListFavoritesOutput struct {
	Body struct {
		StreamIDs []int `json:"stream_ids"`
		Count     int   `json:"count"`
	}
}

// FavoriteInput identifies a stream.
type FavoriteInput struct {
	StreamID int `path:"stream_id" minimum:"1" doc:"Stream ID"`
}

// FavoriteOutput is the favorite flag of a stream.
type FavoriteOutput struct {
	Body FavoriteStatus
}

// Register registers the favorites routes.
func (h *FavoritesHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listFavorites",
		Method:      http.MethodGet,
		Path:        "/api/v1/favorites",
		Summary:     "List favorites",
		Tags:        []string{"Favorites"},
	}, h.ListFavorites)

	huma.Register(api, huma.Operation{
		OperationID: "getFavorite",
		Method:      http.MethodGet,
		Path:        "/api/v1/favorites/{stream_id}",
		Summary:     "Get favorite flag",
		Tags:        []string{"Favorites"},
	}, h.GetFavorite)

	huma.Register(api, huma.Operation{
		OperationID: "toggleFavorite",
		Method:      http.MethodPost,
		Path:        "/api/v1/favorites/{stream_id}/toggle",
		Summary:     "Toggle favorite",
		Description: "Flips the favorite flag and broadcasts the change to event subscribers",
		Tags:        []string{"Favorites"},
	}, h.ToggleFavorite)
}

// ListFavorites returns all favorite stream IDs.
func (h *FavoritesHandler) ListFavorites(ctx context.Context, _ *ListFavoritesInput) (*ListFavoritesOutput, error) {
	ids, err := h.favorites.List(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing favorites failed", err)
	}

	out := &ListFavoritesOutput{}
	out.Body.StreamIDs = ids
	out.Body.Count = len(ids)
	return out, nil
}

// GetFavorite reports whether a stream is a favorite.
func (h *FavoritesHandler) GetFavorite(ctx context.Context, input *FavoriteInput) (*FavoriteOutput, error) {
	fav, err := h.favorites.IsFavorite(ctx, input.StreamID)
	if err != nil {
		return nil, huma.Error500InternalServerError("reading favorite failed", err)
	}
	return &FavoriteOutput{Body: FavoriteStatus{StreamID: input.StreamID, Favorite: fav}}, nil
}

// ToggleFavorite flips the favorite flag of a stream.
func (h *FavoritesHandler) ToggleFavorite(ctx context.Context, input *FavoriteInput) (*FavoriteOutput, error) {
	fav, err := h.favorites.Toggle(ctx, input.StreamID)
	if err != nil {
		return nil, huma.Error500InternalServerError("toggling favorite failed", err)
	}
	return &FavoriteOutput{Body: FavoriteStatus{StreamID: input.StreamID, Favorite: fav}}, nil
}
