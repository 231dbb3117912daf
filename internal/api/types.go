package api

import (
	"time"

	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
)

// --- Category types ---

// CategoryResponse is the JSON representation of a category.
type CategoryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	NewsCount   *int      `json:"news_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CategoryListResponse lists every category.
type CategoryListResponse struct {
	Categories []CategoryResponse `json:"categories"`
}

func categoryResponse(c *store.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, Description: c.Description, CreatedAt: c.CreatedAt}
}

// --- News types ---

// NewsResponse is the JSON representation of an article.
type NewsResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Topic        string    `json:"topic"`
	ImageURL     string    `json:"image_url"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	AuthorID     *string   `json:"author_id"`
	AuthorName   string    `json:"author_name"`
	PublishedAt  time.Time `json:"published_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	IsOwner      bool      `json:"is_owner"`
	IsFavorite   bool      `json:"is_favorite"`
}

func newsResponse(n *store.News) NewsResponse {
	resp := NewsResponse{
		ID:           n.ID,
		Title:        n.Title,
		Content:      n.Content,
		Topic:        n.Topic,
		ImageURL:     n.ImageURL,
		CategoryID:   n.CategoryID,
		CategoryName: n.CategoryName,
		AuthorName:   n.AuthorName,
		PublishedAt:  n.PublishedAt,
		UpdatedAt:    n.UpdatedAt,
	}
	if id, ok := n.Author(); ok {
		resp.AuthorID = &id
	}
	return resp
}

func articleResponse(a *newsroom.ArticleView) NewsResponse {
	resp := newsResponse(a.News)
	resp.IsOwner = a.IsOwner
	resp.IsFavorite = a.IsFavorite
	return resp
}

// NewsListResponse is one page of articles.
type NewsListResponse struct {
	News       []NewsResponse `json:"news"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

func newsListResponse(p store.Page[newsroom.ArticleView]) NewsListResponse {
	resp := NewsListResponse{
		News:       make([]NewsResponse, 0, len(p.Items)),
		Page:       p.Number,
		PerPage:    p.Size,
		Total:      p.Total,
		TotalPages: p.TotalPages(),
	}
	for i := range p.Items {
		resp.News = append(resp.News, articleResponse(&p.Items[i]))
	}
	return resp
}

// FavoriteResponse reports whether an article is among the caller's favorites.
type FavoriteResponse struct {
	Favorited bool `json:"favorited"`
}

// --- User types ---

// UserResponse is the JSON representation of a user.
type UserResponse struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	DisplayName       string    `json:"display_name"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	ProfilePictureURL string    `json:"profile_picture_url"`
	Roles             []string  `json:"roles"`
	CreatedAt         time.Time `json:"created_at"`
}

func userResponse(u *store.User) UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserResponse{
		ID:                u.ID,
		Email:             u.Email,
		DisplayName:       u.DisplayName,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		ProfilePictureURL: u.ProfilePictureURL,
		Roles:             roles,
		CreatedAt:         u.CreatedAt,
	}
}

// ProfileResponse is the caller's profile with their counters.
type ProfileResponse struct {
	UserResponse
	PictureURL    string `json:"picture_url"`
	NewsCount     int    `json:"news_count"`
	FavoriteCount int    `json:"favorite_count"`
}

// UserListResponse lists every user.
type UserListResponse struct {
	Users []UserResponse `json:"users"`
}

// UpdateRolesRequest is the request body for PUT /api/v1/admin/users/{id}/roles.
type UpdateRolesRequest struct {
	Roles []string `json:"roles"`
}

// --- Token types ---

// CreateTokenRequest is the request body for POST /api/v1/tokens.
type CreateTokenRequest struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// TokenResponse is the JSON representation of an API token. The hash is
// never included.
type TokenResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	LastUsedAt *time.Time `json:"last_used_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func tokenResponse(rec *auth.TokenRecord) TokenResponse {
	item := TokenResponse{ID: rec.ID, Name: rec.Name, CreatedAt: rec.CreatedAt}
	if rec.LastUsedAt.Valid {
		t := rec.LastUsedAt.Time
		item.LastUsedAt = &t
	}
	if rec.ExpiresAt.Valid {
		t := rec.ExpiresAt.Time
		item.ExpiresAt = &t
	}
	return item
}

// TokenCreatedResponse carries the plaintext token. It is returned once.
type TokenCreatedResponse struct {
	TokenResponse
	Token string `json:"token"`
}

// TokenListResponse lists the caller's active and revoked tokens.
type TokenListResponse struct {
	Tokens []TokenResponse `json:"tokens"`
}

// --- Admin types ---

// MessageResponse is the JSON representation of a contact message.
type MessageResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageListResponse lists contact messages, newest first.
type MessageListResponse struct {
	Messages []MessageResponse `json:"messages"`
}
