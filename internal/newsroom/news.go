package newsroom

import (
	"context"
	"errors"
	"fmt"

	"github.com/joestump/newswire/internal/metrics"
	"github.com/joestump/newswire/internal/store"
	"github.com/joestump/newswire/internal/upload"
)

// ArticleView is an article decorated for a particular viewer.
type ArticleView struct {
	*store.News
	IsOwner    bool
	IsFavorite bool
}

// CategoryPage is one page of a category's articles.
type CategoryPage struct {
	Category *store.Category
	Articles store.Page[ArticleView]
}

func (s *Service) checkCategory(ctx context.Context, id string) error {
	ok, err := s.categories.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &store.ValidationError{Fields: map[string]string{"category_id": "does not exist"}}
	}
	return nil
}

// CreateNews publishes an article authored by actor. A missing or rejected
// image falls back to the default news image.
func (s *Service) CreateNews(ctx context.Context, actor store.ActingUser, in store.NewsInput, f *upload.File) (*store.News, error) {
	if actor.ID == "" {
		return nil, ErrForbidden
	}
	if err := store.Validate(in); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	image := s.gate.Replace(ctx, f, FolderNews, s.defaults.NewsImage)
	n, err := s.news.Create(ctx, in, image.Path, actor.ID)
	if err != nil {
		s.gate.Abort(ctx, image)
		return nil, fmt.Errorf("create news: %w", err)
	}
	s.logger.Info("news created", "id", n.ID, "author", actor.ID)
	return n, nil
}

// UpdateNews edits an article the actor may mutate. A new image replaces the
// old one only when it uploads successfully.
func (s *Service) UpdateNews(ctx context.Context, actor store.ActingUser, id string, in store.NewsInput, f *upload.File) (*store.News, error) {
	current, err := s.news.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, current, "update news", id); err != nil {
		return nil, err
	}
	if err := store.Validate(in); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	path := current.ImageURL
	if path == "" {
		path = s.defaults.NewsImage
	}
	image := s.gate.Replace(ctx, f, FolderNews, path)
	n, err := s.news.Update(ctx, id, in, image.Path)
	if err != nil {
		s.gate.Abort(ctx, image)
		return nil, err
	}
	s.gate.Commit(ctx, image)
	return n, nil
}

// DeleteNews removes an article the actor may mutate, then its image.
func (s *Service) DeleteNews(ctx context.Context, actor store.ActingUser, id string) error {
	n, err := s.news.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, n, "delete news", id); err != nil {
		return err
	}
	if err := s.news.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.gate.Delete(ctx, n.ImageURL)
	s.logger.Info("news deleted", "id", id, "actor", actor.ID)
	return nil
}

// Article returns an article for viewer and records a view.
func (s *Service) Article(ctx context.Context, viewer store.ActingUser, id string) (*ArticleView, error) {
	n, err := s.news.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := &ArticleView{News: n, IsOwner: store.CanMutate(viewer, n)}
	if viewer.ID != "" {
		if v.IsFavorite, err = s.favorites.IsFavorite(ctx, viewer.ID, id); err != nil {
			return nil, err
		}
	}
	s.recordView(store.ViewEvent{NewsID: id, UserID: viewer.ID})
	return v, nil
}

// Editable returns an article the actor may mutate, without recording a view.
func (s *Service) Editable(ctx context.Context, actor store.ActingUser, id string) (*store.News, error) {
	n, err := s.news.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, n, "edit news", id); err != nil {
		return nil, err
	}
	return n, nil
}

// recordView enqueues e without blocking the request.
func (s *Service) recordView(e store.ViewEvent) {
	if s.views == nil {
		return
	}
	select {
	case s.views <- e:
	default:
		metrics.ViewsDroppedTotal.Inc()
	}
}

// CategoryArticles returns one page of a category's articles.
func (s *Service) CategoryArticles(ctx context.Context, viewer store.ActingUser, categoryID string, req store.PageRequest) (*CategoryPage, error) {
	c, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	p, err := s.news.ListByCategory(ctx, categoryID, req)
	if err != nil {
		return nil, err
	}
	articles, err := s.decorate(ctx, viewer, p)
	if err != nil {
		return nil, err
	}
	return &CategoryPage{Category: c, Articles: articles}, nil
}

// AuthorArticles returns one page of the viewer's own articles.
func (s *Service) AuthorArticles(ctx context.Context, viewer store.ActingUser, req store.PageRequest) (store.Page[ArticleView], error) {
	p, err := s.news.ListByAuthor(ctx, viewer.ID, req)
	if err != nil {
		return store.Page[ArticleView]{}, err
	}
	return s.decorate(ctx, viewer, p)
}

// AllArticles returns one page of every article, for moderation.
func (s *Service) AllArticles(ctx context.Context, viewer store.ActingUser, req store.PageRequest) (store.Page[ArticleView], error) {
	p, err := s.news.ListAll(ctx, req)
	if err != nil {
		return store.Page[ArticleView]{}, err
	}
	return s.decorate(ctx, viewer, p)
}

// Favorites returns one page of the viewer's favorite articles.
func (s *Service) Favorites(ctx context.Context, viewer store.ActingUser, req store.PageRequest) (store.Page[ArticleView], error) {
	p, err := s.favorites.ListByUser(ctx, viewer.ID, req)
	if err != nil {
		return store.Page[ArticleView]{}, err
	}
	out := store.Page[ArticleView]{Number: p.Number, Size: p.Size, Total: p.Total}
	for _, n := range p.Items {
		out.Items = append(out.Items, ArticleView{News: n, IsOwner: store.CanMutate(viewer, n), IsFavorite: true})
	}
	return out, nil
}

func (s *Service) decorate(ctx context.Context, viewer store.ActingUser, p store.Page[*store.News]) (store.Page[ArticleView], error) {
	ids := make([]string, len(p.Items))
	for i, n := range p.Items {
		ids[i] = n.ID
	}
	favs, err := s.favorites.FavoritedIDs(ctx, viewer.ID, ids)
	if err != nil {
		return store.Page[ArticleView]{}, err
	}
	out := store.Page[ArticleView]{Number: p.Number, Size: p.Size, Total: p.Total}
	for _, n := range p.Items {
		out.Items = append(out.Items, ArticleView{
			News:       n,
			IsOwner:    store.CanMutate(viewer, n),
			IsFavorite: favs[n.ID],
		})
	}
	return out, nil
}

// ToggleFavorite flips the viewer's favorite on an article and reports the
// new state.
func (s *Service) ToggleFavorite(ctx context.Context, actor store.ActingUser, newsID string) (bool, error) {
	if actor.ID == "" {
		return false, ErrForbidden
	}
	if _, err := s.news.GetByID(ctx, newsID); err != nil {
		return false, err
	}
	ok, err := s.favorites.IsFavorite(ctx, actor.ID, newsID)
	if err != nil {
		return false, err
	}
	if ok {
		if err := s.favorites.Remove(ctx, actor.ID, newsID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return true, err
		}
		return false, nil
	}
	if err := s.favorites.Add(ctx, actor.ID, newsID); err != nil && !errors.Is(err, store.ErrAlreadyFavorite) {
		return false, err
	}
	return true, nil
}

// AddFavorite marks an article as a favorite. Returns store.ErrAlreadyFavorite
// when it already is.
func (s *Service) AddFavorite(ctx context.Context, actor store.ActingUser, newsID string) error {
	if actor.ID == "" {
		return ErrForbidden
	}
	if _, err := s.news.GetByID(ctx, newsID); err != nil {
		return err
	}
	return s.favorites.Add(ctx, actor.ID, newsID)
}

// RemoveFavorite unmarks a favorite. Returns store.ErrNotFound when it was
// not marked.
func (s *Service) RemoveFavorite(ctx context.Context, actor store.ActingUser, newsID string) error {
	if actor.ID == "" {
		return ErrForbidden
	}
	return s.favorites.Remove(ctx, actor.ID, newsID)
}
