package newsroom

import (
	"context"
	"errors"

	"github.com/joestump/newswire/internal/store"
	"github.com/joestump/newswire/internal/upload"
)

// Profile is a user's profile page.
type Profile struct {
	User          *store.User
	PictureURL    string
	NewsCount     int
	FavoriteCount int
}

// Profile returns the profile of userID. Users without a picture get the
// default avatar.
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &Profile{User: u, PictureURL: u.ProfilePictureURL}
	if p.PictureURL == "" {
		p.PictureURL = s.defaults.Avatar
	}
	if p.NewsCount, err = s.news.CountByAuthor(ctx, userID); err != nil {
		return nil, err
	}
	if p.FavoriteCount, err = s.favorites.CountByUser(ctx, userID); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile changes targetID's names and, when f uploads successfully,
// their picture. The actor must be the user themselves or an administrator.
func (s *Service) UpdateProfile(ctx context.Context, actor store.ActingUser, targetID string, in store.ProfileInput, f *upload.File) (*store.User, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, target, "update profile", targetID); err != nil {
		return nil, err
	}
	if err := store.Validate(in); err != nil {
		return nil, err
	}

	if _, err := s.users.UpdateProfile(ctx, targetID, in.FirstName, in.LastName); err != nil {
		return nil, err
	}
	if f != nil {
		picture := s.gate.Replace(ctx, f, FolderProfiles, target.ProfilePictureURL)
		if picture.Uploaded {
			if err := s.users.UpdatePicture(ctx, targetID, picture.Path); err != nil {
				s.gate.Abort(ctx, picture)
				return nil, err
			}
			s.gate.Commit(ctx, picture)
		}
	}
	return s.users.GetByID(ctx, targetID)
}

// UpdateEmail changes the actor's own email address.
func (s *Service) UpdateEmail(ctx context.Context, actor store.ActingUser, email string) (*store.User, error) {
	if actor.ID == "" {
		return nil, ErrForbidden
	}
	in := store.EmailInput{Email: email}
	if err := store.Validate(in); err != nil {
		return nil, err
	}
	return s.users.UpdateEmail(ctx, actor.ID, in.Email)
}

// Statistics returns the author statistics for userID.
func (s *Service) Statistics(ctx context.Context, userID string) (*store.AuthorStatistics, error) {
	return s.stats.AuthorStatistics(ctx, userID)
}

// DeleteUser removes a user account and their profile picture. Only
// administrators may do this, and never to themselves.
func (s *Service) DeleteUser(ctx context.Context, actor store.ActingUser, id string) error {
	if !actor.IsAdmin() {
		s.logger.Info("mutation denied", "actor", actor.ID, "action", "delete user", "id", id)
		return ErrForbidden
	}
	if actor.ID == id {
		return ErrSelfDelete
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.gate.Delete(ctx, u.ProfilePictureURL)
	s.logger.Info("user deleted", "id", id, "actor", actor.ID)
	return nil
}

// SaveTeamMember creates a team member when id is empty, or updates it.
func (s *Service) SaveTeamMember(ctx context.Context, id string, in store.TeamMemberInput, f *upload.File) (*store.TeamMember, error) {
	if err := store.Validate(in); err != nil {
		return nil, err
	}
	if id == "" {
		image := s.gate.Replace(ctx, f, FolderTeam, s.defaults.TeamImage)
		m, err := s.team.Create(ctx, in, image.Path)
		if err != nil {
			s.gate.Abort(ctx, image)
			return nil, err
		}
		return m, nil
	}

	current, err := s.team.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	path := current.ImageURL
	if path == "" {
		path = s.defaults.TeamImage
	}
	image := s.gate.Replace(ctx, f, FolderTeam, path)
	m, err := s.team.Update(ctx, id, in, image.Path)
	if err != nil {
		s.gate.Abort(ctx, image)
		return nil, err
	}
	s.gate.Commit(ctx, image)
	return m, nil
}

// DeleteTeamMember removes a team member and their image.
func (s *Service) DeleteTeamMember(ctx context.Context, id string) error {
	m, err := s.team.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.team.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.gate.Delete(ctx, m.ImageURL); err != nil && !errors.Is(err, upload.ErrAssetNotFound) {
		s.logger.Warn("team member image left behind", "id", id, "path", m.ImageURL)
	}
	return nil
}
