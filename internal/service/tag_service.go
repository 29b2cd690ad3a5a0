package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/bcnelson/salon-crm/internal/domain"
	"github.com/bcnelson/salon-crm/internal/validation"
)

// TagService implements tag management. Renames and deletions are visible on every client
// at the next read since projections always carry the tag's current state.
type TagService struct {
	base
}

// NewTagService creates a new TagService.
func NewTagService(deps Deps) *TagService {
	return &TagService{base: newBase(deps)}
}

func (s *TagService) Create(ctx context.Context, orgID string, req domain.CreateTagRequest) (_ *domain.Tag, err error) {
	ctx, span := startSpan(ctx, "tags.create", orgID)
	defer func() { endSpan(span, err) }()

	validation.TrimString(&req.Name)
	validation.TrimOptional(&req.Color)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	now := s.now()
	tag := &domain.Tag{
		ID:             s.newID(),
		OrganizationID: orgID,
		Name:           req.Name,
		Color:          req.Color,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *TagService) Get(ctx context.Context, orgID, tagID string) (*domain.Tag, error) {
	return s.store.GetTag(ctx, orgID, tagID)
}

func (s *TagService) List(ctx context.Context, orgID string) ([]*domain.Tag, error) {
	return s.store.ListTags(ctx, orgID)
}

// Update applies req to tag, which the caller has loaded (and checked against If-Match).
func (s *TagService) Update(ctx context.Context, tag *domain.Tag, req domain.UpdateTagRequest) (err error) {
	ctx, span := startSpan(ctx, "tags.update", tag.OrganizationID)
	defer func() { endSpan(span, err) }()

	validation.TrimString(req.Name)
	validation.TrimOptional(&req.Color)
	if req.Name != nil && *req.Name == "" {
		return validation.ValidationErrors{validation.NewValidationError("name", "", "is required")}
	}
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	if req.Name != nil {
		tag.Name = *req.Name
	}
	if req.Color != nil {
		tag.Color = req.Color
	}
	if err := s.store.UpdateTag(ctx, tag); err != nil {
		return err
	}
	s.invalidate(ctx, tag.OrganizationID)
	return nil
}

// Delete soft-deletes a tag together with its client links.
func (s *TagService) Delete(ctx context.Context, orgID, tagID string) (err error) {
	ctx, span := startSpan(ctx, "tags.delete", orgID)
	defer func() { endSpan(span, err) }()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.DeleteTag(ctx, orgID, tagID, s.now()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.invalidate(ctx, orgID)
	s.logger.Info("tag deleted", zap.String("organization_id", orgID), zap.String("tag_id", tagID))
	return nil
}
