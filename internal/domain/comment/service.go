package comment

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/healthgateway/gateway/internal/domain/profile"
	"github.com/healthgateway/gateway/internal/platform/crypto"
	"github.com/healthgateway/gateway/internal/platform/result"
)

type Service struct {
	comments Repository
	profiles profile.KeyReader
}

func NewService(comments Repository, profiles profile.KeyReader) *Service {
	return &Service{comments: comments, profiles: profiles}
}

func validateComment(c *Comment) error {
	if strings.TrimSpace(c.Text) == "" {
		return result.Validation("text is required")
	}
	if utf8.RuneCountInString(c.Text) > maxTextLength {
		return result.Validation("text must be at most %d characters", maxTextLength)
	}
	if !validEntryTypes[c.EntryTypeCode] {
		return result.Validation("invalid entry type: %s", c.EntryTypeCode)
	}
	return nil
}

func (s *Service) AddComment(ctx context.Context, hdid string, c *Comment) (*Comment, error) {
	if err := validateComment(c); err != nil {
		return nil, err
	}
	if c.ParentEntryID == "" {
		return nil, result.Validation("parent_entry_id is required")
	}
	cipher, err := profile.CipherFor(ctx, s.profiles, hdid)
	if err != nil {
		return nil, err
	}
	stored := *c
	stored.Hdid = hdid
	if stored.Text, err = cipher.Encrypt(c.Text); err != nil {
		return nil, err
	}
	if err := s.comments.Create(ctx, &stored); err != nil {
		return nil, result.FromDB(err, "comment")
	}
	stored.Text = c.Text
	return &stored, nil
}

func (s *Service) GetEntryComments(ctx context.Context, hdid, parentEntryID string) ([]*Comment, error) {
	items, err := s.comments.ListByEntry(ctx, hdid, parentEntryID)
	if err != nil {
		return nil, result.FromDB(err, "comments")
	}
	return s.decryptAll(ctx, hdid, items)
}

// GetProfileComments returns every comment of hdid grouped by parent entry id.
func (s *Service) GetProfileComments(ctx context.Context, hdid string) (map[string][]*Comment, error) {
	items, err := s.comments.ListByHdid(ctx, hdid)
	if err != nil {
		return nil, result.FromDB(err, "comments")
	}
	if items, err = s.decryptAll(ctx, hdid, items); err != nil {
		return nil, err
	}
	out := make(map[string][]*Comment)
	for _, c := range items {
		out[c.ParentEntryID] = append(out[c.ParentEntryID], c)
	}
	return out, nil
}

func (s *Service) UpdateComment(ctx context.Context, hdid string, c *Comment) (*Comment, error) {
	if err := validateComment(c); err != nil {
		return nil, err
	}
	existing, err := s.owned(ctx, hdid, c.ID)
	if err != nil {
		return nil, err
	}
	cipher, err := profile.CipherFor(ctx, s.profiles, hdid)
	if err != nil {
		return nil, err
	}
	if existing.Text, err = cipher.Encrypt(c.Text); err != nil {
		return nil, err
	}
	existing.EntryTypeCode = c.EntryTypeCode
	existing.Version = c.Version
	if err := s.comments.Update(ctx, existing); err != nil {
		return nil, result.FromDB(err, "comment")
	}
	existing.Text = c.Text
	return existing, nil
}

func (s *Service) DeleteComment(ctx context.Context, hdid string, id uuid.UUID, version int) error {
	if _, err := s.owned(ctx, hdid, id); err != nil {
		return err
	}
	return result.FromDB(s.comments.Delete(ctx, id, version), "comment")
}

func (s *Service) owned(ctx context.Context, hdid string, id uuid.UUID) (*Comment, error) {
	c, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, result.FromDB(err, "comment")
	}
	if c.Hdid != hdid {
		return nil, result.Forbidden("comment %s belongs to another user", id)
	}
	return c, nil
}

func (s *Service) decryptAll(ctx context.Context, hdid string, items []*Comment) ([]*Comment, error) {
	if len(items) == 0 {
		return []*Comment{}, nil
	}
	cipher, err := profile.CipherFor(ctx, s.profiles, hdid)
	if err != nil {
		return nil, err
	}
	for _, c := range items {
		if err := decryptInto(cipher, c); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func decryptInto(cipher *crypto.Cipher, c *Comment) error {
	text, err := cipher.Decrypt(c.Text)
	if err != nil {
		return &result.Error{Kind: result.KindInvalidState, Service: result.ServiceGateway,
			Message: "comment could not be decrypted", Err: err}
	}
	c.Text = text
	return nil
}
