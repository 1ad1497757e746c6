package note

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/healthgateway/gateway/internal/domain/profile"
	"github.com/healthgateway/gateway/internal/platform/crypto"
	"github.com/healthgateway/gateway/internal/platform/result"
	"github.com/healthgateway/gateway/pkg/pagination"
)

type Service struct {
	notes    Repository
	profiles profile.KeyReader
}

func NewService(notes Repository, profiles profile.KeyReader) *Service {
	return &Service{notes: notes, profiles: profiles}
}

func validateNote(n *Note) error {
	fields := map[string]string{}
	if strings.TrimSpace(n.Title) == "" {
		fields["title"] = "is required"
	} else if utf8.RuneCountInString(n.Title) > maxTitleLength {
		fields["title"] = "must be at most 100 characters"
	}
	if utf8.RuneCountInString(n.Text) > maxTextLength {
		fields["text"] = "must be at most 1000 characters"
	}
	if n.JournalDate.IsZero() {
		fields["journal_date"] = "is required"
	}
	if len(fields) > 0 {
		return result.FieldErrors(fields)
	}
	return nil
}

func (s *Service) CreateNote(ctx context.Context, hdid string, n *Note) (*Note, error) {
	if err := validateNote(n); err != nil {
		return nil, err
	}
	cipher, err := profile.CipherFor(ctx, s.profiles, hdid)
	if err != nil {
		return nil, err
	}
	stored := *n
	stored.Hdid = hdid
	if err := encrypt(cipher, &stored); err != nil {
		return nil, err
	}
	if err := s.notes.Create(ctx, &stored); err != nil {
		return nil, result.FromDB(err, "note")
	}
	stored.Title, stored.Text = n.Title, n.Text
	return &stored, nil
}

func (s *Service) GetNotes(ctx context.Context, hdid string, page pagination.Params) ([]*Note, int, error) {
	items, total, err := s.notes.List(ctx, hdid, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, result.FromDB(err, "notes")
	}
	if len(items) == 0 {
		return []*Note{}, total, nil
	}
	cipher, err := profile.CipherFor(ctx, s.profiles, hdid)
	if err != nil {
		return nil, 0, err
	}
	for _, n := range items {
		if err := decrypt(cipher, n); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (s *Service) UpdateNote(ctx context.Context, hdid string, n *Note) (*Note, error) {
	if err := validateNote(n); err != nil {
		return nil, err
	}
	existing, err := s.owned(ctx, hdid, n.ID)
	if err != nil {
		return nil, err
	}
	cipher, err := profile.CipherFor(ctx, s.profiles, hdid)
	if err != nil {
		return nil, err
	}
	existing.Title, existing.Text = n.Title, n.Text
	existing.JournalDate = n.JournalDate
	existing.Version = n.Version
	if err := encrypt(cipher, existing); err != nil {
		return nil, err
	}
	if err := s.notes.Update(ctx, existing); err != nil {
		return nil, result.FromDB(err, "note")
	}
	existing.Title, existing.Text = n.Title, n.Text
	return existing, nil
}

func (s *Service) DeleteNote(ctx context.Context, hdid string, id uuid.UUID, version int) error {
	if _, err := s.owned(ctx, hdid, id); err != nil {
		return err
	}
	return result.FromDB(s.notes.Delete(ctx, id, version), "note")
}

func (s *Service) owned(ctx context.Context, hdid string, id uuid.UUID) (*Note, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, result.FromDB(err, "note")
	}
	if n.Hdid != hdid {
		return nil, result.Forbidden("note %s belongs to another user", id)
	}
	return n, nil
}

func encrypt(c *crypto.Cipher, n *Note) (err error) {
	if n.Title, err = c.Encrypt(n.Title); err != nil {
		return err
	}
	n.Text, err = c.Encrypt(n.Text)
	return err
}

func decrypt(c *crypto.Cipher, n *Note) (err error) {
	if n.Title, err = c.Decrypt(n.Title); err == nil {
		n.Text, err = c.Decrypt(n.Text)
	}
	if err != nil {
		return &result.Error{Kind: result.KindInvalidState, Service: result.ServiceGateway,
			Message: "note could not be decrypted", Err: err}
	}
	return nil
}
