package comment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/healthgateway/gateway/internal/domain/profile"
	"github.com/healthgateway/gateway/internal/platform/crypto"
	"github.com/healthgateway/gateway/internal/platform/db"
	"github.com/healthgateway/gateway/internal/platform/result"
)

// -- Mocks --

type mockCommentRepo struct {
	items map[uuid.UUID]*Comment
}

func newMockCommentRepo() *mockCommentRepo {
	return &mockCommentRepo{items: make(map[uuid.UUID]*Comment)}
}

func (m *mockCommentRepo) Create(_ context.Context, c *Comment) error {
	c.ID = uuid.New()
	c.Version = 1
	c.CreatedAt = time.Now()
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *mockCommentRepo) GetByID(_ context.Context, id uuid.UUID) (*Comment, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCommentRepo) ListByEntry(_ context.Context, hdid, parent string) ([]*Comment, error) {
	var out []*Comment
	for _, c := range m.items {
		if c.Hdid == hdid && c.ParentEntryID == parent {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockCommentRepo) ListByHdid(_ context.Context, hdid string) ([]*Comment, error) {
	var out []*Comment
	for _, c := range m.items {
		if c.Hdid == hdid {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockCommentRepo) Update(_ context.Context, c *Comment) error {
	cur, ok := m.items[c.ID]
	if !ok || cur.Version != c.Version {
		return db.ErrStaleVersion
	}
	c.Version++
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *mockCommentRepo) Delete(_ context.Context, id uuid.UUID, version int) error {
	cur, ok := m.items[id]
	if !ok || cur.Version != version {
		return db.ErrStaleVersion
	}
	delete(m.items, id)
	return nil
}

type keyStore map[string]*profile.UserProfile

func (k keyStore) GetByHdid(_ context.Context, hdid string) (*profile.UserProfile, error) {
	p, ok := k[hdid]
	if !ok {
		return nil, db.ErrNotFound
	}
	return p, nil
}

func newTestKeys(t *testing.T) keyStore {
	t.Helper()
	keys := keyStore{}
	for _, hdid := range []string{"owner", "other"} {
		key, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		keys[hdid] = &profile.UserProfile{Hdid: hdid, EncryptionKey: key}
	}
	keys["nokey"] = &profile.UserProfile{Hdid: "nokey"}
	return keys
}

func newTestService(t *testing.T) (*Service, *mockCommentRepo) {
	repo := newMockCommentRepo()
	return NewService(repo, newTestKeys(t)), repo
}

func newComment(text string) *Comment {
	return &Comment{ParentEntryID: "entry-1", EntryTypeCode: EntryMedication, Text: text}
}

func TestAddComment_EncryptsText(t *testing.T) {
	svc, repo := newTestService(t)
	c, err := svc.AddComment(context.Background(), "owner", newComment("feeling better"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Text != "feeling better" {
		t.Errorf("expected plaintext returned, got %q", c.Text)
	}
	stored := repo.items[c.ID]
	if stored.Text == "feeling better" || stored.Text == "" {
		t.Errorf("expected ciphertext at rest, got %q", stored.Text)
	}

	items, err := svc.GetEntryComments(context.Background(), "owner", "entry-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Text != "feeling better" {
		t.Errorf("unexpected comments %+v", items)
	}
}

func TestAddComment_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	tests := []struct {
		name string
		c    *Comment
	}{
		{"empty text", newComment("  ")},
		{"too long", newComment(strings.Repeat("a", 1001))},
		{"bad entry type", &Comment{ParentEntryID: "e", EntryTypeCode: "Unknown", Text: "x"}},
		{"missing parent", &Comment{EntryTypeCode: EntryLaboratory, Text: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddComment(context.Background(), "owner", tt.c)
			if result.KindOf(err) != result.KindValidation {
				t.Errorf("expected Validation, got %v", err)
			}
		})
	}
	if _, err := svc.AddComment(context.Background(), "owner", newComment(strings.Repeat("é", 1000))); err != nil {
		t.Errorf("expected 1000 characters to be accepted, got %v", err)
	}
}

func TestAddComment_NoKey(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AddComment(context.Background(), "nokey", newComment("x"))
	if result.KindOf(err) != result.KindInvalidState {
		t.Errorf("expected InvalidState, got %v", err)
	}
}

func TestUpdateComment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c, _ := svc.AddComment(ctx, "owner", newComment("first"))

	if _, err := svc.UpdateComment(ctx, "other", &Comment{ID: c.ID, EntryTypeCode: EntryMedication, Text: "hijack", Version: 1}); result.KindOf(err) != result.KindForbidden {
		t.Errorf("expected Forbidden, got %v", err)
	}

	updated, err := svc.UpdateComment(ctx, "owner", &Comment{ID: c.ID, EntryTypeCode: EntryMedication, Text: "second", Version: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Version != 2 || updated.Text != "second" {
		t.Errorf("unexpected update %+v", updated)
	}

	_, err = svc.UpdateComment(ctx, "owner", &Comment{ID: c.ID, EntryTypeCode: EntryMedication, Text: "stale", Version: 1})
	if result.KindOf(err) != result.KindConflict {
		t.Errorf("expected Conflict, got %v", err)
	}
}

func TestDeleteComment(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	c, _ := svc.AddComment(ctx, "owner", newComment("bye"))

	if err := svc.DeleteComment(ctx, "other", c.ID, 1); result.KindOf(err) != result.KindForbidden {
		t.Errorf("expected Forbidden, got %v", err)
	}
	if err := svc.DeleteComment(ctx, "owner", c.ID, 7); result.KindOf(err) != result.KindConflict {
		t.Errorf("expected Conflict, got %v", err)
	}
	if err := svc.DeleteComment(ctx, "owner", c.ID, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.items) != 0 {
		t.Error("expected comment removed")
	}
	if err := svc.DeleteComment(ctx, "owner", c.ID, 1); result.KindOf(err) != result.KindNotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestGetProfileComments_Grouped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, _ = svc.AddComment(ctx, "owner", newComment("a"))
	_, _ = svc.AddComment(ctx, "owner", newComment("b"))
	_, _ = svc.AddComment(ctx, "owner", &Comment{ParentEntryID: "entry-2", EntryTypeCode: EntryImmunization, Text: "c"})

	grouped, err := svc.GetProfileComments(ctx, "owner")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grouped["entry-1"]) != 2 || len(grouped["entry-2"]) != 1 {
		t.Errorf("unexpected grouping %v", grouped)
	}
}
