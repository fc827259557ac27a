package document

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"github.com/vidinfra/docvault/internal/audit"
	"github.com/vidinfra/docvault/internal/cache"
	"github.com/vidinfra/docvault/internal/config"
	domainNote "github.com/vidinfra/docvault/internal/domain/note"
	ierr "github.com/vidinfra/docvault/internal/errors"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/memstore"
	"github.com/vidinfra/docvault/internal/sentry"
	"github.com/vidinfra/docvault/internal/types"
	"github.com/vidinfra/docvault/internal/validator"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type NoteRepositorySuite struct {
	suite.Suite
	store *memstore.Collection
	cache cache.Cache
	repo  domainNote.Repository
}

func TestNoteRepository(t *testing.T) {
	suite.Run(t, new(NoteRepositorySuite))
}

func (s *NoteRepositorySuite) SetupSuite() {
	validator.NewValidator()
}

func (s *NoteRepositorySuite) SetupTest() {
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = true
	log := logger.NewNopLogger()

	s.store = memstore.NewCollection(domainNote.CollectionName)
	s.cache = cache.NewInMemoryCache(cfg.Cache)
	s.repo = NewNoteRepository(s.store, s.cache, sentry.NewSentryService(cfg, log), log)
}

func testContext() context.Context {
	return types.SetUserID(context.Background(), types.DefaultUserID)
}

func (s *NoteRepositorySuite) create(title string, tags ...string) *domainNote.Note {
	n := &domainNote.Note{Title: title, Body: title + " body", Tags: tags}
	s.Require().NoError(s.repo.Create(testContext(), n))
	return n
}

func (s *NoteRepositorySuite) TestGetServesLiveNotesFromCache() {
	ctx := testContext()
	n := s.create("cached", "work")

	_, ok := s.cache.Get(ctx, cache.GenerateKey(cache.PrefixNote, n.ID.Hex()))
	s.True(ok)

	got, err := s.repo.Get(ctx, n.ID.Hex(), types.DeletedScope{})
	s.Require().NoError(err)
	s.Equal(n.ID, got.ID)
	s.Equal(int64(1), got.Version)
}

func (s *NoteRepositorySuite) TestDeletedNoteIsNotServedFromCache() {
	ctx := testContext()
	n := s.create("gone", "work")

	s.Require().NoError(s.repo.Delete(ctx, n))
	s.Equal(int64(2), n.Version)

	_, err := s.repo.Get(ctx, n.ID.Hex(), types.DeletedScope{})
	s.True(ierr.IsNotFound(err))

	got, err := s.repo.Get(ctx, n.ID.Hex(), types.DeletedScope{IncludeDeleted: true})
	s.Require().NoError(err)
	s.True(got.IsDeleted())
	s.Equal(types.DefaultUserID, lo.FromPtr(got.DeletedBy))
}

func (s *NoteRepositorySuite) TestGetRejectsMalformedID() {
	_, err := s.repo.Get(testContext(), "not-an-id", types.DeletedScope{})
	s.True(ierr.IsValidation(err))
}

func (s *NoteRepositorySuite) TestListAndCountHonorScope() {
	ctx := testContext()
	a := s.create("a", "work")
	s.create("b", "home")
	c := s.create("c", "work")
	s.Require().NoError(s.repo.Delete(ctx, c))

	filter := types.NewNoteFilter()
	notes, err := s.repo.List(ctx, filter)
	s.Require().NoError(err)
	s.Len(notes, 2)

	count, err := s.repo.Count(ctx, filter)
	s.Require().NoError(err)
	s.Equal(int64(2), count)

	filter.Tag = "work"
	notes, err = s.repo.List(ctx, filter)
	s.Require().NoError(err)
	s.Require().Len(notes, 1)
	s.Equal(a.ID, notes[0].ID)

	filter.IncludeDeleted = true
	count, err = s.repo.Count(ctx, filter)
	s.Require().NoError(err)
	s.Equal(int64(2), count)

	filter = types.NewNoteFilter()
	filter.OnlyDeleted = true
	notes, err = s.repo.List(ctx, filter)
	s.Require().NoError(err)
	s.Require().Len(notes, 1)
	s.Equal(c.ID, notes[0].ID)

	count, err = s.repo.Count(ctx, &types.NoteFilter{DeletedScope: types.DeletedScope{IncludeDeleted: true}})
	s.Require().NoError(err)
	s.Equal(int64(3), count)
}

func (s *NoteRepositorySuite) TestListSortsAndPages() {
	ctx := testContext()
	s.create("first")
	s.create("second")
	s.create("third")

	filter := types.NewNoteFilter()
	filter.Sort = lo.ToPtr("title")
	filter.Order = lo.ToPtr(types.OrderAsc)
	filter.Limit = lo.ToPtr(2)
	filter.Offset = lo.ToPtr(1)

	notes, err := s.repo.List(ctx, filter)
	s.Require().NoError(err)
	s.Require().Len(notes, 2)
	s.Equal("second", notes[0].Title)
	s.Equal("third", notes[1].Title)
}

func (s *NoteRepositorySuite) TestPatch() {
	ctx := testContext()
	n := s.create("draft", "work")

	got, err := s.repo.Patch(ctx, n.ID.Hex(), map[string]any{"title": "final"})
	s.Require().NoError(err)
	s.Equal("final", got.Title)
	s.Equal(int64(2), got.Version)

	cached, err := s.repo.Get(ctx, n.ID.Hex(), types.DeletedScope{})
	s.Require().NoError(err)
	s.Equal("final", cached.Title)

	_, err = s.repo.Patch(ctx, n.ID.Hex(), map[string]any{"deleted_at": nil})
	s.True(ierr.IsForbiddenFieldMutation(err))

	_, err = s.repo.Patch(ctx, bson.NewObjectID().Hex(), map[string]any{"title": "x"})
	s.True(ierr.IsNotFound(err))
}

func (s *NoteRepositorySuite) TestReplace() {
	ctx := testContext()
	n := s.create("old", "work")

	replacement := &domainNote.Note{Title: "new", Body: "rewritten"}
	s.Require().NoError(s.repo.Replace(ctx, n.ID.Hex(), replacement))
	s.Equal(n.ID, replacement.ID)
	s.Equal("new", replacement.Title)
	s.Empty(replacement.Tags)
	s.Equal(int64(2), replacement.Version)
	s.True(n.CreatedAt.Equal(replacement.CreatedAt))

	s.Require().NoError(s.repo.Delete(ctx, replacement))
	err := s.repo.Replace(ctx, n.ID.Hex(), &domainNote.Note{Title: "again"})
	s.True(ierr.IsNotFound(err))
}

func (s *NoteRepositorySuite) TestPurge() {
	ctx := testContext()
	n := s.create("temp")
	s.Require().NoError(s.repo.Delete(ctx, n))

	s.Require().NoError(s.repo.Purge(ctx, n.ID.Hex()))
	s.Equal(0, s.store.Len())

	err := s.repo.Purge(ctx, n.ID.Hex())
	s.True(ierr.IsNotFound(err))
}

func (s *NoteRepositorySuite) TestPurgeDeletedHonorsCutoff() {
	ctx := testContext()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	log := logger.NewNopLogger()
	repo := NewNoteRepository(s.store, s.cache, sentry.NewSentryService(config.GetDefaultConfig(), log), log,
		audit.WithClock(func() time.Time { return now }))

	old := &domainNote.Note{Title: "old"}
	recent := &domainNote.Note{Title: "recent"}
	live := &domainNote.Note{Title: "live"}
	for _, n := range []*domainNote.Note{old, recent, live} {
		s.Require().NoError(repo.Create(ctx, n))
	}

	s.Require().NoError(repo.Delete(ctx, old))
	now = now.Add(48 * time.Hour)
	s.Require().NoError(repo.Delete(ctx, recent))

	purged, err := repo.PurgeDeleted(ctx, now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), purged)

	_, err = repo.Get(ctx, old.ID.Hex(), types.DeletedScope{IncludeDeleted: true})
	s.True(ierr.IsNotFound(err))

	_, err = repo.Get(ctx, recent.ID.Hex(), types.DeletedScope{OnlyDeleted: true})
	s.NoError(err)

	_, err = repo.Get(ctx, live.ID.Hex(), types.DeletedScope{})
	s.NoError(err)
}

func (s *NoteRepositorySuite) TestBulkDeleteAndRestore() {
	ctx := testContext()
	a := s.create("a", "work")
	s.create("b", "work")
	s.create("c", "home")
	s.Require().NoError(s.repo.Delete(ctx, a))

	n, err := s.repo.BulkDelete(ctx, "work")
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	n, err = s.repo.BulkRestore(ctx, "work")
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	count, err := s.repo.Count(ctx, &types.NoteFilter{Tag: "work"})
	s.Require().NoError(err)
	s.Equal(int64(2), count)
}

func (s *NoteRepositorySuite) TestTagsAreCachedUntilNextWrite() {
	ctx := testContext()
	s.create("a", "work", "urgent")
	s.create("b", "home")

	tags, err := s.repo.Tags(ctx, types.DeletedScope{})
	s.Require().NoError(err)
	s.Equal([]string{"home", "urgent", "work"}, tags)

	_, ok := s.cache.Get(ctx, cache.GenerateKey(cache.PrefixNoteTags, "live"))
	s.True(ok)

	s.create("c", "later")
	tags, err = s.repo.Tags(ctx, types.DeletedScope{})
	s.Require().NoError(err)
	s.Equal([]string{"home", "later", "urgent", "work"}, tags)
}

func (s *NoteRepositorySuite) TestTagStats() {
	ctx := testContext()
	s.create("a", "work", "urgent")
	s.create("b", "work")
	d := s.create("c", "work", "home")
	s.Require().NoError(s.repo.Delete(ctx, d))

	stats, err := s.repo.TagStats(ctx, types.DeletedScope{})
	s.Require().NoError(err)
	s.Require().Len(stats, 2)
	s.Equal(domainNote.TagCount{Tag: "work", Count: 2}, *stats[0])
	s.Equal(domainNote.TagCount{Tag: "urgent", Count: 1}, *stats[1])

	stats, err = s.repo.TagStats(ctx, types.DeletedScope{OnlyDeleted: true})
	s.Require().NoError(err)
	s.Require().Len(stats, 2)
	s.Equal("home", stats[0].Tag)
	s.Equal("work", stats[1].Tag)
}
