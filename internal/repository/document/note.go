package document

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/vidinfra/docvault/internal/audit"
	"github.com/vidinfra/docvault/internal/cache"
	domainNote "github.com/vidinfra/docvault/internal/domain/note"
	ierr "github.com/vidinfra/docvault/internal/errors"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/sentry"
	"github.com/vidinfra/docvault/internal/types"
	"github.com/vidinfra/docvault/internal/validator"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type noteRepository struct {
	notes  *audit.Collection[domainNote.Note, *domainNote.Note]
	cache  cache.Cache
	sentry *sentry.Service
	log    *logger.Logger
}

// NewNoteRepository wraps store in an audit collection; every call goes
// through the soft-delete and audit rules
func NewNoteRepository(
	store audit.Store,
	cache cache.Cache,
	sentry *sentry.Service,
	log *logger.Logger,
	opts ...audit.CollectionOption,
) domainNote.Repository {
	opts = append([]audit.CollectionOption{audit.WithLogger(log)}, opts...)
	return &noteRepository{
		notes:  audit.NewCollection[domainNote.Note](store, opts...),
		cache:  cache,
		sentry: sentry,
		log:    log,
	}
}

func (r *noteRepository) Create(ctx context.Context, n *domainNote.Note) error {
	span, ctx := r.sentry.StartDBSpan(ctx, "note.create", nil)
	defer sentry.FinishSpan(span)

	r.log.Debugw("creating note", "title", n.Title, "tags", n.Tags)

	if err := r.notes.Create(ctx, n); err != nil {
		return err
	}
	r.SetCache(ctx, n)
	r.cache.DeleteByPrefix(ctx, cache.PrefixNoteTags)
	return nil
}

func (r *noteRepository) Get(ctx context.Context, id string, scope types.DeletedScope) (*domainNote.Note, error) {
	oid, err := validator.ValidateObjectID(id)
	if err != nil {
		return nil, err
	}

	live := !scope.IncludeDeleted && !scope.OnlyDeleted
	if live {
		if cached := r.GetCache(ctx, id); cached != nil {
			return cached, nil
		}
	}

	span, ctx := r.sentry.StartDBSpan(ctx, "note.get", map[string]interface{}{"note_id": id})
	defer sentry.FinishSpan(span)

	n, err := r.notes.FindByID(ctx, oid, scopeOption(scope))
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, notFound(id, err)
		}
		return nil, err
	}

	if live {
		r.SetCache(ctx, n)
	}
	return n, nil
}

func (r *noteRepository) List(ctx context.Context, filter *types.NoteFilter) ([]*domainNote.Note, error) {
	if filter == nil {
		filter = types.NewNoteFilter()
	}

	span, ctx := r.sentry.StartDBSpan(ctx, "note.list", map[string]interface{}{"tag": filter.Tag})
	defer sentry.FinishSpan(span)

	q, err := noteQuery(filter)
	if err != nil {
		return nil, err
	}

	order := -1
	if filter.GetOrder() == types.OrderAsc {
		order = 1
	}

	return r.notes.Find(ctx, q,
		scopeOption(filter.DeletedScope),
		audit.WithSort(bson.D{{Key: filter.GetSort(), Value: order}, {Key: audit.FieldID, Value: order}}),
		audit.WithLimit(int64(filter.GetLimit())),
		audit.WithSkip(int64(filter.GetOffset())),
	)
}

func (r *noteRepository) Count(ctx context.Context, filter *types.NoteFilter) (int64, error) {
	if filter == nil {
		filter = types.NewNoteFilter()
	}

	q, err := noteQuery(filter)
	if err != nil {
		return 0, err
	}
	if len(q) == 0 {
		return r.notes.EstimatedDocumentCount(ctx, scopeOption(filter.DeletedScope))
	}
	return r.notes.CountDocuments(ctx, q, scopeOption(filter.DeletedScope))
}

func (r *noteRepository) Update(ctx context.Context, n *domainNote.Note) error {
	span, ctx := r.sentry.StartDBSpan(ctx, "note.update", map[string]interface{}{"note_id": n.ID.Hex()})
	defer sentry.FinishSpan(span)

	r.log.Debugw("updating note", "note_id", n.ID.Hex(), "version", n.Version)

	defer r.invalidate(ctx, n.ID.Hex())
	return r.notes.Save(ctx, n)
}

func (r *noteRepository) Patch(ctx context.Context, id string, fields map[string]any) (*domainNote.Note, error) {
	oid, err := validator.ValidateObjectID(id)
	if err != nil {
		return nil, err
	}

	span, ctx := r.sentry.StartDBSpan(ctx, "note.patch", map[string]interface{}{"note_id": id})
	defer sentry.FinishSpan(span)

	defer r.invalidate(ctx, id)
	n, err := r.notes.FindOneAndUpdate(ctx,
		bson.D{{Key: audit.FieldID, Value: oid}},
		bson.M{"$set": fields},
		audit.ReturnAfter(),
	)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, notFound(id, err)
		}
		return nil, err
	}
	return n, nil
}

func (r *noteRepository) Replace(ctx context.Context, id string, replacement *domainNote.Note) error {
	oid, err := validator.ValidateObjectID(id)
	if err != nil {
		return err
	}

	span, ctx := r.sentry.StartDBSpan(ctx, "note.replace", map[string]interface{}{"note_id": id})
	defer sentry.FinishSpan(span)

	defer r.invalidate(ctx, id)
	res, err := r.notes.ReplaceOne(ctx,
		bson.D{{Key: audit.FieldID, Value: oid}},
		bson.D{
			{Key: "title", Value: replacement.Title},
			{Key: "body", Value: replacement.Body},
			{Key: "tags", Value: lo.Ternary(replacement.Tags == nil, []string{}, replacement.Tags)},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return notFound(id, nil)
	}

	stored, err := r.notes.FindByID(ctx, oid)
	if err != nil {
		return err
	}
	*replacement = *stored
	return nil
}

func (r *noteRepository) Delete(ctx context.Context, n *domainNote.Note) error {
	span, ctx := r.sentry.StartDBSpan(ctx, "note.delete", map[string]interface{}{"note_id": n.ID.Hex()})
	defer sentry.FinishSpan(span)

	r.log.Debugw("soft deleting note", "note_id", n.ID.Hex())

	defer r.invalidate(ctx, n.ID.Hex())
	return r.notes.SoftDelete(ctx, n)
}

func (r *noteRepository) Restore(ctx context.Context, n *domainNote.Note) error {
	span, ctx := r.sentry.StartDBSpan(ctx, "note.restore", map[string]interface{}{"note_id": n.ID.Hex()})
	defer sentry.FinishSpan(span)

	r.log.Debugw("restoring note", "note_id", n.ID.Hex())

	defer r.invalidate(ctx, n.ID.Hex())
	return r.notes.Restore(ctx, n)
}

func (r *noteRepository) Purge(ctx context.Context, id string) error {
	oid, err := validator.ValidateObjectID(id)
	if err != nil {
		return err
	}

	span, ctx := r.sentry.StartDBSpan(ctx, "note.purge", map[string]interface{}{"note_id": id})
	defer sentry.FinishSpan(span)

	defer r.invalidate(ctx, id)
	res, err := r.notes.PurgeOne(ctx, bson.D{{Key: audit.FieldID, Value: oid}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return notFound(id, nil)
	}
	return nil
}

func (r *noteRepository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	span, ctx := r.sentry.StartDBSpan(ctx, "note.purge_deleted", map[string]interface{}{"before": before})
	defer sentry.FinishSpan(span)

	defer r.invalidateAll(ctx)
	// live notes hold a null deleted_at, which never compares below a date
	res, err := r.notes.PurgeMany(ctx, bson.D{{Key: audit.FieldDeletedAt, Value: bson.D{{Key: "$lt", Value: before}}}})
	return res.DeletedCount, err
}

func (r *noteRepository) BulkDelete(ctx context.Context, tag string) (int64, error) {
	span, ctx := r.sentry.StartDBSpan(ctx, "note.bulk_delete", map[string]interface{}{"tag": tag})
	defer sentry.FinishSpan(span)

	defer r.invalidateAll(ctx)
	res, err := r.notes.BulkSoftDelete(ctx, bson.D{{Key: "tags", Value: tag}})
	return res.ModifiedCount, err
}

func (r *noteRepository) BulkRestore(ctx context.Context, tag string) (int64, error) {
	span, ctx := r.sentry.StartDBSpan(ctx, "note.bulk_restore", map[string]interface{}{"tag": tag})
	defer sentry.FinishSpan(span)

	defer r.invalidateAll(ctx)
	res, err := r.notes.BulkRestore(ctx, bson.D{{Key: "tags", Value: tag}})
	return res.ModifiedCount, err
}

func (r *noteRepository) Tags(ctx context.Context, scope types.DeletedScope) ([]string, error) {
	key := cache.GenerateKey(cache.PrefixNoteTags, scopeName(scope))
	if tags, ok := cache.GetObject[[]string](ctx, r.cache, key); ok {
		return *tags, nil
	}

	values, err := r.notes.Distinct(ctx, "tags", nil, scopeOption(scope))
	if err != nil {
		return nil, err
	}

	tags := lo.FilterMap(values, func(v any, _ int) (string, bool) {
		s, ok := v.(string)
		return s, ok
	})
	sort.Strings(tags)

	cache.SetObject(ctx, r.cache, key, tags, 0)
	return tags, nil
}

func (r *noteRepository) TagStats(ctx context.Context, scope types.DeletedScope) ([]*domainNote.TagCount, error) {
	span, ctx := r.sentry.StartDBSpan(ctx, "note.tag_stats", nil)
	defer sentry.FinishSpan(span)

	rows, err := r.notes.Aggregate(ctx, bson.A{
		bson.D{{Key: "$unwind", Value: "$tags"}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tags"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}, scopeOption(scope))
	if err != nil {
		return nil, err
	}

	stats := make([]*domainNote.TagCount, 0, len(rows))
	for _, row := range rows {
		var tc domainNote.TagCount
		if err := bson.Unmarshal(row, &tc); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Unreadable tag statistics").
				Mark(ierr.ErrDatabase)
		}
		stats = append(stats, &tc)
	}
	return stats, nil
}

// SetCache keeps live notes only; deleted ones are never served from cache
func (r *noteRepository) SetCache(ctx context.Context, n *domainNote.Note) {
	if n.IsDeleted() {
		return
	}
	cache.SetObject(ctx, r.cache, cache.GenerateKey(cache.PrefixNote, n.ID.Hex()), n, 0)
}

func (r *noteRepository) GetCache(ctx context.Context, id string) *domainNote.Note {
	n, ok := cache.GetObject[domainNote.Note](ctx, r.cache, cache.GenerateKey(cache.PrefixNote, id))
	if !ok {
		return nil
	}
	return n
}

func (r *noteRepository) invalidate(ctx context.Context, id string) {
	r.cache.Delete(ctx, cache.GenerateKey(cache.PrefixNote, id))
	r.cache.DeleteByPrefix(ctx, cache.PrefixNoteTags)
}

func (r *noteRepository) invalidateAll(ctx context.Context) {
	r.cache.DeleteByPrefix(ctx, cache.PrefixNote)
	r.cache.DeleteByPrefix(ctx, cache.PrefixNoteTags)
}

func noteQuery(filter *types.NoteFilter) (bson.D, error) {
	q := bson.D{}
	if filter.Tag != "" {
		q = append(q, bson.E{Key: "tags", Value: filter.Tag})
	}
	if len(filter.NoteIDs) > 0 {
		ids := make(bson.A, 0, len(filter.NoteIDs))
		for _, id := range filter.NoteIDs {
			oid, err := validator.ValidateObjectID(id)
			if err != nil {
				return nil, err
			}
			ids = append(ids, oid)
		}
		q = append(q, bson.E{Key: audit.FieldID, Value: bson.D{{Key: "$in", Value: ids}}})
	}
	return q, nil
}

func scopeOption(scope types.DeletedScope) audit.Option {
	return audit.WithScope(audit.ScopeFrom(scope))
}

func scopeName(scope types.DeletedScope) string {
	switch {
	case scope.OnlyDeleted:
		return "deleted"
	case scope.IncludeDeleted:
		return "all"
	default:
		return "live"
	}
}

func notFound(id string, err error) error {
	b := ierr.NewErrorf("note %s not found", id)
	if err != nil {
		b = ierr.WithError(err)
	}
	return b.WithHintf("Note %s not found", id).
		WithReportableDetails(map[string]any{"note_id": id}).
		Mark(ierr.ErrNotFound)
}
