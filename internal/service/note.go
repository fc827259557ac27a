package service

import (
	"context"
	"time"

	"github.com/vidinfra/docvault/internal/api/dto"
	"github.com/vidinfra/docvault/internal/types"
)

type NoteService interface {
	CreateNote(ctx context.Context, req dto.CreateNoteRequest) (*dto.NoteResponse, error)
	GetNote(ctx context.Context, id string, scope types.DeletedScope) (*dto.NoteResponse, error)
	GetNotes(ctx context.Context, filter *types.NoteFilter) (*dto.ListNotesResponse, error)
	CountNotes(ctx context.Context, filter *types.NoteFilter) (*dto.CountNotesResponse, error)
	UpdateNote(ctx context.Context, id string, req dto.UpdateNoteRequest) (*dto.NoteResponse, error)
	ReplaceNote(ctx context.Context, id string, req dto.ReplaceNoteRequest) (*dto.NoteResponse, error)
	DeleteNote(ctx context.Context, id string) (*dto.NoteResponse, error)
	RestoreNote(ctx context.Context, id string) (*dto.NoteResponse, error)
	PurgeNote(ctx context.Context, id string) error
	PurgeDeletedNotes(ctx context.Context, req dto.PurgeDeletedNotesRequest) (*dto.PurgeDeletedNotesResponse, error)
	BulkDeleteNotes(ctx context.Context, req dto.BulkNoteRequest) (*dto.BulkNoteResponse, error)
	BulkRestoreNotes(ctx context.Context, req dto.BulkNoteRequest) (*dto.BulkNoteResponse, error)
	GetNoteTags(ctx context.Context, scope types.DeletedScope) (*dto.NoteTagsResponse, error)
	GetNoteTagStats(ctx context.Context, scope types.DeletedScope) (*dto.NoteTagStatsResponse, error)
	GetNoteAudit(ctx context.Context, id string) (*dto.NoteAuditResponse, error)
}

type noteService struct {
	ServiceParams
}

func NewNoteService(params ServiceParams) NoteService {
	return &noteService{
		ServiceParams: params,
	}
}

func (s *noteService) CreateNote(ctx context.Context, req dto.CreateNoteRequest) (*dto.NoteResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n := req.ToNote()
	if err := s.NoteRepo.Create(ctx, n); err != nil {
		return nil, err
	}

	s.Logger.Infow("note created", "note_id", n.ID.Hex(), "actor", types.GetUserID(ctx))
	return dto.ToNoteResponse(n), nil
}

func (s *noteService) GetNote(ctx context.Context, id string, scope types.DeletedScope) (*dto.NoteResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	n, err := s.NoteRepo.Get(ctx, id, scope)
	if err != nil {
		return nil, err
	}
	return dto.ToNoteResponse(n), nil
}

func (s *noteService) GetNotes(ctx context.Context, filter *types.NoteFilter) (*dto.ListNotesResponse, error) {
	if filter == nil {
		filter = types.NewNoteFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	notes, err := s.NoteRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.NoteRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.NoteResponse, len(notes))
	for i, n := range notes {
		items[i] = dto.ToNoteResponse(n)
	}

	response := types.NewListResponse(items, total, filter.GetLimit(), filter.GetOffset())
	return &response, nil
}

func (s *noteService) CountNotes(ctx context.Context, filter *types.NoteFilter) (*dto.CountNotesResponse, error) {
	if filter == nil {
		filter = types.NewNoteFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	count, err := s.NoteRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.CountNotesResponse{Count: count}, nil
}

func (s *noteService) UpdateNote(ctx context.Context, id string, req dto.UpdateNoteRequest) (*dto.NoteResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n, err := s.NoteRepo.Patch(ctx, id, req.Fields())
	if err != nil {
		return nil, err
	}
	return dto.ToNoteResponse(n), nil
}

func (s *noteService) ReplaceNote(ctx context.Context, id string, req dto.ReplaceNoteRequest) (*dto.NoteResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n := req.ToNote()
	if err := s.NoteRepo.Replace(ctx, id, n); err != nil {
		return nil, err
	}
	return dto.ToNoteResponse(n), nil
}

func (s *noteService) DeleteNote(ctx context.Context, id string) (*dto.NoteResponse, error) {
	n, err := s.NoteRepo.Get(ctx, id, types.DeletedScope{IncludeDeleted: true})
	if err != nil {
		return nil, err
	}

	if err := s.NoteRepo.Delete(ctx, n); err != nil {
		return nil, err
	}

	s.Logger.Infow("note deleted", "note_id", id, "actor", types.GetUserID(ctx))
	return dto.ToNoteResponse(n), nil
}

func (s *noteService) RestoreNote(ctx context.Context, id string) (*dto.NoteResponse, error) {
	n, err := s.NoteRepo.Get(ctx, id, types.DeletedScope{IncludeDeleted: true})
	if err != nil {
		return nil, err
	}

	if err := s.NoteRepo.Restore(ctx, n); err != nil {
		return nil, err
	}

	s.Logger.Infow("note restored", "note_id", id, "actor", types.GetUserID(ctx))
	return dto.ToNoteResponse(n), nil
}

func (s *noteService) PurgeNote(ctx context.Context, id string) error {
	if err := s.NoteRepo.Purge(ctx, id); err != nil {
		return err
	}

	s.Logger.Warnw("note purged", "note_id", id, "actor", types.GetUserID(ctx))
	return nil
}

// PurgeDeletedNotes empties the trash of notes deleted before the cutoff
func (s *noteService) PurgeDeletedNotes(ctx context.Context, req dto.PurgeDeletedNotesRequest) (*dto.PurgeDeletedNotesResponse, error) {
	before, err := req.Cutoff(time.Now().UTC())
	if err != nil {
		return nil, err
	}

	purged, err := s.NoteRepo.PurgeDeleted(ctx, before)
	if err != nil {
		return nil, err
	}

	s.Logger.Warnw("purged deleted notes", "before", before, "count", purged, "actor", types.GetUserID(ctx))
	return &dto.PurgeDeletedNotesResponse{Before: before, Purged: purged}, nil
}

func (s *noteService) BulkDeleteNotes(ctx context.Context, req dto.BulkNoteRequest) (*dto.BulkNoteResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	modified, err := s.NoteRepo.BulkDelete(ctx, req.Tag)
	if err != nil {
		return nil, err
	}
	return &dto.BulkNoteResponse{Tag: req.Tag, Modified: modified}, nil
}

func (s *noteService) BulkRestoreNotes(ctx context.Context, req dto.BulkNoteRequest) (*dto.BulkNoteResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	modified, err := s.NoteRepo.BulkRestore(ctx, req.Tag)
	if err != nil {
		return nil, err
	}
	return &dto.BulkNoteResponse{Tag: req.Tag, Modified: modified}, nil
}

func (s *noteService) GetNoteTags(ctx context.Context, scope types.DeletedScope) (*dto.NoteTagsResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	tags, err := s.NoteRepo.Tags(ctx, scope)
	if err != nil {
		return nil, err
	}
	return &dto.NoteTagsResponse{Tags: tags}, nil
}

func (s *noteService) GetNoteTagStats(ctx context.Context, scope types.DeletedScope) (*dto.NoteTagStatsResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	stats, err := s.NoteRepo.TagStats(ctx, scope)
	if err != nil {
		return nil, err
	}
	return &dto.NoteTagStatsResponse{Items: stats}, nil
}

// GetNoteAudit reports the bookkeeping of a note whatever its deletion state
func (s *noteService) GetNoteAudit(ctx context.Context, id string) (*dto.NoteAuditResponse, error) {
	n, err := s.NoteRepo.Get(ctx, id, types.DeletedScope{IncludeDeleted: true})
	if err != nil {
		return nil, err
	}
	return &dto.NoteAuditResponse{ID: n.ID.Hex(), AuditInfo: n.AuditInfo()}, nil
}
