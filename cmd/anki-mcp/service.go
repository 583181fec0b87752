package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tbessel/anki-mcp/internal/ankiconnect"
	"github.com/tbessel/anki-mcp/internal/pdf"
)

// AnkiService bridges the MCP tool handlers to the AnkiConnect client and the
// PDF extractor. It is stateless between calls; every invocation is an
// independent request/response exchange.
type AnkiService struct {
	Anki   *ankiconnect.Client
	PDF    *pdf.Extractor
	Logger *zap.Logger
}

// NewAnkiService creates an AnkiService. A nil logger disables logging.
func NewAnkiService(client *ankiconnect.Client, extractor *pdf.Extractor, logger *zap.Logger) *AnkiService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnkiService{
		Anki:   client,
		PDF:    extractor,
		Logger: logger,
	}
}

// Ping probes the backend with a version query. It never returns an error:
// an unreachable backend is reported in the response so the caller sees the
// operator guidance instead of a bare failure.
func (s *AnkiService) Ping(ctx context.Context) PingResponse {
	v, err := s.Anki.Version(ctx)
	if err != nil {
		s.Logger.Warn("ping failed", zap.Error(err))
		return PingResponse{Status: "error", Message: err.Error()}
	}
	return PingResponse{Status: "ok", Version: v}
}

// DeckNames lists all decks.
func (s *AnkiService) DeckNames(ctx context.Context) (DeckNamesResponse, error) {
	decks, err := s.Anki.DeckNames(ctx)
	if err != nil {
		return DeckNamesResponse{}, err
	}
	if decks == nil {
		decks = []string{}
	}
	return DeckNamesResponse{Decks: decks, Count: len(decks)}, nil
}

// CreateDeck creates a deck, with "::" denoting nesting.
func (s *AnkiService) CreateDeck(ctx context.Context, name string) (CreateDeckResponse, error) {
	id, err := s.Anki.CreateDeck(ctx, name)
	if err != nil {
		return CreateDeckResponse{}, err
	}
	s.Logger.Debug("deck created", zap.String("deck", name), zap.Int64("deck_id", id))
	return CreateDeckResponse{DeckID: id}, nil
}

// DeleteDeck deletes one deck. What happens to surviving cards when
// deleteCards is false is backend policy; no local logic is applied.
func (s *AnkiService) DeleteDeck(ctx context.Context, name string, deleteCards bool) (DeleteDeckResponse, error) {
	if err := s.Anki.DeleteDecks(ctx, []string{name}, deleteCards); err != nil {
		return DeleteDeckResponse{}, err
	}
	return DeleteDeckResponse{Success: true, Message: fmt.Sprintf("deck %q deleted", name)}, nil
}

// ModelNames lists all note types.
func (s *AnkiService) ModelNames(ctx context.Context) (ModelNamesResponse, error) {
	models, err := s.Anki.ModelNames(ctx)
	if err != nil {
		return ModelNamesResponse{}, err
	}
	if models == nil {
		models = []string{}
	}
	return ModelNamesResponse{Models: models, Count: len(models)}, nil
}

// ModelFieldNames lists the fields of one note type.
func (s *AnkiService) ModelFieldNames(ctx context.Context, model string) (ModelFieldNamesResponse, error) {
	fields, err := s.Anki.ModelFieldNames(ctx, model)
	if err != nil {
		return ModelFieldNamesResponse{}, err
	}
	if fields == nil {
		fields = []string{}
	}
	return ModelFieldNamesResponse{ModelName: model, Fields: fields, Count: len(fields)}, nil
}

// AddNote creates a single note.
func (s *AnkiService) AddNote(ctx context.Context, n ankiconnect.Note) (AddNoteResponse, error) {
	id, err := s.Anki.AddNote(ctx, n)
	if err != nil {
		return AddNoteResponse{}, err
	}
	return AddNoteResponse{NoteID: id}, nil
}

// AddNotes creates a batch of notes in a single backend request. Per-item
// failures, local validation and backend rejections alike, are aggregated
// positionally and never abort sibling items. Only a whole-batch failure
// (connection, timeout) is returned as an error.
func (s *AnkiService) AddNotes(ctx context.Context, items []noteItem) (AddNotesResponse, error) {
	result := AddNotesResponse{
		NoteIDs: make([]*int64, len(items)),
		Errors:  make([]*string, len(items)),
	}

	var valid []ankiconnect.Note
	var positions []int
	for i, it := range items {
		if it.invalid != "" {
			reason := it.invalid
			result.Errors[i] = &reason
			continue
		}
		valid = append(valid, it.note)
		positions = append(positions, i)
	}

	if len(valid) > 0 {
		// The pre-check carries per-note rejection reasons that addNotes
		// itself does not report. Losing it only degrades diagnostics.
		checks, err := s.Anki.CanAddNotes(ctx, valid)
		if err != nil {
			s.Logger.Warn("note pre-check unavailable, reasons will be generic", zap.Error(err))
			checks = nil
		}

		ids, err := s.Anki.AddNotes(ctx, valid)
		if err != nil {
			return AddNotesResponse{}, err
		}
		if len(ids) != len(valid) {
			return AddNotesResponse{}, fmt.Errorf("anki-connect returned %d results for %d notes", len(ids), len(valid))
		}

		for j, id := range ids {
			i := positions[j]
			if id != nil {
				result.NoteIDs[i] = id
				continue
			}
			reason := "note could not be added"
			if j < len(checks) && checks[j].Error != "" {
				reason = checks[j].Error
			}
			result.Errors[i] = &reason
		}
	}

	for _, id := range result.NoteIDs {
		if id != nil {
			result.SuccessCount++
		}
	}
	result.FailureCount = len(items) - result.SuccessCount

	s.Logger.Debug("add_notes batch finished",
		zap.Int("total", len(items)),
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", result.FailureCount))
	return result, nil
}

// FindNotes forwards an opaque Anki search query.
func (s *AnkiService) FindNotes(ctx context.Context, query string) (FindNotesResponse, error) {
	ids, err := s.Anki.FindNotes(ctx, query)
	if err != nil {
		return FindNotesResponse{}, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return FindNotesResponse{Query: query, NoteIDs: ids, Count: len(ids)}, nil
}

// NotesInfo returns simplified detail for each id in input order. Unknown ids
// come back from the backend as empty placeholder objects and are dropped.
func (s *AnkiService) NotesInfo(ctx context.Context, ids []int64) (NotesInfoResponse, error) {
	infos, err := s.Anki.NotesInfo(ctx, ids)
	if err != nil {
		return NotesInfoResponse{}, err
	}

	notes := make([]NoteDetail, 0, len(infos))
	for _, info := range infos {
		if info.NoteID == 0 {
			continue
		}
		fields := make(map[string]string, len(info.Fields))
		for name, f := range info.Fields {
			fields[name] = f.Value
		}
		tags := info.Tags
		if tags == nil {
			tags = []string{}
		}
		notes = append(notes, NoteDetail{
			NoteID:    info.NoteID,
			ModelName: info.ModelName,
			Tags:      tags,
			Fields:    fields,
		})
	}
	return NotesInfoResponse{Notes: notes, Count: len(notes)}, nil
}

// UpdateNotes applies partial updates item by item. Only the supplied
// attributes change; scheduling state is never touched (backend contract).
// Per-item failures are collected positionally without aborting siblings.
func (s *AnkiService) UpdateNotes(ctx context.Context, items []noteUpdateItem) (UpdateNotesResponse, error) {
	result := UpdateNotesResponse{Errors: make([]*string, len(items))}

	for i, it := range items {
		if it.invalid != "" {
			reason := it.invalid
			result.Errors[i] = &reason
			continue
		}
		if err := s.updateOne(ctx, it); err != nil {
			reason := err.Error()
			result.Errors[i] = &reason
			continue
		}
		result.UpdatedCount++
	}
	result.FailureCount = len(items) - result.UpdatedCount
	return result, nil
}

func (s *AnkiService) updateOne(ctx context.Context, it noteUpdateItem) error {
	if len(it.fields) == 0 && !it.hasTags && it.deckName == "" {
		return fmt.Errorf("note %d: no fields, tags, or deck_name supplied", it.id)
	}

	if len(it.fields) > 0 || it.hasTags {
		update := ankiconnect.NoteUpdate{ID: it.id, Fields: it.fields}
		if it.hasTags {
			tags := it.tags
			if tags == nil {
				tags = []string{}
			}
			update.Tags = &tags
		}
		if err := s.Anki.UpdateNote(ctx, update); err != nil {
			return err
		}
	}

	if it.deckName != "" {
		// Moving a note means moving its cards; notesInfo tells us which
		// cards belong to it.
		infos, err := s.Anki.NotesInfo(ctx, []int64{it.id})
		if err != nil {
			return err
		}
		if len(infos) == 0 || infos[0].NoteID == 0 {
			return fmt.Errorf("note %d not found", it.id)
		}
		if err := s.Anki.ChangeDeck(ctx, infos[0].Cards, it.deckName); err != nil {
			return err
		}
	}
	return nil
}

// DeleteNotes deletes the given notes. The backend ignores unknown ids, so
// existence is checked first to report how many notes were actually removed.
func (s *AnkiService) DeleteNotes(ctx context.Context, ids []int64) (DeleteNotesResponse, error) {
	infos, err := s.Anki.NotesInfo(ctx, ids)
	if err != nil {
		return DeleteNotesResponse{}, err
	}
	existing := 0
	for _, info := range infos {
		if info.NoteID != 0 {
			existing++
		}
	}

	if err := s.Anki.DeleteNotes(ctx, ids); err != nil {
		return DeleteNotesResponse{}, err
	}
	return DeleteNotesResponse{DeletedCount: existing}, nil
}

// PDFTableOfContents returns the flattened outline of a document.
func (s *AnkiService) PDFTableOfContents(path string) (TableOfContentsResponse, error) {
	entries, err := s.PDF.TableOfContents(path)
	if err != nil {
		return TableOfContentsResponse{}, err
	}
	if entries == nil {
		entries = []pdf.OutlineEntry{}
	}
	return TableOfContentsResponse{Entries: entries, Count: len(entries)}, nil
}

// PDFPages returns per-page text for an inclusive page range.
func (s *AnkiService) PDFPages(path string, start, end int) (ReadPagesResponse, error) {
	pages, err := s.PDF.ReadPages(path, start, end)
	if err != nil {
		return ReadPagesResponse{}, err
	}
	return ReadPagesResponse{Pages: pages, Count: len(pages)}, nil
}
