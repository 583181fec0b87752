// Package main implements the AnkiConnect MCP server.
package main

import (
	"github.com/tbessel/anki-mcp/internal/ankiconnect"
	"github.com/tbessel/anki-mcp/internal/pdf"
)

// PingResponse is the response structure for ping. Status is "ok" when the
// backend answered its version query, "error" otherwise.
type PingResponse struct {
	Status  string `json:"status"`
	Version int    `json:"version,omitempty"`
	Message string `json:"message,omitempty"`
}

// DeckNamesResponse is the response structure for get_deck_names.
type DeckNamesResponse struct {
	Decks []string `json:"decks"`
	Count int      `json:"count"`
}

// CreateDeckResponse is the response structure for create_deck.
type CreateDeckResponse struct {
	DeckID int64 `json:"deck_id"`
}

// DeleteDeckResponse is the response structure for delete_deck.
type DeleteDeckResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ModelNamesResponse is the response structure for get_model_names.
type ModelNamesResponse struct {
	Models []string `json:"models"`
	Count  int      `json:"count"`
}

// ModelFieldNamesResponse is the response structure for get_model_field_names.
type ModelFieldNamesResponse struct {
	ModelName string   `json:"model_name"`
	Fields    []string `json:"fields"`
	Count     int      `json:"count"`
}

// AddNoteResponse is the response structure for add_note.
type AddNoteResponse struct {
	NoteID int64 `json:"note_id"`
}

// AddNotesResponse is the response structure for add_notes. All three slices
// are positional: entry i describes input note i. NoteIDs holds the new id or
// null, Errors holds the failure reason or null.
type AddNotesResponse struct {
	NoteIDs      []*int64  `json:"note_ids"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	Errors       []*string `json:"errors"`
}

// FindNotesResponse is the response structure for find_notes.
type FindNotesResponse struct {
	Query   string  `json:"query"`
	NoteIDs []int64 `json:"note_ids"`
	Count   int     `json:"count"`
}

// NoteDetail is one simplified entry of a get_notes_info response: the
// backend's {"value", "order"} field objects are reduced to name/value pairs.
type NoteDetail struct {
	NoteID    int64             `json:"note_id"`
	ModelName string            `json:"model_name"`
	Tags      []string          `json:"tags"`
	Fields    map[string]string `json:"fields"`
}

// NotesInfoResponse is the response structure for get_notes_info.
type NotesInfoResponse struct {
	Notes []NoteDetail `json:"notes"`
	Count int          `json:"count"`
}

// UpdateNotesResponse is the response structure for update_notes. Errors is
// positional, like AddNotesResponse.Errors.
type UpdateNotesResponse struct {
	UpdatedCount int       `json:"updated_count"`
	FailureCount int       `json:"failure_count"`
	Errors       []*string `json:"errors"`
}

// DeleteNotesResponse is the response structure for delete_notes. Ids that
// did not exist are not an error; they simply do not count.
type DeleteNotesResponse struct {
	DeletedCount int `json:"deleted_count"`
}

// TableOfContentsResponse is the response structure for
// get_pdf_table_of_contents.
type TableOfContentsResponse struct {
	Entries []pdf.OutlineEntry `json:"entries"`
	Count   int                `json:"count"`
}

// ReadPagesResponse is the response structure for read_pdf_pages.
type ReadPagesResponse struct {
	Pages []pdf.PageText `json:"pages"`
	Count int            `json:"count"`
}

// noteItem is one parsed add_notes input. A non-empty invalid reason marks an
// item that failed input validation; it never reaches the backend but keeps
// its position in the batch result.
type noteItem struct {
	note    ankiconnect.Note
	invalid string
}

// noteUpdateItem is one parsed update_notes input. hasTags distinguishes
// "tags absent" from "tags set to an empty list".
type noteUpdateItem struct {
	id       int64
	fields   map[string]string
	tags     []string
	hasTags  bool
	deckName string
	invalid  string
}
