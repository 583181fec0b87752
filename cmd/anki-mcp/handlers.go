package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tbessel/anki-mcp/internal/ankiconnect"
	"github.com/tbessel/anki-mcp/internal/pdf"
)

// defaultNoteOptions blocks duplicates within the target deck on every
// created note.
func defaultNoteOptions() *ankiconnect.NoteOptions {
	return &ankiconnect.NoteOptions{AllowDuplicate: false, DuplicateScope: "deck"}
}

// jsonResult marshals v as an indented JSON tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handlePing handles the ping tool request. Backend unreachability is part of
// the normal response shape, not a tool error.
func (s *AnkiService) handlePing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.Ping(ctx))
}

// handleGetDeckNames handles the get_deck_names tool request.
func (s *AnkiService) handleGetDeckNames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.DeckNames(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing decks: %v", err)), nil
	}
	return jsonResult(resp)
}

// handleCreateDeck handles the create_deck tool request.
func (s *AnkiService) handleCreateDeck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, ok := stringArg(request, "name")
	if !ok || name == "" {
		return mcp.NewToolResultError("Missing required parameter: name"), nil
	}

	resp, err := s.CreateDeck(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error creating deck: %v", err)), nil
	}
	return jsonResult(resp)
}

// handleDeleteDeck handles the delete_deck tool request. delete_cards
// defaults to true, matching the backend's own default contract.
func (s *AnkiService) handleDeleteDeck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, ok := stringArg(request, "name")
	if !ok || name == "" {
		return mcp.NewToolResultError("Missing required parameter: name"), nil
	}
	deleteCards := boolArg(request, "delete_cards", true)

	resp, err := s.DeleteDeck(ctx, name, deleteCards)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error deleting deck: %v", err)), nil
	}
	return jsonResult(resp)
}

// handleGetModelNames handles the get_model_names tool request.
func (s *AnkiService) handleGetModelNames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.ModelNames(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing models: %v", err)), nil
	}
	return jsonResult(resp)
}

// handleGetModelFieldNames handles the get_model_field_names tool request.
func (s *AnkiService) handleGetModelFieldNames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	modelName, ok := stringArg(request, "model_name")
	if !ok || modelName == "" {
		return mcp.NewToolResultError("Missing required parameter: model_name"), nil
	}

	resp, err := s.ModelFieldNames(ctx, modelName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing model fields: %v", err)), nil
	}
	return jsonResult(resp)
}

// handleAddNote handles the add_note tool request for a single note.
func (s *AnkiService) handleAddNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	item := parseNoteArgs(request.Params.Arguments)
	if item.invalid != "" {
		return mcp.NewToolResultError(item.invalid), nil
	}

	resp, err := s.AddNote(ctx, item.note)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error adding note: %v", err)), nil
	}
	return jsonResult(resp)
}

// handleAddNotes handles the add_notes tool request. Items that fail input
// validation keep their position in the batch result; they do not abort the
// call or their siblings.
func (s *AnkiService) handleAddNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawNotes, ok := request.Params.Arguments["notes"].([]interface{})
	if !ok || len(rawNotes) == 0 {
		return mcp.NewToolResultError("Missing required parameter: notes (non-empty array)"), nil
	}

	items := make([]noteItem, len(rawNotes))
	for i, rn := range rawNotes {
		m, ok := rn.(map[string]interface{})
		if !ok {
			items[i] = noteItem{invalid: fmt.Sprintf("note %d: expected an object", i)}
			continue
		}
		items[i] = parseNoteArgs(m)
	}

	resp, err := s.AddNotes(ctx, items)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error adding notes: %v", err)), nil
	}
	return jsonResult(resp)
}

// handleFindNotes handles the find_notes tool request.
func (s *AnkiService) handleFindNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, ok := stringArg(request, "query")
	if !ok || query == "" {
		return mcp.NewToolResultError("Missing required parameter: query"), nil
	}

	resp, err := s.FindNotes(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error finding notes: %v", err)), nil
	}
	return jsonResult(resp)
}

// handleGetNotesInfo handles the get_notes_info tool request.
func (s *AnkiService) handleGetNotesInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := noteIDsArg(request, "note_ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.NotesInfo(ctx, ids)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error getting notes info: %v", err)), nil
	}
	return jsonResult(resp)
}

// handleUpdateNotes handles the update_notes tool request.
func (s *AnkiService) handleUpdateNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawNotes, ok := request.Params.Arguments["notes"].([]interface{})
	if !ok || len(rawNotes) == 0 {
		return mcp.NewToolResultError("Missing required parameter: notes (non-empty array)"), nil
	}

	items := make([]noteUpdateItem, len(rawNotes))
	for i, rn := range rawNotes {
		m, ok := rn.(map[string]interface{})
		if !ok {
			items[i] = noteUpdateItem{invalid: fmt.Sprintf("note %d: expected an object", i)}
			continue
		}
		items[i] = parseNoteUpdateArgs(m)
	}

	resp, err := s.UpdateNotes(ctx, items)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error updating notes: %v", err)), nil
	}
	return jsonResult(resp)
}

// handleDeleteNotes handles the delete_notes tool request.
func (s *AnkiService) handleDeleteNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := noteIDsArg(request, "note_ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.DeleteNotes(ctx, ids)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error deleting notes: %v", err)), nil
	}
	return jsonResult(resp)
}

// handleGetPDFTableOfContents handles the get_pdf_table_of_contents tool
// request.
func (s *AnkiService) handleGetPDFTableOfContents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, ok := stringArg(request, "path")
	if !ok || path == "" {
		return mcp.NewToolResultError("Missing required parameter: path"), nil
	}

	resp, err := s.PDFTableOfContents(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return mcp.NewToolResultError(fmt.Sprintf("PDF file not found: %s", path)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Error reading PDF outline: %v", err)), nil
	}
	return jsonResult(resp)
}

// handleReadPDFPages handles the read_pdf_pages tool request.
func (s *AnkiService) handleReadPDFPages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, ok := stringArg(request, "path")
	if !ok || path == "" {
		return mcp.NewToolResultError("Missing required parameter: path"), nil
	}
	startPage, ok := intArg(request, "start_page")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: start_page"), nil
	}
	endPage, ok := intArg(request, "end_page")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: end_page"), nil
	}
	if startPage < 1 || endPage < startPage {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid page range %d-%d: start_page must be >= 1 and end_page >= start_page", startPage, endPage)), nil
	}

	resp, err := s.PDFPages(path, startPage, endPage)
	if err != nil {
		var pre *pdf.PageRangeError
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return mcp.NewToolResultError(fmt.Sprintf("PDF file not found: %s", path)), nil
		case errors.As(err, &pre):
			return mcp.NewToolResultError(pre.Error()), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("Error reading PDF pages: %v", err)), nil
		}
	}
	return jsonResult(resp)
}

// stringArg extracts a named string argument. Returns ("", false) when the
// argument is absent or not a string.
func stringArg(request mcp.CallToolRequest, name string) (string, bool) {
	v, ok := request.Params.Arguments[name].(string)
	return v, ok
}

// boolArg extracts a named bool argument, falling back to defaultVal.
func boolArg(request mcp.CallToolRequest, name string, defaultVal bool) bool {
	if v, ok := request.Params.Arguments[name].(bool); ok {
		return v
	}
	return defaultVal
}

// intArg extracts a named integer argument. JSON numbers decode as float64.
func intArg(request mcp.CallToolRequest, name string) (int, bool) {
	if v, ok := request.Params.Arguments[name].(float64); ok {
		return int(v), true
	}
	return 0, false
}

// noteIDsArg extracts a required array of note ids. Numeric strings are
// tolerated because some callers serialize large ids as strings.
func noteIDsArg(request mcp.CallToolRequest, name string) ([]int64, error) {
	raw, ok := request.Params.Arguments[name].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("Missing required parameter: %s (non-empty array)", name)
	}
	ids := make([]int64, 0, len(raw))
	for i, v := range raw {
		id, ok := coerceID(v)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: expected a note id, got %T", name, i, v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func coerceID(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}

// parseNoteArgs validates one note object (add_note arguments or one
// add_notes element) into a noteItem. Validation problems are recorded, not
// raised, so batch callers can keep the item's position.
func parseNoteArgs(m map[string]interface{}) noteItem {
	deckName, _ := m["deck_name"].(string)
	if deckName == "" {
		return noteItem{invalid: "deck_name is required"}
	}
	modelName, _ := m["model_name"].(string)
	if modelName == "" {
		return noteItem{invalid: "model_name is required"}
	}

	rawFields, ok := m["fields"].(map[string]interface{})
	if !ok || len(rawFields) == 0 {
		return noteItem{invalid: "fields is required and must be a non-empty object"}
	}
	fields := make(map[string]string, len(rawFields))
	for name, v := range rawFields {
		text, ok := v.(string)
		if !ok {
			return noteItem{invalid: fmt.Sprintf("field %q: value must be a string", name)}
		}
		fields[name] = text
	}

	tags := stringSlice(m["tags"])
	if tags == nil {
		tags = []string{}
	}

	return noteItem{note: ankiconnect.Note{
		DeckName:  deckName,
		ModelName: modelName,
		Fields:    fields,
		Tags:      tags,
		Options:   defaultNoteOptions(),
	}}
}

// parseNoteUpdateArgs validates one update_notes element.
func parseNoteUpdateArgs(m map[string]interface{}) noteUpdateItem {
	id, ok := coerceID(m["id"])
	if !ok || id == 0 {
		return noteUpdateItem{invalid: "id is required"}
	}

	item := noteUpdateItem{id: id}

	if rawFields, ok := m["fields"].(map[string]interface{}); ok {
		fields := make(map[string]string, len(rawFields))
		for name, v := range rawFields {
			text, ok := v.(string)
			if !ok {
				return noteUpdateItem{invalid: fmt.Sprintf("note %d: field %q: value must be a string", id, name)}
			}
			fields[name] = text
		}
		item.fields = fields
	}

	if _, present := m["tags"]; present {
		item.hasTags = true
		item.tags = stringSlice(m["tags"])
	}

	item.deckName, _ = m["deck_name"].(string)
	return item
}

// stringSlice converts a decoded JSON array to []string, skipping non-string
// entries. Returns nil for absent or non-array values.
func stringSlice(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
