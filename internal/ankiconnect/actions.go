package ankiconnect

import "context"

// Note is the payload for addNote/addNotes, in AnkiConnect's own field naming.
type Note struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Tags      []string          `json:"tags"`
	Options   *NoteOptions      `json:"options,omitempty"`
}

// NoteOptions controls duplicate handling on insert.
type NoteOptions struct {
	AllowDuplicate bool   `json:"allowDuplicate"`
	DuplicateScope string `json:"duplicateScope,omitempty"`
}

// AddCheck is one entry of a canAddNotesWithErrorDetail result.
type AddCheck struct {
	CanAdd bool   `json:"canAdd"`
	Error  string `json:"error,omitempty"`
}

// NoteField is one field of a notesInfo entry.
type NoteField struct {
	Value string `json:"value"`
	Order int    `json:"order"`
}

// NoteInfo is one entry of a notesInfo result. AnkiConnect emits an empty
// object (NoteID zero) for ids that do not exist.
type NoteInfo struct {
	NoteID    int64                `json:"noteId"`
	ModelName string               `json:"modelName"`
	Tags      []string             `json:"tags"`
	Fields    map[string]NoteField `json:"fields"`
	Cards     []int64              `json:"cards"`
}

// NoteUpdate is the payload for updateNote. Tags is a pointer so that
// "clear all tags" (empty list) and "leave tags alone" (absent) remain
// distinguishable on the wire.
type NoteUpdate struct {
	ID     int64             `json:"id"`
	Fields map[string]string `json:"fields,omitempty"`
	Tags   *[]string         `json:"tags,omitempty"`
}

// Version returns the AnkiConnect API version, doubling as a liveness probe.
func (c *Client) Version(ctx context.Context) (int, error) {
	var v int
	if err := c.call(ctx, "version", nil, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// DeckNames lists all deck names. Nested decks use "::" separators.
func (c *Client) DeckNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.call(ctx, "deckNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// CreateDeck creates a deck (and any missing "::" ancestors) and returns its
// id. Creating an existing deck is a no-op that returns the existing id.
func (c *Client) CreateDeck(ctx context.Context, name string) (int64, error) {
	var id int64
	params := struct {
		Deck string `json:"deck"`
	}{Deck: name}
	if err := c.call(ctx, "createDeck", params, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteDecks deletes the named decks. cardsToo controls whether the decks'
// cards are deleted with them; the backend's policy decides what happens to
// surviving cards.
func (c *Client) DeleteDecks(ctx context.Context, names []string, cardsToo bool) error {
	params := struct {
		Decks    []string `json:"decks"`
		CardsToo bool     `json:"cardsToo"`
	}{Decks: names, CardsToo: cardsToo}
	return c.call(ctx, "deleteDecks", params, nil)
}

// ModelNames lists all note type (model) names.
func (c *Client) ModelNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.call(ctx, "modelNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ModelFieldNames lists the field names of one note type, in template order.
func (c *Client) ModelFieldNames(ctx context.Context, model string) ([]string, error) {
	var fields []string
	params := struct {
		ModelName string `json:"modelName"`
	}{ModelName: model}
	if err := c.call(ctx, "modelFieldNames", params, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// AddNote creates a single note and returns its backend-assigned id.
func (c *Client) AddNote(ctx context.Context, n Note) (int64, error) {
	var id int64
	params := struct {
		Note Note `json:"note"`
	}{Note: n}
	if err := c.call(ctx, "addNote", params, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// AddNotes creates notes in one batch. The result has one entry per input
// note: the new note id, or nil where that note could not be added. Per-note
// failures do not abort the batch.
func (c *Client) AddNotes(ctx context.Context, notes []Note) ([]*int64, error) {
	var ids []*int64
	params := struct {
		Notes []Note `json:"notes"`
	}{Notes: notes}
	if err := c.call(ctx, "addNotes", params, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// CanAddNotes asks the backend, without inserting anything, whether each note
// could be added, including the rejection reason for those that could not.
func (c *Client) CanAddNotes(ctx context.Context, notes []Note) ([]AddCheck, error) {
	var checks []AddCheck
	params := struct {
		Notes []Note `json:"notes"`
	}{Notes: notes}
	if err := c.call(ctx, "canAddNotesWithErrorDetail", params, &checks); err != nil {
		return nil, err
	}
	return checks, nil
}

// FindNotes returns the ids of notes matching an Anki search query. The query
// syntax is the backend's and is forwarded opaquely.
func (c *Client) FindNotes(ctx context.Context, query string) ([]int64, error) {
	var ids []int64
	params := struct {
		Query string `json:"query"`
	}{Query: query}
	if err := c.call(ctx, "findNotes", params, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// NotesInfo returns detail for each id, preserving input order. Unknown ids
// yield empty entries rather than an error.
func (c *Client) NotesInfo(ctx context.Context, ids []int64) ([]NoteInfo, error) {
	var infos []NoteInfo
	params := struct {
		Notes []int64 `json:"notes"`
	}{Notes: ids}
	if err := c.call(ctx, "notesInfo", params, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// UpdateNote updates the supplied fields and/or tags of one note. Review
// history and scheduling state are untouched by contract.
func (c *Client) UpdateNote(ctx context.Context, u NoteUpdate) error {
	params := struct {
		Note NoteUpdate `json:"note"`
	}{Note: u}
	return c.call(ctx, "updateNote", params, nil)
}

// ChangeDeck moves cards into the named deck, creating it if necessary.
func (c *Client) ChangeDeck(ctx context.Context, cards []int64, deck string) error {
	params := struct {
		Cards []int64 `json:"cards"`
		Deck  string  `json:"deck"`
	}{Cards: cards, Deck: deck}
	return c.call(ctx, "changeDeck", params, nil)
}

// DeleteNotes deletes the given notes and all their cards. Unknown ids are
// silently ignored by the backend.
func (c *Client) DeleteNotes(ctx context.Context, ids []int64) error {
	params := struct {
		Notes []int64 `json:"notes"`
	}{Notes: ids}
	return c.call(ctx, "deleteNotes", params, nil)
}
