package ankiconnect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a scriptable AnkiConnect stub: one response function per
// action name. Unscripted actions fail the test.
type fakeBackend struct {
	t       *testing.T
	actions map[string]func(params json.RawMessage) (any, string)
}

func newFakeBackend(t *testing.T) (*fakeBackend, *Client) {
	t.Helper()
	fb := &fakeBackend{t: t, actions: make(map[string]func(json.RawMessage) (any, string))}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	return fb, New(Config{URL: srv.URL}, nil)
}

func (f *fakeBackend) on(action string, fn func(params json.RawMessage) (any, string)) {
	f.actions[action] = fn
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action  string          `json:"action"`
		Version int             `json:"version"`
		Params  json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Errorf("fake backend: undecodable request: %v", err)
		return
	}
	if req.Version != 6 {
		f.t.Errorf("fake backend: unexpected version %d", req.Version)
	}
	fn, ok := f.actions[req.Action]
	if !ok {
		f.t.Errorf("fake backend: unscripted action %q", req.Action)
		fmt.Fprintf(w, `{"result": null, "error": "unscripted action %s"}`, req.Action)
		return
	}
	result, backendErr := fn(req.Params)
	resp := map[string]any{"result": result, "error": nil}
	if backendErr != "" {
		resp["error"] = backendErr
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		f.t.Errorf("fake backend: encode response: %v", err)
	}
}

func TestVersion(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.on("version", func(json.RawMessage) (any, string) { return 6, "" })

	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, v)
}

func TestDeckNames(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.on("deckNames", func(json.RawMessage) (any, string) {
		return []string{"Default", "Languages::French"}, ""
	})

	decks, err := c.DeckNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Default", "Languages::French"}, decks)
}

func TestDeleteDecks_paramNames(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.on("deleteDecks", func(params json.RawMessage) (any, string) {
		assert.JSONEq(t, `{"decks":["Old"],"cardsToo":true}`, string(params))
		return nil, ""
	})

	require.NoError(t, c.DeleteDecks(context.Background(), []string{"Old"}, true))
}

func TestModelFieldNames(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.on("modelFieldNames", func(params json.RawMessage) (any, string) {
		assert.JSONEq(t, `{"modelName":"Basic"}`, string(params))
		return []string{"Front", "Back"}, ""
	})

	fields, err := c.ModelFieldNames(context.Background(), "Basic")
	require.NoError(t, err)
	assert.Equal(t, []string{"Front", "Back"}, fields)
}

func TestAddNotes_nullEntriesForFailures(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.on("addNotes", func(params json.RawMessage) (any, string) {
		var p struct {
			Notes []Note `json:"notes"`
		}
		require.NoError(t, json.Unmarshal(params, &p))
		require.Len(t, p.Notes, 2)
		assert.Equal(t, "Basic", p.Notes[0].ModelName)
		// First note succeeds, second is rejected (e.g. duplicate).
		return []any{int64(111), nil}, ""
	})

	notes := []Note{
		{DeckName: "Default", ModelName: "Basic", Fields: map[string]string{"Front": "A", "Back": "B"}, Tags: []string{}},
		{DeckName: "Default", ModelName: "Basic", Fields: map[string]string{"Front": "A", "Back": "B"}, Tags: []string{}},
	}
	ids, err := c.AddNotes(context.Background(), notes)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.NotNil(t, ids[0])
	assert.Equal(t, int64(111), *ids[0])
	assert.Nil(t, ids[1])
}

func TestCanAddNotes(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.on("canAddNotesWithErrorDetail", func(json.RawMessage) (any, string) {
		return []AddCheck{
			{CanAdd: true},
			{CanAdd: false, Error: "cannot create note because it is a duplicate"},
		}, ""
	})

	checks, err := c.CanAddNotes(context.Background(), []Note{{}, {}})
	require.NoError(t, err)
	want := []AddCheck{
		{CanAdd: true},
		{CanAdd: false, Error: "cannot create note because it is a duplicate"},
	}
	if diff := cmp.Diff(want, checks); diff != "" {
		t.Errorf("checks mismatch (-want +got):\n%s", diff)
	}
}

func TestNotesInfo_decodesFieldsAndCards(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.on("notesInfo", func(params json.RawMessage) (any, string) {
		assert.JSONEq(t, `{"notes":[42]}`, string(params))
		return json.RawMessage(`[{
			"noteId": 42,
			"modelName": "Basic",
			"tags": ["vocab"],
			"fields": {"Front": {"value": "Apple", "order": 0}, "Back": {"value": "Pomme", "order": 1}},
			"cards": [420, 421]
		}]`), ""
	})

	infos, err := c.NotesInfo(context.Background(), []int64{42})
	require.NoError(t, err)
	want := []NoteInfo{{
		NoteID:    42,
		ModelName: "Basic",
		Tags:      []string{"vocab"},
		Fields: map[string]NoteField{
			"Front": {Value: "Apple", Order: 0},
			"Back":  {Value: "Pomme", Order: 1},
		},
		Cards: []int64{420, 421},
	}}
	if diff := cmp.Diff(want, infos); diff != "" {
		t.Errorf("infos mismatch (-want +got):\n%s", diff)
	}
}

func TestNotesInfo_unknownIDYieldsEmptyEntry(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.on("notesInfo", func(json.RawMessage) (any, string) {
		return json.RawMessage(`[{}]`), ""
	})

	infos, err := c.NotesInfo(context.Background(), []int64{999})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Zero(t, infos[0].NoteID)
}

func TestUpdateNote_tagPresenceOnWire(t *testing.T) {
	tests := []struct {
		name     string
		update   NoteUpdate
		wantJSON string
	}{
		{
			name:     "fields only leaves tags absent",
			update:   NoteUpdate{ID: 7, Fields: map[string]string{"Front": "Q"}},
			wantJSON: `{"note":{"id":7,"fields":{"Front":"Q"}}}`,
		},
		{
			name: "empty tag list is sent, not dropped",
			update: func() NoteUpdate {
				tags := []string{}
				return NoteUpdate{ID: 7, Tags: &tags}
			}(),
			wantJSON: `{"note":{"id":7,"tags":[]}}`,
		},
		{
			name: "tags only",
			update: func() NoteUpdate {
				tags := []string{"a", "b"}
				return NoteUpdate{ID: 7, Tags: &tags}
			}(),
			wantJSON: `{"note":{"id":7,"tags":["a","b"]}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, c := newFakeBackend(t)
			fb.on("updateNote", func(params json.RawMessage) (any, string) {
				assert.JSONEq(t, tt.wantJSON, string(params))
				return nil, ""
			})
			require.NoError(t, c.UpdateNote(context.Background(), tt.update))
		})
	}
}

func TestDeleteNotes_nullResult(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.on("deleteNotes", func(params json.RawMessage) (any, string) {
		assert.JSONEq(t, `{"notes":[1,2,3]}`, string(params))
		return nil, ""
	})

	require.NoError(t, c.DeleteNotes(context.Background(), []int64{1, 2, 3}))
}

func TestChangeDeck(t *testing.T) {
	fb, c := newFakeBackend(t)
	fb.on("changeDeck", func(params json.RawMessage) (any, string) {
		assert.JSONEq(t, `{"cards":[420],"deck":"Archive"}`, string(params))
		return nil, ""
	})

	require.NoError(t, c.ChangeDeck(context.Background(), []int64{420}, "Archive"))
}
