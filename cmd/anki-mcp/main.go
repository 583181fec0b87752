package main

import (
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tbessel/anki-mcp/internal/ankiconnect"
	"github.com/tbessel/anki-mcp/internal/pdf"
)

const ankiServerInfo = `
This server manages flashcards in a locally running Anki desktop application
through the AnkiConnect add-on. Anki must be open for any tool except the PDF
tools to work; use ping to check connectivity before a session.

Guidance for creating cards:
1. Call get_deck_names and get_model_names first to discover what exists.
2. Call get_model_field_names for the chosen model; field names must match
   exactly, including case.
3. Prefer add_notes for more than one card. Each note succeeds or fails
   independently; report per-note errors back to the user by position.
4. Basic HTML is allowed in field values (e.g. <b>, <i>, <br>).
5. Tags must not contain spaces; use underscores instead.

The PDF tools extract source material for card creation: read the table of
contents first to find relevant sections, then read only the page ranges you
need rather than whole documents.
`

func main() {
	// Load .env if present; flags and real environment still win
	_ = godotenv.Load()

	// Parse command-line flags
	ankiURL := flag.String("anki-connect", envOr("ANKI_CONNECT_URL", ankiconnect.DefaultURL), "AnkiConnect base URL")
	timeout := flag.Duration("timeout", envDurationOr("ANKI_CONNECT_TIMEOUT", ankiconnect.DefaultTimeout), "AnkiConnect request timeout")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger := newLogger(*debug)
	defer logger.Sync()

	// Initialize the AnkiConnect client and the flashcard service
	client := ankiconnect.New(ankiconnect.Config{
		URL:     *ankiURL,
		Timeout: *timeout,
	}, logger.Named("ankiconnect"))
	ankiService := NewAnkiService(client, pdf.NewExtractor(), logger.Named("service"))

	// Create a new MCP server
	s := server.NewMCPServer(
		"AnkiConnect MCP",
		"1.0.0",
		server.WithInstructions(ankiServerInfo),
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	// Define the ping tool
	pingTool := mcp.NewTool("ping",
		mcp.WithDescription(
			"Check whether Anki is running and reachable. "+
				"Returns the AnkiConnect API version on success, or an error status "+
				"with instructions for the user when Anki is not running. "+
				"Call this first when starting a flashcard session.",
		),
		// No parameters required
	)

	// Define the get_deck_names tool
	getDeckNamesTool := mcp.NewTool("get_deck_names",
		mcp.WithDescription(
			"List all deck names in the Anki collection, including nested decks "+
				"in 'Parent::Child' notation.",
		),
	)

	// Define the create_deck tool
	createDeckTool := mcp.NewTool("create_deck",
		mcp.WithDescription(
			"Create a new deck. Use 'Parent::Child' notation for nested decks; "+
				"missing parents are created automatically. Creating a deck that "+
				"already exists is not an error.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the deck to create"),
		),
	)

	// Define the delete_deck tool
	deleteDeckTool := mcp.NewTool("delete_deck",
		mcp.WithDescription(
			"Delete a deck. CAUTION: by default this also deletes all cards in "+
				"the deck, which cannot be undone through this server. Confirm with "+
				"the user before calling.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the deck to delete"),
		),
		mcp.WithBoolean("delete_cards",
			mcp.Description("Also delete the cards in the deck (default true)"),
		),
	)

	// Define the get_model_names tool
	getModelNamesTool := mcp.NewTool("get_model_names",
		mcp.WithDescription(
			"List all note model (note type) names in the collection, "+
				"such as 'Basic' or 'Cloze'.",
		),
	)

	// Define the get_model_field_names tool
	getModelFieldNamesTool := mcp.NewTool("get_model_field_names",
		mcp.WithDescription(
			"List the field names of a note model in their display order. "+
				"Call this before adding notes: field names must match exactly, "+
				"including case.",
		),
		mcp.WithString("model_name",
			mcp.Required(),
			mcp.Description("Name of the model, e.g. 'Basic'"),
		),
	)

	// Define the add_note tool
	addNoteTool := mcp.NewTool("add_note",
		mcp.WithDescription(
			"Add a single flashcard note to a deck. "+
				"The fields object must use the model's exact field names "+
				"(see get_model_field_names). Basic HTML is allowed in values. "+
				"Duplicates within the target deck are rejected. "+
				"Prefer add_notes when creating more than one card.",
		),
		mcp.WithString("deck_name",
			mcp.Required(),
			mcp.Description("Deck to add the note to"),
		),
		mcp.WithString("model_name",
			mcp.Required(),
			mcp.Description("Note model to use, e.g. 'Basic'"),
		),
		mcp.WithObject("fields",
			mcp.Required(),
			mcp.Description("Field values keyed by the model's field names, e.g. {\"Front\": \"...\", \"Back\": \"...\"}"),
		),
		mcp.WithArray("tags",
			mcp.Description("Tags for the note; tags must not contain spaces"),
		),
	)

	// Define the add_notes tool
	addNotesTool := mcp.NewTool("add_notes",
		mcp.WithDescription(
			"Add multiple flashcard notes in one call. Each note is an object "+
				"with deck_name, model_name, fields, and optional tags, exactly as "+
				"in add_note. Notes succeed or fail independently; the result "+
				"reports a note id or an error reason for every input position. "+
				"Always relay per-note failures back to the user.",
		),
		mcp.WithArray("notes",
			mcp.Required(),
			mcp.Description("Array of note objects to add"),
		),
	)

	// Define the find_notes tool
	findNotesTool := mcp.NewTool("find_notes",
		mcp.WithDescription(
			"Find note ids matching an Anki search query, using Anki's search "+
				"syntax: 'deck:Spanish', 'tag:verb', 'front:hello', or free text. "+
				"Use get_notes_info to fetch the content of the returned ids.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Anki search query, e.g. 'deck:Spanish tag:verb'"),
		),
	)

	// Define the get_notes_info tool
	getNotesInfoTool := mcp.NewTool("get_notes_info",
		mcp.WithDescription(
			"Fetch the model, fields, and tags of the given notes. Results are "+
				"in input order; ids that no longer exist are omitted.",
		),
		mcp.WithArray("note_ids",
			mcp.Required(),
			mcp.Description("Note ids as returned by find_notes or add_notes"),
		),
	)

	// Define the update_notes tool
	updateNotesTool := mcp.NewTool("update_notes",
		mcp.WithDescription(
			"Update existing notes. Each note object has a required id plus any "+
				"of: fields (only the listed fields change), tags (replaces the "+
				"full tag list; [] clears all tags), deck_name (moves the note's "+
				"cards to that deck). Omitted properties are left untouched. "+
				"Notes succeed or fail independently.",
		),
		mcp.WithArray("notes",
			mcp.Required(),
			mcp.Description("Array of note update objects, each with an id"),
		),
	)

	// Define the delete_notes tool
	deleteNotesTool := mcp.NewTool("delete_notes",
		mcp.WithDescription(
			"Delete notes and all their cards. CAUTION: this cannot be undone "+
				"through this server; confirm with the user before calling. "+
				"Ids that do not exist are ignored.",
		),
		mcp.WithArray("note_ids",
			mcp.Required(),
			mcp.Description("Note ids to delete"),
		),
	)

	// Define the get_pdf_table_of_contents tool
	getPDFTableOfContentsTool := mcp.NewTool("get_pdf_table_of_contents",
		mcp.WithDescription(
			"Read the table of contents (outline) of a local PDF file, with the "+
				"page number of each entry. Use this to locate relevant sections "+
				"before reading pages. Returns an empty list when the PDF has no "+
				"outline.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file on the local filesystem"),
		),
	)

	// Define the read_pdf_pages tool
	readPDFPagesTool := mcp.NewTool("read_pdf_pages",
		mcp.WithDescription(
			"Extract plain text from a page range of a local PDF file. Pages are "+
				"1-based and the range is inclusive. Read only the ranges you "+
				"need; whole books rarely fit in one response.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file on the local filesystem"),
		),
		mcp.WithNumber("start_page",
			mcp.Required(),
			mcp.Description("First page to read (1-based)"),
		),
		mcp.WithNumber("end_page",
			mcp.Required(),
			mcp.Description("Last page to read (inclusive)"),
		),
	)

	// Register all tools with their handlers
	s.AddTool(pingTool, ankiService.handlePing)
	s.AddTool(getDeckNamesTool, ankiService.handleGetDeckNames)
	s.AddTool(createDeckTool, ankiService.handleCreateDeck)
	s.AddTool(deleteDeckTool, ankiService.handleDeleteDeck)
	s.AddTool(getModelNamesTool, ankiService.handleGetModelNames)
	s.AddTool(getModelFieldNamesTool, ankiService.handleGetModelFieldNames)
	s.AddTool(addNoteTool, ankiService.handleAddNote)
	s.AddTool(addNotesTool, ankiService.handleAddNotes)
	s.AddTool(findNotesTool, ankiService.handleFindNotes)
	s.AddTool(getNotesInfoTool, ankiService.handleGetNotesInfo)
	s.AddTool(updateNotesTool, ankiService.handleUpdateNotes)
	s.AddTool(deleteNotesTool, ankiService.handleDeleteNotes)
	s.AddTool(getPDFTableOfContentsTool, ankiService.handleGetPDFTableOfContents)
	s.AddTool(readPDFPagesTool, ankiService.handleReadPDFPages)

	logger.Info("starting server",
		zap.String("anki_connect_url", *ankiURL),
		zap.Duration("timeout", *timeout))

	// Start the server
	if err := server.ServeStdio(s); err != nil {
		logger.Fatal("server terminated", zap.Error(err))
	}
}

// newLogger writes human-readable logs to stderr; stdout carries the MCP
// protocol stream and must stay clean.
func newLogger(debug bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		os.Exit(1)
	}
	return logger
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
