// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes chord sheet tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/chordbook/internal/apperr"
	"github.com/starford/chordbook/internal/chordsheet"
	"github.com/starford/chordbook/internal/pipeline"
	"github.com/starford/chordbook/internal/songservice"
	"github.com/starford/chordbook/internal/storage"
)

const contractURI = "chordbook://chordpro-format"

// Server wraps the MCP server with chordbook tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	songs *songservice.Service
	pipe  *pipeline.Pipeline

	fetcher fetchFunc
}

// New creates a new MCP server with all chordbook tools registered.
func New(store storage.Provider, songs *songservice.Service, pipe *pipeline.Pipeline) *Server {
	s := &Server{store: store, songs: songs, pipe: pipe}

	s.mcp = server.NewMCPServer(
		"Chordbook",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("classify_chord_sheet",
		mcp.WithDescription("Tell whether a chord sheet is Ultimate Guitar tablature "+
			"(chords on their own line above the lyrics) or annotated ChordPro (inline [C] chords)."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Chord sheet text")),
	), s.classifyChordSheet)

	s.mcp.AddTool(mcp.NewTool("convert_to_chordpro",
		mcp.WithDescription("Convert an Ultimate Guitar chord sheet to ChordPro. "+
			"Content that cannot be converted is returned unchanged."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Chord sheet text")),
	), s.convertToChordPro)

	s.mcp.AddTool(mcp.NewTool("render_chord_sheet",
		mcp.WithDescription("Render a chord sheet to an HTML table with chords above lyrics."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Chord sheet text")),
		mcp.WithNumber("transpose", mcp.Description("Semitones to transpose by (-11 to 11)")),
	), s.renderChordSheet)

	s.mcp.AddTool(mcp.NewTool("search_songs",
		mcp.WithDescription("Full-text search through song titles, artists, lyrics and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchSongs)

	s.mcp.AddTool(mcp.NewTool("read_song",
		mcp.WithDescription("Read the full content of a song file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the song (e.g. folk/song.cho)")),
	), s.readSong)

	s.mcp.AddTool(mcp.NewTool("create_song",
		mcp.WithDescription("Create a new song at the specified path. "+
			"Content SHOULD follow the ChordPro contract; read it first via the "+
			"get_chordpro_contract tool or the "+contractURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new song (.cho, .chordpro, .crd or .txt)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Song content")),
		mcp.WithBoolean("convert", mcp.Description("Convert Ultimate Guitar content to ChordPro before saving")),
	), s.createSong)

	s.mcp.AddTool(mcp.NewTool("list_songs",
		mcp.WithDescription("List all songs or songs in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listSongs)

	s.mcp.AddTool(mcp.NewTool("songs_with_chord",
		mcp.WithDescription("Find all songs that use the specified chord."),
		mcp.WithString("chord", mcp.Required(), mcp.Description("Chord symbol, e.g. Am, F#m7, G/B")),
	), s.songsWithChord)

	s.mcp.AddTool(mcp.NewTool("get_chordpro_contract",
		mcp.WithDescription("Returns the ChordPro song format contract. "+
			"Call this before creating or importing songs."),
	), s.getChordProContract)

	s.mcp.AddTool(mcp.NewTool("import_song",
		mcp.WithDescription("Download a plain-text chord sheet from an http(s) URL or a "+
			"base64 data URI and store it as a song, converting Ultimate Guitar sheets to ChordPro."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:text/plain;base64,... URI")),
		mcp.WithString("path", mcp.Description("Target path; derived from the URL when empty")),
	), s.importSong)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "ChordPro Format Contract",
			mcp.WithResourceDescription("Song format that stored songs should follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) classifyChordSheet(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(chordsheet.Classify(content).String()), nil
}

func (s *Server) convertToChordPro(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.pipe.ConvertToAnnotated(content)), nil
}

func (s *Server) renderChordSheet(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n := req.GetInt("transpose", 0)
	if n < -11 || n > 11 {
		return mcp.NewToolResultError("transpose must be between -11 and 11"), nil
	}
	return jsonResult(s.pipe.RenderToDisplay(content, pipeline.WithTranspose(n))), nil
}

func (s *Server) searchSongs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.songs.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readSong(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.songs.ReadRaw(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createSong(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetBool("convert", false) {
		content = s.pipe.ConvertToAnnotated(content)
	}
	return s.saveSong(ctx, path, content)
}

func (s *Server) saveSong(ctx context.Context, path, content string) (*mcp.CallToolResult, error) {
	song, err := s.songs.CreateSong(ctx, path, []byte(content))
	switch {
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError(fmt.Sprintf("song already exists: %s", path)), nil
	case errors.Is(err, apperr.ErrInvalidPath):
		return mcp.NewToolResultError(fmt.Sprintf("not a song file: %s (use one of %s)", path, strings.Join(storage.SongExtensions, ", "))), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", song.Path, song.Format)), nil
}

func (s *Server) listSongs(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.store.List(req.GetString("folder", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	paths := make([]string, 0, len(metas))
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) songsWithChord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chord, err := req.RequireString("chord")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !chordsheet.IsChord(chord) {
		return mcp.NewToolResultError(fmt.Sprintf("not a chord symbol: %s", chord)), nil
	}
	paths, err := s.songs.SongsWithChord(ctx, chord)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no songs found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getChordProContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ChordProContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     ChordProContract,
		},
	}, nil
}
