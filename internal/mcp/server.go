package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/amanvoice/internal/index"
	"github.com/Aman-CERP/amanvoice/internal/record"
	"github.com/Aman-CERP/amanvoice/internal/search"
	"github.com/Aman-CERP/amanvoice/pkg/version"
)

// Search limits for tool calls.
const (
	DefaultToolLimit = 10
	MaxToolLimit     = 50
)

// Searcher runs hybrid queries.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]*search.Result, error)
}

// Indexer is the orchestrator surface the server drives.
type Indexer interface {
	SyncIndexes(ctx context.Context) (*index.SyncResult, error)
	ForceFullReindex(ctx context.Context) (*index.SyncResult, error)
	Stats(ctx context.Context) (*index.Stats, error)
	Status() index.Snapshot
}

// Deps wires the server. Records is optional; without it no record
// resources are served.
type Deps struct {
	Engine   Searcher
	Indexer  Indexer
	Records  record.Provider
	Embedder EmbeddingInfo
}

// Server bridges MCP clients to the search engine and orchestrator.
type Server struct {
	mcp      *mcp.Server
	engine   Searcher
	indexer  Indexer
	records  record.Provider
	embedder EmbeddingInfo
	logger   *slog.Logger
}

// NewServer creates a server with every tool registered.
func NewServer(deps Deps) (*Server, error) {
	if deps.Engine == nil {
		return nil, errors.New("search engine is required")
	}
	if deps.Indexer == nil {
		return nil, errors.New("indexer is required")
	}

	s := &Server{
		engine:   deps.Engine,
		indexer:  deps.Indexer,
		records:  deps.Records,
		embedder: deps.Embedder,
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    version.Name,
		Version: version.Version,
	}, nil)

	s.registerTools()
	if s.records != nil {
		s.registerResources()
	}
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search transcribed voice notes by meaning and keywords. Returns the best matching notes with a snippet and where it matched.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report how many voice notes are indexed, which embedder is active, and whether a sync is running.",
	}, s.handleIndexStatus)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "sync_index",
		Description: "Bring the index up to date with the notes on disk. Set force to rebuild every embedding.",
	}, s.handleSyncIndex)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", 3))
}

func (s *Server) registerResources() {
	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "record",
		URITemplate: RecordURIPrefix + "{id}",
		Description: "A voice note with its transcript and metadata, as JSON",
		MIMEType:    "application/json",
	}, s.handleReadRecord)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}
	limit := clampLimit(input.Limit, DefaultToolLimit, 1, MaxToolLimit)

	requestID := generateRequestID()
	start := time.Now()

	results, err := s.engine.Search(ctx, query, limit)
	if err != nil {
		s.logger.Error("mcp_search_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}

	s.logger.Info("mcp_search",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))

	phase := s.indexer.Status().Phase
	output := SearchOutput{
		Results:  make([]SearchResultOutput, 0, len(results)),
		Indexing: phase == index.PhaseSyncing || phase == index.PhaseIndexing,
	}
	for _, r := range results {
		output.Results = append(output.Results, ToSearchResultOutput(r))
	}
	output.Count = len(output.Results)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatSearchResults(query, results)}},
	}, output, nil
}

func (s *Server) handleIndexStatus(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	IndexStatusOutput,
	error,
) {
	stats, err := s.indexer.Stats(ctx)
	if err != nil {
		return nil, IndexStatusOutput{}, MapError(err)
	}

	out := IndexStatusOutput{
		Embeddings: s.embedder,
		Status:     toSyncStatus(stats.Status),
	}
	if stats.Vector != nil {
		out.Records = stats.Vector.TotalRecords
		out.Chunks = stats.Vector.TotalChunks
		out.SizeBytes = stats.Vector.ApproxSizeBytes
	}
	if stats.Keyword != nil {
		out.Keyword = KeywordStatus{
			Backend:   stats.Keyword.Backend,
			Documents: stats.Keyword.Documents,
			Ready:     stats.Keyword.Built && !stats.Keyword.Stale,
		}
	}
	return nil, out, nil
}

func (s *Server) handleSyncIndex(ctx context.Context, _ *mcp.CallToolRequest, input SyncIndexInput) (
	*mcp.CallToolResult,
	SyncIndexOutput,
	error,
) {
	var (
		res *index.SyncResult
		err error
	)
	if input.Force {
		res, err = s.indexer.ForceFullReindex(ctx)
	} else {
		res, err = s.indexer.SyncIndexes(ctx)
	}
	if err != nil {
		return nil, SyncIndexOutput{}, MapError(err)
	}

	out := toSyncIndexOutput(res)
	s.logger.Info("mcp_sync",
		slog.Bool("force", input.Force),
		slog.Int("indexed", out.Indexed),
		slog.Int("failed", out.Failed))
	return nil, out, nil
}

func (s *Server) handleReadRecord(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id := strings.TrimPrefix(uri, RecordURIPrefix)
	if id == "" || id == uri {
		return nil, NewInvalidParamsError(fmt.Sprintf("invalid record URI: %s", uri))
	}

	r, err := s.records.GetRecord(ctx, id)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return nil, NewRecordNotFoundError(uri)
		}
		return nil, MapError(err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// Serve runs the server until ctx is done or the client disconnects. Only
// the stdio transport is supported.
func (s *Server) Serve(ctx context.Context, transport string) error {
	if transport != "" && transport != "stdio" {
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}

	s.logger.Info("mcp_server_starting", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
