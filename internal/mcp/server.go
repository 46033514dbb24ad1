package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/niramay-pgx-server/internal/domain"
	"github.com/niramay-pgx-server/internal/logging"
	"github.com/niramay-pgx-server/internal/service"
)

// ToolAnalyzeDrugRisk is the name of the single tool this server exposes
const ToolAnalyzeDrugRisk = "analyze_drug_risk"

const (
	defaultServerName    = "niramay-pgx-server"
	defaultServerVersion = "v1.0.0"
)

const analyzeDrugRiskDescription = "Evaluate pharmacogenomic drug-response risk for a patient. " +
	"Supply the drugs to check plus either variant records (rsid, optional chrom/pos/ref/alt) " +
	"or raw VCF text. Returns one CPIC-based verdict per drug with a generated explanation."

// Server represents the pharmacogenomics MCP server implementation
type Server struct {
	mcpServer *mcp.Server
	analyzer  domain.Analyzer
	parser    service.VariantParser
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance with its tools registered
func NewServer(config domain.MCPConfig, analyzer domain.Analyzer, parser service.VariantParser, logger *logrus.Logger) *Server {
	name := config.ServerName
	if name == "" {
		name = defaultServerName
	}
	version := config.ServerVersion
	if version == "" {
		version = defaultServerVersion
	}

	server := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		analyzer:  analyzer,
		parser:    parser,
		logger:    logger,
	}

	mcp.AddTool(server.mcpServer, &mcp.Tool{
		Name:        ToolAnalyzeDrugRisk,
		Description: analyzeDrugRiskDescription,
	}, server.handleAnalyzeDrugRisk)

	logger.WithFields(logrus.Fields{
		"server_name":    name,
		"server_version": version,
		"tool_name":      ToolAnalyzeDrugRisk,
	}).Debug("Registered MCP tool")

	return server
}

// Start serves the MCP protocol over stdio until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting pharmacogenomics MCP server on stdio")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

func (s *Server) handleAnalyzeDrugRisk(ctx context.Context, _ *mcp.CallToolRequest, params domain.DrugRiskRequest) (*mcp.CallToolResult, any, error) {
	ctx, correlationID := logging.EnsureCorrelationID(ctx)
	logger := logging.FromContext(ctx, s.logger).WithField("tool", ToolAnalyzeDrugRisk)
	logger.WithField("drug_count", len(params.Drugs)).Info("Tool invoked")

	req, err := service.BuildAnalysisRequest(&params, s.parser)
	if err != nil {
		return toolError(err, correlationID, logger), nil, nil
	}

	result, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		return toolError(err, correlationID, logger), nil, nil
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode analysis result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(payload)},
		},
	}, nil, nil
}

// toolError reports a failed call in-band so the client model can see it.
// Caller mistakes carry their message; anything else is reported generically.
func toolError(err error, correlationID string, logger *logrus.Entry) *mcp.CallToolResult {
	pgxErr, callerFault := domain.ResponseError(err, correlationID)
	if callerFault {
		logger.WithError(err).Warn("Tool call rejected")
	} else {
		logger.WithError(err).Error("Tool call failed")
	}

	text, _ := json.Marshal(pgxErr)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(text)},
		},
	}
}
