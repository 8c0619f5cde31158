package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driven"
	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driving"
	"github.com/finlight-labs/reportkb-cli/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.KnowledgeBaseQuerier = (*QueryService)(nil)

// DefaultTopK is the number of chunks retrieved when unset.
const DefaultTopK = 5

// DefaultTemplate grounds the generator on retrieved report excerpts.
// {context} receives the formatted chunks, {question} the user's question.
const DefaultTemplate = `You are a financial analyst assistant. Answer the question using only the annual report excerpts below. If the excerpts do not contain the answer, say so; do not speculate.

Excerpts:
{context}

Question: {question}

Answer:`

// QueryService answers questions over the indexed knowledge base.
// The generator is optional; without one, only Context works and Ask
// returns ErrGeneratorUnavailable.
type QueryService struct {
	index       driven.VectorIndex
	generator   driven.Generator
	maxTokens   int
	temperature float64
}

// NewQueryService creates a query service. generator may be nil.
func NewQueryService(index driven.VectorIndex, generator driven.Generator, maxTokens int, temperature float64) *QueryService {
	return &QueryService{
		index:       index,
		generator:   generator,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Context returns the ranked chunks that would ground an answer.
func (s *QueryService) Context(ctx context.Context, question string, opts driving.QueryOptions) ([]domain.ScoredChunk, error) {
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	results, err := s.index.Search(ctx, question, topK, opts.Filters)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	logger.Debug("retrieved %d chunks for question", len(results))
	return results, nil
}

// Ask retrieves context and generates a grounded answer.
func (s *QueryService) Ask(ctx context.Context, question string, opts driving.QueryOptions) (*domain.Answer, error) {
	if s.generator == nil {
		return nil, domain.ErrGeneratorUnavailable
	}

	results, err := s.Context(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	template := opts.Template
	if template == "" {
		template = DefaultTemplate
	}
	prompt := renderPrompt(template, formatContext(results), question)

	text, err := s.generator.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.Answer{
		Text:    strings.TrimSpace(text),
		Context: results,
	}, nil
}

// renderPrompt substitutes the template placeholders. {input} is an
// accepted alias for {question}.
func renderPrompt(template, contextBlock, question string) string {
	prompt := strings.ReplaceAll(template, "{context}", contextBlock)
	prompt = strings.ReplaceAll(prompt, "{question}", question)
	prompt = strings.ReplaceAll(prompt, "{input}", question)
	return prompt
}

// formatContext renders retrieved chunks with their source citation.
func formatContext(results []domain.ScoredChunk) string {
	if len(results) == 0 {
		return "(no matching excerpts found)"
	}

	var sb strings.Builder
	for i, result := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s", i+1, result.Chunk.Source)
		if result.Chunk.Page > 0 {
			fmt.Fprintf(&sb, " (page %d)", result.Chunk.Page)
		}
		if result.Chunk.Section != "" {
			fmt.Fprintf(&sb, " - %s", result.Chunk.Section)
		}
		sb.WriteString("\n")
		sb.WriteString(result.Chunk.Content)
	}
	return sb.String()
}
