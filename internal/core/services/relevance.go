package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
	"github.com/custodia-labs/scengen-cli/internal/logger"
)

// Relevance score weights. A chunk's score blends heading match against
// content match, and content match blends keyword overlap against
// coarse whole-text similarity.
const (
	headingWeight = 0.4
	contentWeight = 0.6
	keywordWeight = 0.6
	textWeight    = 0.4
)

// RelevanceConfig configures chunk scoring and selection.
type RelevanceConfig struct {
	// MinScore filters out chunks scoring below it (default 0.15).
	MinScore float64

	// TokenBudget bounds the summed estimated tokens of the selected
	// chunks (default 4000).
	TokenBudget int

	// MaxChunks caps the number of selected chunks (default 10).
	MaxChunks int

	// KeywordThreshold is the fuzzy-match threshold for keyword
	// overlap (default 0.7).
	KeywordThreshold float64

	// TextCompareLimit bounds whole-text comparison to a prefix of this
	// many characters per side (default 2000).
	TextCompareLimit int
}

// DefaultRelevanceConfig returns sensible defaults for relevance scoring.
func DefaultRelevanceConfig() RelevanceConfig {
	return RelevanceConfig{
		MinScore:         0.15,
		TokenBudget:      4000,
		MaxChunks:        10,
		KeywordThreshold: 0.7,
		TextCompareLimit: 2000,
	}
}

// RelevanceScorer ranks reference chunks against target requirements
// and selects a token-budgeted subset to serve as generation context.
type RelevanceScorer struct {
	cfg RelevanceConfig
}

// NewRelevanceScorer creates a scorer with the given configuration.
// Zero-valued fields fall back to defaults.
func NewRelevanceScorer(cfg RelevanceConfig) *RelevanceScorer {
	defaults := DefaultRelevanceConfig()
	if cfg.MinScore <= 0 {
		cfg.MinScore = defaults.MinScore
	}
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = defaults.TokenBudget
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = defaults.MaxChunks
	}
	if cfg.KeywordThreshold <= 0 {
		cfg.KeywordThreshold = defaults.KeywordThreshold
	}
	if cfg.TextCompareLimit <= 0 {
		cfg.TextCompareLimit = defaults.TextCompareLimit
	}
	return &RelevanceScorer{cfg: cfg}
}

// Score computes the relevance of every chunk as the best score across
// all requirements. Max, not average: a chunk relevant to any single
// requirement should surface.
func (s *RelevanceScorer) Score(chunks []domain.Chunk, reqs []domain.Requirement) []domain.RelevanceScore {
	// Pre-compute requirement keyword sets and comparison texts.
	reqKeywords := make([][]string, len(reqs))
	reqTexts := make([]string, len(reqs))
	for i := range reqs {
		reqKeywords[i] = reqs[i].Keywords()
		reqTexts[i] = normaliseText(reqs[i].FlatText())
	}

	scores := make([]domain.RelevanceScore, len(chunks))
	for i := range chunks {
		scores[i] = s.scoreChunk(&chunks[i], reqs, reqKeywords, reqTexts)
	}
	return scores
}

// scoreChunk returns the best score of one chunk across all requirements.
func (s *RelevanceScorer) scoreChunk(
	chunk *domain.Chunk,
	reqs []domain.Requirement,
	reqKeywords [][]string,
	reqTexts []string,
) domain.RelevanceScore {
	best := domain.RelevanceScore{ChunkID: chunk.ID}
	headingKeywords := domain.ExtractKeywords(chunk.Heading)
	chunkText := normaliseText(chunk.Content)

	for i := range reqs {
		headingMatch, _ := keywordOverlap(headingKeywords, reqKeywords[i], s.cfg.KeywordThreshold)
		kwOverlap, matched := keywordOverlap(chunk.Keywords, reqKeywords[i], s.cfg.KeywordThreshold)
		textSim := boundedSimilarity(chunkText, reqTexts[i], s.cfg.TextCompareLimit)

		contentMatch := keywordWeight*kwOverlap + textWeight*textSim
		score := clamp01(headingWeight*headingMatch + contentWeight*contentMatch)

		if score > best.Score {
			best.Score = score
			best.HeadingMatch = headingMatch
			best.ContentMatch = contentMatch
			best.MatchedKeywords = matched
		}
	}
	return best
}

// Select filters, ranks and greedily picks chunks under the token
// budget. The sort is stable on descending score with no secondary key;
// equal-score ordering follows input order, which is an accepted
// nondeterminism boundary for callers that reorder their input.
func (s *RelevanceScorer) Select(
	chunks []domain.Chunk, reqs []domain.Requirement,
) ([]domain.Chunk, []domain.RelevanceScore) {
	logger.Section("Relevance Selection")
	logger.Debug("Scoring %d chunks against %d requirements", len(chunks), len(reqs))

	scores := s.Score(chunks, reqs)

	byID := make(map[string]domain.Chunk, len(chunks))
	for i := range chunks {
		byID[chunks[i].ID] = chunks[i]
	}

	// Filter below minimum score.
	ranked := make([]domain.RelevanceScore, 0, len(scores))
	for i := range scores {
		if scores[i].Score >= s.cfg.MinScore {
			ranked = append(ranked, scores[i])
		}
	}
	logger.Debug("%d chunks above minimum score %.2f", len(ranked), s.cfg.MinScore)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	// Greedy selection: skip chunks that would overflow the budget and
	// keep trying smaller ones further down the ranking.
	var selected []domain.Chunk
	var selectedScores []domain.RelevanceScore
	budgetUsed := 0
	for i := range ranked {
		if len(selected) >= s.cfg.MaxChunks {
			break
		}
		chunk := byID[ranked[i].ChunkID]
		if budgetUsed+chunk.EstimatedTokens > s.cfg.TokenBudget {
			continue
		}
		budgetUsed += chunk.EstimatedTokens
		selected = append(selected, chunk)
		selectedScores = append(selectedScores, ranked[i])
	}

	logger.Info("Selected %d chunks using %d/%d tokens", len(selected), budgetUsed, s.cfg.TokenBudget)
	return selected, selectedScores
}

// ContextBlock concatenates selected chunks into a single context block
// for injection into a generation request. Each chunk is prefixed by
// its heading and relevance percentage.
func (s *RelevanceScorer) ContextBlock(chunks []domain.Chunk, scores []domain.RelevanceScore) string {
	if len(chunks) == 0 {
		return ""
	}

	var b strings.Builder
	for i := range chunks {
		heading := chunks[i].Heading
		if heading == "" {
			heading = "Reference"
		}
		relevance := 0
		if i < len(scores) {
			relevance = int(scores[i].Score*100 + 0.5)
		}
		fmt.Fprintf(&b, "## %s (relevance: %d%%)\n%s\n\n", heading, relevance, chunks[i].Content)
	}
	return strings.TrimSpace(b.String())
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
