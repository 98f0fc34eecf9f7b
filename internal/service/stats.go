package service

import (
	"context"

	"github.com/dpshade/pocket-meta/internal/errors"
	"github.com/dpshade/pocket-meta/internal/generation"
	"github.com/dpshade/pocket-meta/internal/logger"
	"github.com/dpshade/pocket-meta/internal/models"
	"github.com/dpshade/pocket-meta/internal/usage"
)

// Reference pricing used for cost estimates
const (
	PricePerThousandTokens = 0.002
	PricingTier            = "gpt-3.5-turbo reference"
)

// EstimateCost converts the token estimate for text into a USD figure
func EstimateCost(text string) models.CostEstimate {
	tokens := generation.EstimateTokens(text)
	return models.CostEstimate{
		Tokens:        tokens,
		EstimatedCost: costOf(tokens),
		PricingTier:   PricingTier,
	}
}

func costOf(tokens int) float64 {
	return float64(tokens) / 1000 * PricePerThousandTokens
}

// UsageStats returns a snapshot of the running counters
func (s *Service) UsageStats() models.UsageStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// ResetUsageStats zeroes the counters and writes a reset marker to the usage
// log so later processes start from zero too
func (s *Service) ResetUsageStats(ctx context.Context) error {
	now := s.now()

	s.statsMu.Lock()
	s.stats = models.UsageStats{LastResetAt: now}
	s.statsMu.Unlock()

	if s.usage != nil {
		if err := s.usage.Reset(ctx, now); err != nil {
			return errors.StorageError("reset usage log", err)
		}
	}
	logger.Info("usage statistics reset")
	return nil
}

// recordRequest updates the counters after a completed request, success or
// failure, then mirrors it to the usage log and metrics
func (s *Service) recordRequest(ctx context.Context, document, templateID string, result models.GenerationResult) {
	now := s.now()

	s.statsMu.Lock()
	s.stats.TotalRequests++
	if result.Success {
		s.stats.SuccessfulRequests++
	} else {
		s.stats.FailedRequests++
	}
	s.stats.TotalTokensUsed += result.TokensUsed
	n := float64(s.stats.TotalRequests)
	s.stats.AverageProcessingTimeMs = (s.stats.AverageProcessingTimeMs*(n-1) + float64(result.ProcessingTimeMs)) / n
	s.stats.LastUsedAt = now
	s.statsMu.Unlock()

	s.observe(templateID, result)

	if s.usage == nil {
		return
	}
	cfg := s.generator.Config()
	err := s.usage.Record(context.WithoutCancel(ctx), usage.Record{
		Timestamp:  now,
		Document:   document,
		TemplateID: templateID,
		Model:      cfg.Model,
		Provider:   cfg.Provider,
		Success:    result.Success,
		ErrorCode:  result.Error,
		Tokens:     result.TokensUsed,
		DurationMs: result.ProcessingTimeMs,
		CostUSD:    costOf(result.TokensUsed),
	})
	if err != nil {
		logger.Warn("failed to record usage", "document", document, "error", err)
	}
}
