package models

import "time"

// APIConfig configures the remote completion endpoint
type APIConfig struct {
	Provider    string  `mapstructure:"provider" json:"provider"`
	APIKey      string  `mapstructure:"api_key" json:"-"`
	BaseURL     string  `mapstructure:"base_url" json:"baseUrl"`
	Model       string  `mapstructure:"model" json:"model"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"maxTokens"`
	TimeoutMs   int     `mapstructure:"timeout_ms" json:"timeoutMs"`
}

// GenerationRequest is built per invocation and never persisted
type GenerationRequest struct {
	DocumentBody     string
	FileName         string
	Template         Template
	ExistingMetadata string
}

// GenerationResult is the outcome of a single generation request.
// Error holds the tagged error code, Message the human-readable detail.
type GenerationResult struct {
	Success          bool   `json:"success"`
	Metadata         string `json:"metadata,omitempty"`
	Error            string `json:"error,omitempty"`
	Message          string `json:"message,omitempty"`
	TokensUsed       int    `json:"tokensUsed,omitempty"`
	ProcessingTimeMs int64  `json:"processingTimeMs,omitempty"`
}

// UsageStats are running counters over every completed request
type UsageStats struct {
	TotalRequests           int       `json:"totalRequests"`
	SuccessfulRequests      int       `json:"successfulRequests"`
	FailedRequests          int       `json:"failedRequests"`
	TotalTokensUsed         int       `json:"totalTokensUsed"`
	AverageProcessingTimeMs float64   `json:"averageProcessingTimeMs"`
	LastResetAt             time.Time `json:"lastResetAt"`
	LastUsedAt              time.Time `json:"lastUsedAt,omitempty"`
}

// CostEstimate is a rough spend projection for one document
type CostEstimate struct {
	Tokens        int     `json:"tokens"`
	EstimatedCost float64 `json:"estimatedCost"`
	PricingTier   string  `json:"pricingTier"`
}

// BatchError records one failed document in a batch run
type BatchError struct {
	Document string `json:"document"`
	Message  string `json:"message"`
}

// BatchResult aggregates a batch run
type BatchResult struct {
	Success int          `json:"success"`
	Failed  int          `json:"failed"`
	Skipped int          `json:"skipped,omitempty"`
	Errors  []BatchError `json:"errors,omitempty"`
}
