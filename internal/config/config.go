package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// HTTP server; empty disables the HTTP surface.
	Port string
	// HTTPEnabled forces the HTTP server on alongside stdio.
	HTTPEnabled bool

	// Auth
	APIKey string

	// Base directory for relative document paths.
	BasePath string

	// Extraction
	TopKeywords int

	// Diff
	SimilarityThreshold float64

	// Quality scoring
	MaxSentenceWords int
	ReadabilityFloor float64

	// Upload limits
	MaxUploadBytes int64

	// Ops stats window
	StatsWindow time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port:        os.Getenv("PORT"),
		HTTPEnabled: envBool("HTTP", false),

		APIKey: os.Getenv("DOCSENSE_API_KEY"),

		BasePath: os.Getenv("DOCSENSE_PATH"),

		TopKeywords: envInt("TOP_KEYWORDS", 20),

		SimilarityThreshold: envFloat("SIMILARITY_THRESHOLD", 0.4),

		MaxSentenceWords: envInt("MAX_SENTENCE_WORDS", 25),
		ReadabilityFloor: envFloat("READABILITY_FLOOR", 30),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		StatsWindow: envDuration("STATS_WINDOW", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.TopKeywords <= 0 {
		cfg.TopKeywords = 20
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0,1], got %v", c.SimilarityThreshold)
	}
	if c.MaxSentenceWords < 0 {
		return fmt.Errorf("MAX_SENTENCE_WORDS must not be negative, got %d", c.MaxSentenceWords)
	}
	if c.ReadabilityFloor < 0 || c.ReadabilityFloor > 100 {
		return fmt.Errorf("READABILITY_FLOOR must be in 0..100, got %v", c.ReadabilityFloor)
	}
	if (c.Port != "" || c.HTTPEnabled) && c.APIKey == "" {
		return fmt.Errorf("DOCSENSE_API_KEY is required when the HTTP server is enabled")
	}
	return nil
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
