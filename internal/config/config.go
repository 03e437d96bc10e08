package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by RELATE_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("RELATE_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// EmbeddingProvider returns the configured embedding provider.
// Valid values: openai, mock
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// EmbeddingModel returns the embedding model requested from the provider.
func EmbeddingModel() string {
	m := os.Getenv("EMBEDDING_MODEL")
	if m == "" {
		return "text-embedding-3-small"
	}
	return m
}

// GenerationProvider returns the configured generation provider.
// Valid values: openai, mock
func GenerationProvider() string {
	p := os.Getenv("GENERATION_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

func floatVar(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func intVar(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// VectorWeight and GraphWeight control hybrid ranking. They must sum to 1.0;
// ValidateWeights is called at startup.
func VectorWeight() float64 {
	return floatVar("VECTOR_WEIGHT", 0.6)
}

func GraphWeight() float64 {
	return floatVar("GRAPH_WEIGHT", 0.4)
}

func ValidateWeights() error {
	sum := VectorWeight() + GraphWeight()
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("VECTOR_WEIGHT + GRAPH_WEIGHT must sum to 1.0, got %g", sum)
	}
	return nil
}

// ScoreThreshold is the minimum combined score a source must exceed to be
// retained by the synthesizer.
func ScoreThreshold() float64 {
	return floatVar("SCORE_THRESHOLD", 0.4)
}

// MaxSources caps the synthesized context bundle.
func MaxSources() int {
	return intVar("MAX_SOURCES", 8)
}

// ConversationWindow is how many recent turns the candor detector reads.
func ConversationWindow() int {
	return intVar("CONVERSATION_WINDOW", 10)
}

// RetrievalTimeout bounds each retrieval branch independently.
func RetrievalTimeout() time.Duration {
	ms := intVar("RETRIEVAL_TIMEOUT_MS", 2000)
	return time.Duration(ms) * time.Millisecond
}

// ReferenceTTL is how long cached external references stay servable.
func ReferenceTTL() time.Duration {
	days := intVar("REFERENCE_TTL_DAYS", 30)
	return time.Duration(days) * 24 * time.Hour
}

// Candor signal thresholds and lexical weights. Heuristic defaults; tunable,
// not derived.
func CandorRepetitionThreshold() float64 {
	return floatVar("CANDOR_REPETITION_THRESHOLD", 0.7)
}

func CandorAvoidanceThreshold() float64 {
	return floatVar("CANDOR_AVOIDANCE_THRESHOLD", 0.6)
}

func CandorValidationThreshold() float64 {
	return floatVar("CANDOR_VALIDATION_THRESHOLD", 0.7)
}

func CandorMisalignmentThreshold() float64 {
	return floatVar("CANDOR_MISALIGNMENT_THRESHOLD", 0.5)
}

func CandorAvoidanceWeight() float64 {
	return floatVar("CANDOR_AVOIDANCE_WEIGHT", 0.2)
}

func CandorValidationWeight() float64 {
	return floatVar("CANDOR_VALIDATION_WEIGHT", 0.25)
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
