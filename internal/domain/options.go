package domain

import (
	"fmt"
	"math"
)

// Default option values per protocol.
const (
	DefaultMaxTokens           = 500
	DefaultTemperature         = 0.7
	DefaultChunkSize           = 1000
	DefaultOverlap             = 100
	DefaultBranchFactor        = 3
	DefaultMaxDepth            = 1
	DefaultTopK                = 5
	DefaultSimilarityThreshold = 0.7
)

// AggregationMethod labels how a tree aggregation call combines branch outputs.
// The label is forwarded to the model verbatim; no client-side logic differs per method.
type AggregationMethod string

const (
	// AggregationSynthesis asks the model to synthesize branch outputs.
	AggregationSynthesis AggregationMethod = "synthesis"
	// AggregationVoting asks the model to pick the majority view.
	AggregationVoting AggregationMethod = "voting"
	// AggregationWeighted asks the model to weight branches by relevance.
	AggregationWeighted AggregationMethod = "weighted"
)

// RawOptions configures the raw protocol.
type RawOptions struct {
	MaxTokens   int
	Temperature float64
}

// ChainOptions configures the chain protocol.
type ChainOptions struct {
	ChunkSize int
	Overlap   int
	MaxTokens int
}

// TreeOptions configures the tree protocol.
type TreeOptions struct {
	BranchFactor      int
	MaxDepth          int
	AggregationMethod AggregationMethod
}

// RAGOptions configures the rag protocol.
type RAGOptions struct {
	TopK                int
	SimilarityThreshold float64
	EmbeddingModel      string
}

// ParseRawOptions reads raw protocol options, applying defaults.
func ParseRawOptions(opts map[string]any) (RawOptions, error) {
	o := RawOptions{MaxTokens: DefaultMaxTokens, Temperature: DefaultTemperature}

	var err error
	if o.MaxTokens, err = intOption(opts, "max_tokens", o.MaxTokens); err != nil {
		return RawOptions{}, err
	}
	if o.Temperature, err = floatOption(opts, "temperature", o.Temperature); err != nil {
		return RawOptions{}, err
	}

	if o.MaxTokens <= 0 {
		return RawOptions{}, fmt.Errorf("%w: max_tokens must be positive", ErrInvalidConfig)
	}
	if o.Temperature < 0 || o.Temperature > 2 {
		return RawOptions{}, fmt.Errorf("%w: temperature must be in [0,2]", ErrInvalidConfig)
	}
	return o, nil
}

// ParseChainOptions reads chain protocol options, applying defaults.
// A window no larger than its overlap would never advance, so that combination
// is rejected here, before any model call is made.
func ParseChainOptions(opts map[string]any) (ChainOptions, error) {
	o := ChainOptions{ChunkSize: DefaultChunkSize, Overlap: DefaultOverlap, MaxTokens: DefaultMaxTokens}

	var err error
	if o.ChunkSize, err = intOption(opts, "chunk_size", o.ChunkSize); err != nil {
		return ChainOptions{}, err
	}
	if o.Overlap, err = intOption(opts, "overlap", o.Overlap); err != nil {
		return ChainOptions{}, err
	}
	if o.MaxTokens, err = intOption(opts, "max_tokens", o.MaxTokens); err != nil {
		return ChainOptions{}, err
	}

	if o.ChunkSize <= 0 {
		return ChainOptions{}, fmt.Errorf("%w: chunk_size must be positive", ErrInvalidConfig)
	}
	if o.Overlap < 0 {
		return ChainOptions{}, fmt.Errorf("%w: overlap must not be negative", ErrInvalidConfig)
	}
	if o.ChunkSize <= o.Overlap {
		return ChainOptions{}, fmt.Errorf("%w: chunk_size must exceed overlap", ErrInvalidConfig)
	}
	if o.MaxTokens <= 0 {
		return ChainOptions{}, fmt.Errorf("%w: max_tokens must be positive", ErrInvalidConfig)
	}
	return o, nil
}

// ParseTreeOptions reads tree protocol options, applying defaults.
func ParseTreeOptions(opts map[string]any) (TreeOptions, error) {
	o := TreeOptions{
		BranchFactor:      DefaultBranchFactor,
		MaxDepth:          DefaultMaxDepth,
		AggregationMethod: AggregationSynthesis,
	}

	var err error
	if o.BranchFactor, err = intOption(opts, "branch_factor", o.BranchFactor); err != nil {
		return TreeOptions{}, err
	}
	if o.MaxDepth, err = intOption(opts, "max_depth", o.MaxDepth); err != nil {
		return TreeOptions{}, err
	}
	method, err := stringOption(opts, "aggregation_method", string(o.AggregationMethod))
	if err != nil {
		return TreeOptions{}, err
	}
	o.AggregationMethod = AggregationMethod(method)

	if o.BranchFactor < 1 {
		return TreeOptions{}, fmt.Errorf("%w: branch_factor must be at least 1", ErrInvalidConfig)
	}
	if o.MaxDepth < 1 {
		return TreeOptions{}, fmt.Errorf("%w: max_depth must be at least 1", ErrInvalidConfig)
	}
	switch o.AggregationMethod {
	case AggregationSynthesis, AggregationVoting, AggregationWeighted:
	default:
		return TreeOptions{}, fmt.Errorf("%w: unknown aggregation_method %q", ErrInvalidConfig, method)
	}
	return o, nil
}

// ParseRAGOptions reads rag protocol options, applying defaults.
func ParseRAGOptions(opts map[string]any) (RAGOptions, error) {
	o := RAGOptions{TopK: DefaultTopK, SimilarityThreshold: DefaultSimilarityThreshold}

	var err error
	if o.TopK, err = intOption(opts, "top_k", o.TopK); err != nil {
		return RAGOptions{}, err
	}
	if o.SimilarityThreshold, err = floatOption(opts, "similarity_threshold", o.SimilarityThreshold); err != nil {
		return RAGOptions{}, err
	}
	if o.EmbeddingModel, err = stringOption(opts, "embedding_model", ""); err != nil {
		return RAGOptions{}, err
	}

	if o.TopK < 1 {
		return RAGOptions{}, fmt.Errorf("%w: top_k must be at least 1", ErrInvalidConfig)
	}
	if o.SimilarityThreshold < 0 || o.SimilarityThreshold > 1 {
		return RAGOptions{}, fmt.Errorf("%w: similarity_threshold must be in [0,1]", ErrInvalidConfig)
	}
	return o, nil
}

// ValidateOptions parses the options for the given protocol and discards the result.
// Used to reject bad configuration before any protocol in a batch executes.
func ValidateOptions(p Protocol, opts map[string]any) error {
	var err error
	switch p {
	case ProtocolRaw:
		_, err = ParseRawOptions(opts)
	case ProtocolChain:
		_, err = ParseChainOptions(opts)
	case ProtocolTree:
		_, err = ParseTreeOptions(opts)
	case ProtocolRAG:
		_, err = ParseRAGOptions(opts)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownProtocol, p)
	}
	return err
}

// intOption reads an integer option. JSON numbers decode as float64, so
// integral floats are accepted; fractional values are not.
func intOption(opts map[string]any, key string, def int) (int, error) {
	v, ok := opts[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidConfig, key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidConfig, key, v)
	}
}

func floatOption(opts map[string]any, key string, def float64) (float64, error) {
	v, ok := opts[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidConfig, key, v)
	}
}

func stringOption(opts map[string]any, key, def string) (string, error) {
	v, ok := opts[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidConfig, key, v)
	}
	return s, nil
}
