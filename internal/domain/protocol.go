package domain

import "fmt"

// Protocol identifies a context-feeding strategy.
type Protocol string

const (
	// ProtocolRaw feeds the whole document in a single model call.
	ProtocolRaw Protocol = "raw"
	// ProtocolChain processes overlapping sequential chunks, then aggregates.
	ProtocolChain Protocol = "chain"
	// ProtocolTree processes disjoint branches concurrently, then aggregates.
	ProtocolTree Protocol = "tree"
	// ProtocolRAG retrieves the most similar indexed fragments as context.
	ProtocolRAG Protocol = "rag"
)

// Protocols lists every supported protocol in catalog order.
func Protocols() []Protocol {
	return []Protocol{ProtocolRaw, ProtocolChain, ProtocolTree, ProtocolRAG}
}

// ParseProtocol validates a protocol name against the closed set.
func ParseProtocol(name string) (Protocol, error) {
	switch p := Protocol(name); p {
	case ProtocolRaw, ProtocolChain, ProtocolTree, ProtocolRAG:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProtocol, name)
	}
}

// ProtocolInfo describes one catalog entry for the info endpoint.
type ProtocolInfo struct {
	Name        Protocol `json:"name"`
	Description string   `json:"description"`
	ConfigKeys  []string `json:"config_keys"`
}

// Catalog returns the static protocol catalog.
func Catalog() []ProtocolInfo {
	return []ProtocolInfo{
		{
			Name:        ProtocolRaw,
			Description: "Single model call over the full document",
			ConfigKeys:  []string{"max_tokens", "temperature"},
		},
		{
			Name:        ProtocolChain,
			Description: "Sequential overlapping chunks with a final aggregation call",
			ConfigKeys:  []string{"chunk_size", "overlap", "max_tokens"},
		},
		{
			Name:        ProtocolTree,
			Description: "Concurrent disjoint branches joined by an aggregation call",
			ConfigKeys:  []string{"branch_factor", "max_depth", "aggregation_method"},
		},
		{
			Name:        ProtocolRAG,
			Description: "Retrieval-augmented generation over indexed fragments",
			ConfigKeys:  []string{"top_k", "similarity_threshold", "embedding_model"},
		},
	}
}
