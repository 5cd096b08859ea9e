package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/protobench/internal/db"
)

const (
	fragIndexName = "protobench:frag_idx"
	fragKeyPrefix = "protobench:frag:"
)

// EnsureVectorIndex creates the fragment FT index if it does not exist yet.
// The index covers hashes under fragKeyPrefix with a FLAT cosine vector field.
func (s *Store) EnsureVectorIndex(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("vector dimensions must be positive")
	}

	args := []string{
		fragIndexName,
		"ON", "HASH",
		"PREFIX", "1", fragKeyPrefix,
		"SCHEMA",
		"vector", "VECTOR", "FLAT", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(dimensions),
		"DISTANCE_METRIC", "COSINE",
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// VectorSet stores one embedded fragment as a hash.
func (s *Store) VectorSet(ctx context.Context, id, text string, vector []float32) error {
	cmd := s.b().Hset().Key(fragKeyPrefix + id).FieldValue().
		FieldValue("text", text).
		FieldValue("vector", vectorToBytes(vector)).
		Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// VectorSearch runs a KNN query via FT.SEARCH and returns matches ordered by
// decreasing similarity.
func (s *Store) VectorSearch(ctx context.Context, vector []float32, topK int) ([]db.VectorMatch, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	queryStr := fmt.Sprintf("*=>[KNN %d @vector $BLOB]", topK)
	args := []string{
		fragIndexName, queryStr,
		"RETURN", "2", "text", "__vector_score",
		"SORTBY", "__vector_score",
		"PARAMS", "2", "BLOB", vectorToBytes(vector),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(raw)
}

// VectorDel removes a stored fragment by id. Missing ids are not an error.
func (s *Store) VectorDel(ctx context.Context, id string) error {
	cmd := s.b().Del().Key(fragKeyPrefix + id).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// parseKNNResult converts the RESP2 FT.SEARCH reply into matches.
// Layout is 2-stride: [total, key1, fields1, key2, fields2, ...].
func parseKNNResult(raw []rueidis.RedisMessage) ([]db.VectorMatch, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	matches := make([]db.VectorMatch, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fieldArr, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		fields := parseFieldPairs(fieldArr)

		m := db.VectorMatch{
			ID:   strings.TrimPrefix(key, fragKeyPrefix),
			Text: fields["text"],
		}
		if scoreStr, ok := fields["__vector_score"]; ok {
			if dist, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				m.Similarity = max(0, 1.0-dist) // cosine distance → similarity, clamped
			}
		}
		matches = append(matches, m)
	}

	return matches, nil
}

func parseFieldPairs(arr []rueidis.RedisMessage) map[string]string {
	fields := make(map[string]string, len(arr)/2)
	for i := 0; i+1 < len(arr); i += 2 {
		k, err := arr[i].ToString()
		if err != nil {
			continue
		}
		v, err := arr[i+1].ToString()
		if err != nil {
			continue
		}
		fields[k] = v
	}
	return fields
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
