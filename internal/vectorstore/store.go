// Package vectorstore holds embedded chunks and answers document-scoped
// nearest-neighbour queries. Every Store commits an AddBatch call as a whole.
package vectorstore

import (
	"context"
	"errors"
	"math"
	"sort"
)

// ErrDimensionMismatch is returned when a query vector and a stored vector differ in length.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Record is one embedded chunk.
type Record struct {
	ID         string            `json:"id" bson:"chunk_id"`
	DocumentID string            `json:"document_id" bson:"document_id"`
	Text       string            `json:"text" bson:"text"`
	Page       int               `json:"page" bson:"page"`
	Ordinal    int               `json:"ordinal" bson:"ordinal"`
	Metadata   map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Vector     []float32         `json:"vector" bson:"vector"`
}

// Match is a Record with its cosine distance to the query vector.
type Match struct {
	Record   Record
	Distance float64
}

// Store persists records and searches them per document.
type Store interface {
	// AddBatch durably stores all records under documentID, or none of them.
	AddBatch(ctx context.Context, documentID string, records []Record) error
	// Query returns up to k records of documentID, closest first.
	// Equal distances keep insertion order.
	Query(ctx context.Context, documentID string, vector []float32, k int) ([]Match, error)
	// DeleteDocument drops every record of documentID.
	DeleteDocument(ctx context.Context, documentID string) error
	Close(ctx context.Context) error
}

// candidate carries the insertion position used to break distance ties.
type candidate struct {
	record   Record
	batchSeq int64
	position int
}

// rank scores candidates against vector and keeps the k closest.
func rank(cands []candidate, vector []float32, k int) ([]Match, error) {
	type scored struct {
		candidate
		distance float64
	}

	all := make([]scored, 0, len(cands))
	for _, c := range cands {
		d, err := CosineDistance(vector, c.record.Vector)
		if err != nil {
			return nil, err
		}
		all = append(all, scored{candidate: c, distance: d})
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].distance != all[j].distance {
			return all[i].distance < all[j].distance
		}
		if all[i].batchSeq != all[j].batchSeq {
			return all[i].batchSeq < all[j].batchSeq
		}
		return all[i].position < all[j].position
	})

	if k > 0 && len(all) > k {
		all = all[:k]
	}

	out := make([]Match, len(all))
	for i, s := range all {
		out[i] = Match{Record: s.record, Distance: s.distance}
	}
	return out, nil
}

// CosineDistance returns 1 - cos(a, b), in [0, 2]. Zero vectors are at distance 1.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1, nil
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
}
