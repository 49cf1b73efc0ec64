package vectorindex

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Hit is one retrieved chunk, ordered by descending similarity.
type Hit struct {
	Text  string
	Score float32
}

// QdrantIndex stores chunk vectors in a single collection partitioned by a
// "namespace" payload field. Namespaces exist implicitly: the first upsert
// creates one, and querying an unknown namespace returns no hits.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
}

func NewQdrantIndex(client *qdrant.Client, collection string) *QdrantIndex {
	return &QdrantIndex{client: client, collection: collection}
}

// Upsert writes (vector, text) points under the namespace; each point
// records its ordinal within texts. The write waits for the index to apply
// it, so a returned nil means the chunks are queryable.
func (ix *QdrantIndex) Upsert(ctx context.Context, namespace string, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("texts and vectors length mismatch: %d vs %d", len(texts), len(vectors))
	}
	if len(texts) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(texts))
	for i := range texts {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.NewString()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"namespace": namespace,
				"text":      texts[i],
				"chunk":     i,
			}),
		}
	}

	wait := true
	_, err := ix.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: ix.collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("upsert points failed: %w", err)
	}
	return nil
}

// Query returns the top-k most similar chunks within the namespace.
func (ix *QdrantIndex) Query(ctx context.Context, namespace string, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		k = 4
	}
	limit := uint64(k)

	scored, err := ix.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: ix.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("namespace", namespace),
			},
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query points failed: %w", err)
	}

	hits := make([]Hit, 0, len(scored))
	for _, point := range scored {
		payload := point.GetPayload()
		if payload == nil {
			continue
		}
		text := ""
		if v, ok := payload["text"]; ok {
			text = v.GetStringValue()
		}
		hits = append(hits, Hit{Text: text, Score: point.GetScore()})
	}
	return hits, nil
}

// DeleteNamespace removes every point carrying the namespace.
func (ix *QdrantIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	_, err := ix.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: ix.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("namespace", namespace),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete namespace %s failed: %w", namespace, err)
	}
	return nil
}
