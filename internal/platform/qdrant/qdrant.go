package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

func New(ctx context.Context, host string, port int, apiKey string) (*qdrant.Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := client.ListCollections(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping qdrant failed: %w", err)
	}

	return client, nil
}

// EnsureCollection creates the cosine-distance collection if it does not
// exist yet. The dimension must match what the embedding model produces.
func EnsureCollection(ctx context.Context, client *qdrant.Client, name string, dimension uint64) error {
	existing, err := client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list qdrant collections failed: %w", err)
	}
	for _, collection := range existing {
		if collection == name {
			return nil
		}
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create qdrant collection %s failed: %w", name, err)
	}
	return nil
}
