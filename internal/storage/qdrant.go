package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/bge-search/internal/history"
)

// HistoryCollection is the Qdrant collection holding search history points.
const HistoryCollection = "search_history"

// historyNamespace seeds the deterministic point IDs of history entries.
var historyNamespace = uuid.MustParse("6f1c2a4e-5b7d-4c1e-9a3f-2d8e0b6c4a91")

// QdrantStore keeps the history as payload-only points in Qdrant, so a
// fleet of servers can share one history.
type QdrantStore struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewQdrantStore creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStore(host string, port int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &QdrantStore{
		client: client,
		host:   host,
		port:   port,
	}

	ctx := context.Background()
	if err := store.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return store, nil
}

// newBackoff returns the retry policy shared by health checks and writes.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(newBackoff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the history collection and its payload index if
// missing. Idempotent - safe to call multiple times.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, HistoryCollection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	// History points carry no vectors.
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: HistoryCollection,
		VectorsConfig:  qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: HistoryCollection,
		FieldName:      "type",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field type: %w", err)
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Load scrolls through every history point and returns them in saved order.
func (s *QdrantStore) Load(ctx context.Context) ([]history.Entry, error) {
	type positioned struct {
		pos   int64
		entry history.Entry
	}

	var (
		out       []positioned
		offset    *qdrant.PointId
		batchSize = uint32(100)
	)
	for {
		results, next, err := s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: HistoryCollection,
			Filter: &qdrant.Filter{
				Must: []*qdrant.Condition{qdrant.NewMatch("type", "history")},
			},
			Limit:       qdrant.PtrOf(batchSize),
			Offset:      offset,
			WithPayload: qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll history: %w", err)
		}

		for _, point := range results {
			p := point.Payload
			entry := history.Entry{
				Query:           p["query"].GetStringValue(),
				Frequency:       int(p["frequency"].GetIntegerValue()),
				LastResultCount: int(p["last_result_count"].GetIntegerValue()),
			}
			// Zero time if parse fails
			entry.FirstSeen, _ = time.Parse(time.RFC3339Nano, p["first_seen"].GetStringValue())
			entry.LastSeen, _ = time.Parse(time.RFC3339Nano, p["last_seen"].GetStringValue())
			out = append(out, positioned{pos: p["position"].GetIntegerValue(), entry: entry})
		}

		// next is the first point of the following page, nil after the last one
		if next == nil {
			break
		}
		offset = next
	}

	slices.SortFunc(out, func(a, b positioned) int { return int(a.pos - b.pos) })
	entries := make([]history.Entry, len(out))
	for i, p := range out {
		entries[i] = p.entry
	}
	return entries, nil
}

// Save upserts every entry and deletes points for evicted queries.
func (s *QdrantStore) Save(ctx context.Context, entries []history.Entry) error {
	points := make([]*qdrant.PointStruct, len(entries))
	ids := make([]*qdrant.PointId, len(entries))
	for i, e := range entries {
		ids[i] = qdrant.NewIDUUID(historyPointID(e.Query))
		points[i] = &qdrant.PointStruct{
			Id:      ids[i],
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{}),
			Payload: qdrant.NewValueMap(map[string]any{
				"type":              "history",
				"query":             e.Query,
				"frequency":         e.Frequency,
				"first_seen":        e.FirstSeen.UTC().Format(time.RFC3339Nano),
				"last_seen":         e.LastSeen.UTC().Format(time.RFC3339Nano),
				"last_result_count": e.LastResultCount,
				"position":          i,
			}),
		}
	}

	if len(points) > 0 {
		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert history: %w", err)
		}
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch("type", "history")},
	}
	if len(ids) > 0 {
		filter.MustNot = []*qdrant.Condition{qdrant.NewHasID(ids...)}
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: HistoryCollection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return fmt.Errorf("failed to delete evicted history: %w", err)
	}
	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: HistoryCollection,
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(newBackoff(), ctx))
}

// historyPointID derives a stable point ID from the case-insensitive query.
func historyPointID(query string) string {
	return uuid.NewSHA1(historyNamespace, []byte(strings.ToLower(query))).String()
}
