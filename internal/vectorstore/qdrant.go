package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/fieldnotes-ai/recall/internal/config"
	"github.com/fieldnotes-ai/recall/internal/models"
)

// collectionPrefix namespaces per-user collections.
const collectionPrefix = "recall_"

// Qdrant implements Store against a Qdrant deployment.
type Qdrant struct {
	client    *qdrant.Client
	dimension uint64
}

// NewQdrant connects to Qdrant over gRPC.
func NewQdrant(cfg config.Config) (*Qdrant, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		APIKey: cfg.QdrantAPIKey,
		UseTLS: cfg.QdrantTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	return &Qdrant{
		client:    client,
		dimension: uint64(cfg.EmbedDimension),
	}, nil
}

// Close releases the underlying gRPC connection.
func (q *Qdrant) Close() error {
	return q.client.Close()
}

// CollectionName returns the collection holding a user's points.
func CollectionName(userID string) string {
	return collectionPrefix + userID
}

// EnsureCollection idempotently creates the user's collection (cosine
// distance) and its payload indexes. Index creation is advisory: failures
// are logged and swallowed, they only cost filter performance.
func (q *Qdrant) EnsureCollection(ctx context.Context, userID string) error {
	name := CollectionName(userID)

	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}

	if !exists {
		err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     q.dimension,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		slog.Info("created vector collection", "collection", name, "dimension", q.dimension)
	}

	q.ensurePayloadIndexes(ctx, name)
	return nil
}

// payloadIndexes lists the fields filtered on at query time.
var payloadIndexes = []struct {
	field string
	kind  qdrant.FieldType
}{
	{"userId", qdrant.FieldType_FieldTypeKeyword},
	{"keywords", qdrant.FieldType_FieldTypeKeyword},
	{"createdAt", qdrant.FieldType_FieldTypeDatetime},
	{"sourceDate", qdrant.FieldType_FieldTypeDatetime},
}

func (q *Qdrant) ensurePayloadIndexes(ctx context.Context, collection string) {
	for _, idx := range payloadIndexes {
		_, err := q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: collection,
			FieldName:      idx.field,
			FieldType:      idx.kind.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			slog.Warn("payload index creation failed", "collection", collection, "field", idx.field, "error", err)
		}
	}
}

// CollectionExists reports whether the user's collection exists.
func (q *Qdrant) CollectionExists(ctx context.Context, userID string) (bool, error) {
	return q.client.CollectionExists(ctx, CollectionName(userID))
}

// Upsert writes points with wait=true so they are visible to subsequent
// reads when this returns.
func (q *Qdrant) Upsert(ctx context.Context, userID string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	pts := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		pts[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(payloadToMap(p.Payload)),
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: CollectionName(userID),
		Wait:           qdrant.PtrOf(true),
		Points:         pts,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Query runs a vector-similarity search.
func (q *Qdrant) Query(ctx context.Context, userID string, vector []float32, filter *Filter, limit int) ([]models.SearchResult, error) {
	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName(userID),
		Query:          qdrant.NewQuery(vector...),
		Filter:         buildFilter(filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	results := make([]models.SearchResult, 0, len(scored))
	for _, p := range scored {
		results = append(results, models.SearchResult{
			ID:      p.GetId().GetNum(),
			Score:   float64(p.GetScore()),
			Payload: payloadFromValues(p.GetPayload()),
		})
	}
	return results, nil
}

// Scroll filter-scans points without similarity ordering.
func (q *Qdrant) Scroll(ctx context.Context, userID string, filter *Filter, limit int) ([]models.SearchResult, error) {
	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: CollectionName(userID),
		Filter:         buildFilter(filter),
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("scroll: %w", err)
	}

	results := make([]models.SearchResult, 0, len(points))
	for _, p := range points {
		results = append(results, models.SearchResult{
			ID:      p.GetId().GetNum(),
			Payload: payloadFromValues(p.GetPayload()),
		})
	}
	return results, nil
}

// buildFilter translates the domain filter into Qdrant conditions. The
// temporal range prefers the original source date over processing time.
func buildFilter(f *Filter) *qdrant.Filter {
	if f == nil {
		return nil
	}

	var must []*qdrant.Condition
	if f.UserID != "" {
		must = append(must, qdrant.NewMatch("userId", f.UserID))
	}
	if len(f.KeywordsAny) > 0 {
		must = append(must, qdrant.NewMatchKeywords("keywords", f.KeywordsAny...))
	}
	if f.Temporal != nil && (f.Temporal.Start != nil || f.Temporal.End != nil) {
		r := &qdrant.DatetimeRange{}
		if f.Temporal.Start != nil {
			r.Gte = timestamppb.New(*f.Temporal.Start)
		}
		if f.Temporal.End != nil {
			r.Lte = timestamppb.New(*f.Temporal.End)
		}
		must = append(must, qdrant.NewDatetimeRange("sourceDate", r))
	}

	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func payloadToMap(p models.Payload) map[string]any {
	m := map[string]any{
		"text":       p.Text,
		"jobId":      p.JobID,
		"userId":     p.UserID,
		"modality":   p.Modality,
		"chunkIndex": int64(p.ChunkIndex),
		"tokenCount": int64(p.TokenCount),
		"keywords":   toAnySlice(p.Keywords),
		"speakers":   toAnySlice(p.Speakers),
		"topics":     toAnySlice(p.Topics),
		"createdAt":  p.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if p.Speaker != "" {
		m["speaker"] = p.Speaker
	}
	if p.Summary != "" {
		m["summary"] = p.Summary
	}
	if p.SourceName != "" {
		m["sourceName"] = p.SourceName
	}
	if p.SourceDate != nil {
		m["sourceDate"] = p.SourceDate.UTC().Format(time.RFC3339Nano)
	}
	return m
}

func payloadFromValues(values map[string]*qdrant.Value) models.Payload {
	p := models.Payload{
		Text:       values["text"].GetStringValue(),
		JobID:      values["jobId"].GetStringValue(),
		UserID:     values["userId"].GetStringValue(),
		Modality:   values["modality"].GetStringValue(),
		ChunkIndex: int(values["chunkIndex"].GetIntegerValue()),
		TokenCount: int(values["tokenCount"].GetIntegerValue()),
		Keywords:   fromListValue(values["keywords"]),
		Speakers:   fromListValue(values["speakers"]),
		Speaker:    values["speaker"].GetStringValue(),
		Summary:    values["summary"].GetStringValue(),
		Topics:     fromListValue(values["topics"]),
		SourceName: values["sourceName"].GetStringValue(),
	}

	// Unparseable dates are dropped rather than propagated.
	if t, err := time.Parse(time.RFC3339Nano, values["createdAt"].GetStringValue()); err == nil {
		p.CreatedAt = t
	}
	if s := values["sourceDate"].GetStringValue(); s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			p.SourceDate = &t
		}
	}
	return p
}

func toAnySlice(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

func fromListValue(v *qdrant.Value) []string {
	list := v.GetListValue()
	if list == nil {
		return nil
	}
	out := make([]string, 0, len(list.Values))
	for _, item := range list.Values {
		if s := item.GetStringValue(); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
