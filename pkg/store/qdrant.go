package store

import (
	"context"
	"fmt"
	"log/slog"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/xhad/research/internal/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantStore keeps records in a Qdrant collection over gRPC.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dims        int
	batchSize   int
	log         *slog.Logger
}

func openQdrant(ctx context.Context, config VectorStoreConfig, create bool) (*QdrantStore, error) {
	conn, err := grpc.NewClient(config.QdrantAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial qdrant %s: %w", config.QdrantAddr, err)
	}

	q := &QdrantStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  config.Collection,
		dims:        config.VectorDim,
		batchSize:   config.BatchSize,
		log:         config.Logger.With("component", "store", "backend", "qdrant"),
	}

	exists, err := q.exists(ctx)
	if err == nil && !exists {
		if create {
			err = q.createCollection(ctx)
		} else {
			err = ErrStoreNotInitialized
		}
	}
	if err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

func (q *QdrantStore) exists(ctx context.Context) (bool, error) {
	list, err := q.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("list qdrant collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == q.collection {
			return true, nil
		}
	}
	return false, nil
}

func (q *QdrantStore) createCollection(ctx context.Context) error {
	_, err := q.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(q.dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create qdrant collection %s: %w", q.collection, err)
	}
	q.log.Debug("created collection", "collection", q.collection, "dims", q.dims)
	return nil
}

func (q *QdrantStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	wait := true
	for start := 0; start < len(records); start += q.batchSize {
		end := min(start+q.batchSize, len(records))

		points := make([]*pb.PointStruct, 0, end-start)
		for _, r := range records[start:end] {
			points = append(points, &pb.PointStruct{
				Id: &pb.PointId{
					PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID},
				},
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{
						Vector: &pb.Vector{Data: r.Embedding},
					},
				},
				Payload: map[string]*pb.Value{
					"content": stringValue(sanitizeUTF8(r.Chunk.Content)),
					"source":  stringValue(r.Chunk.Source),
					"title":   stringValue(sanitizeUTF8(r.Chunk.Title)),
					"index":   intValue(r.Chunk.Index),
					"offset":  intValue(r.Chunk.Offset),
				},
			})
		}

		_, err := q.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: q.collection,
			Wait:           &wait,
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("upsert %d points: %w", len(points), err)
		}
	}
	return nil
}

func (q *QdrantStore) Search(ctx context.Context, embedding []float32, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	resp, err := q.points.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collection,
		Vector:         embedding,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	chunks := make([]models.ScoredChunk, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		p := r.GetPayload()
		chunks[i] = models.ScoredChunk{
			Chunk: models.Chunk{
				Content: p["content"].GetStringValue(),
				Source:  p["source"].GetStringValue(),
				Title:   p["title"].GetStringValue(),
				Index:   int(p["index"].GetIntegerValue()),
				Offset:  int(p["offset"].GetIntegerValue()),
			},
			Score: r.GetScore(),
		}
	}
	return chunks, nil
}

func (q *QdrantStore) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := q.points.Count(ctx, &pb.CountPoints{
		CollectionName: q.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Reset deletes and recreates the collection.
func (q *QdrantStore) Reset(ctx context.Context) error {
	_, err := q.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: q.collection})
	if err != nil {
		return fmt.Errorf("delete qdrant collection %s: %w", q.collection, err)
	}
	return q.createCollection(ctx)
}

func (q *QdrantStore) Close() error {
	return q.conn.Close()
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func intValue(n int) *pb.Value {
	return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(n)}}
}
