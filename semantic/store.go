package semantic

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/viant/brain/knowledge"
	"github.com/viant/brain/vector"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Get(ctx context.Context, in *pb.GetPoints, opts ...grpc.CallOption) (*pb.GetResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
}

type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Get(ctx context.Context, in *pb.GetCollectionInfoRequest, opts ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Options configures a Store.
type Options struct {
	Addr       string
	Collection string
	Model      string
	Dimension  int
	Metric     vector.Metric
}

// Store is a knowledge.Store backed by Qdrant.
type Store struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	opts        Options
}

// New creates a Store connected to Qdrant at opts.Addr. Call EnsureCollection
// before use.
func New(opts Options) (*Store, error) {
	conn, err := grpc.NewClient(opts.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", opts.Addr, err)
	}
	s := NewWithClients(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), opts)
	s.conn = conn
	return s, nil
}

// NewWithClients creates a Store from pre-built clients.
func NewWithClients(points pointsAPI, collections collectionsAPI, opts Options) *Store {
	if opts.Collection == "" {
		opts.Collection = knowledge.DefaultCollection
	}
	if opts.Metric == "" {
		opts.Metric = vector.Cosine
	}
	return &Store{points: points, collections: collections, opts: opts}
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Store) Dimension() int { return s.opts.Dimension }

func (s *Store) distance() pb.Distance {
	if s.opts.Metric == vector.L2 {
		return pb.Distance_Euclid
	}
	return pb.Distance_Cosine
}

// EnsureCollection creates the collection if it doesn't exist and verifies
// the vector size of an existing one.
func (s *Store) EnsureCollection(ctx context.Context) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return knowledge.Unavailable("list collections", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() != s.opts.Collection {
			continue
		}
		info, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: s.opts.Collection})
		if err != nil {
			return knowledge.Unavailable("collection info", err)
		}
		size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if int(size) != s.opts.Dimension {
			return fmt.Errorf("%w: collection %s has size %d, want %d", knowledge.ErrDimensionMismatch, s.opts.Collection, size, s.opts.Dimension)
		}
		return nil
	}
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.opts.Collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.opts.Dimension),
					Distance: s.distance(),
				},
			},
		},
	})
	if err != nil {
		return knowledge.Unavailable("create collection "+s.opts.Collection, err)
	}
	return nil
}

// Insert implements knowledge.Store.
func (s *Store) Insert(ctx context.Context, entry knowledge.Entry, embedding []float32) (string, error) {
	if err := vector.CheckDimension(embedding, s.opts.Dimension); err != nil {
		return "", err
	}
	id := uuid.NewString()
	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.opts.Collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: embedding}}},
			Payload: s.payload(entry),
		}},
	})
	if err != nil {
		return "", knowledge.Unavailable("upsert", err)
	}
	return id, nil
}

// Query implements knowledge.Store. Scores are converted to distances.
func (s *Store) Query(ctx context.Context, vec []float32, k int) ([]knowledge.Neighbor, error) {
	if err := vector.CheckDimension(vec, s.opts.Dimension); err != nil {
		return nil, err
	}
	if k < 1 {
		k = 1
	}
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.opts.Collection,
		Vector:         vec,
		Limit:          uint64(k),
	})
	if err != nil {
		return nil, knowledge.Unavailable("search", err)
	}
	out := make([]knowledge.Neighbor, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		out = append(out, knowledge.Neighbor{ID: r.GetId().GetUuid(), Distance: s.toDistance(r.GetScore())})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Distance < out[b].Distance })
	return out, nil
}

func (s *Store) toDistance(score float32) float64 {
	if s.opts.Metric == vector.L2 {
		return float64(score)
	}
	return 1 - float64(score)
}

// Get implements knowledge.Store.
func (s *Store) Get(ctx context.Context, id string) (*knowledge.Note, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", knowledge.ErrNotFound, id)
	}
	resp, err := s.points.Get(ctx, &pb.GetPoints{
		CollectionName: s.opts.Collection,
		Ids:            []*pb.PointId{{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}},
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, knowledge.Unavailable("get", err)
	}
	if len(resp.GetResult()) == 0 {
		return nil, fmt.Errorf("%w: %s", knowledge.ErrNotFound, id)
	}
	p := resp.GetResult()[0]
	return noteFromPayload(p.GetId().GetUuid(), p.GetPayload(), p.GetVectors().GetVector().GetData()), nil
}

// Count implements knowledge.Store.
func (s *Store) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{CollectionName: s.opts.Collection, Exact: &exact})
	if err != nil {
		return 0, knowledge.Unavailable("count", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

var _ knowledge.Store = (*Store)(nil)

// payload keys
const (
	keyProblem     = "problem"
	keySolution    = "solution"
	keyExplanation = "explanation"
	keyTags        = "tags"
	keyContent     = "content"
	keyModel       = "model"
	keyCreatedAt   = "created_at"
)

func (s *Store) payload(e knowledge.Entry) map[string]*pb.Value {
	tags := make([]*pb.Value, len(e.Tags))
	for i, t := range e.Tags {
		tags[i] = stringValue(t)
	}
	return map[string]*pb.Value{
		keyProblem:     stringValue(e.Problem),
		keySolution:    stringValue(e.Solution),
		keyExplanation: stringValue(e.Explanation),
		keyTags:        {Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: tags}}},
		keyContent:     stringValue(e.Content),
		keyModel:       stringValue(s.opts.Model),
		keyCreatedAt:   stringValue(time.Now().UTC().Format(time.RFC3339Nano)),
	}
}

func stringValue(v string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
}

func noteFromPayload(id string, payload map[string]*pb.Value, vec []float32) *knowledge.Note {
	n := &knowledge.Note{ID: id, Embedding: vec}
	n.Problem = payload[keyProblem].GetStringValue()
	n.Solution = payload[keySolution].GetStringValue()
	n.Explanation = payload[keyExplanation].GetStringValue()
	n.Content = payload[keyContent].GetStringValue()
	n.Model = payload[keyModel].GetStringValue()
	n.CreatedAt, _ = time.Parse(time.RFC3339Nano, payload[keyCreatedAt].GetStringValue())
	n.Tags = []string{}
	for _, v := range payload[keyTags].GetListValue().GetValues() {
		n.Tags = append(n.Tags, v.GetStringValue())
	}
	return n
}
