// Package sink persists a finished run's scores and graph, either as a
// plain CSV score file or, optionally, as a document in MongoDB (spec
// §5.4), grounded on the teacher's bson-tagged graph serialization format
// (pkg/graph.Node/Edge).
package sink

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/series2gpp/s2gpp-go/pkg/s2g/store"
	"github.com/series2gpp/s2gpp-go/pkg/s2gerr"
)

// WriteCSV writes one float score per line, no header, to path.
func WriteCSV(path string, scores []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return s2gerr.Wrap(s2gerr.ErrCodeIO, err, "creating score output %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, s := range scores {
		if _, err := w.WriteString(strconv.FormatFloat(s, 'f', -1, 64) + "\n"); err != nil {
			return s2gerr.Wrap(s2gerr.ErrCodeIO, err, "writing score output %s", path)
		}
	}
	return w.Flush()
}

// GraphNode mirrors the teacher's graph.Node shape, relabelled for a
// segment/cluster graph, carrying the same bson tags so it persists the
// same way.
type GraphNode struct {
	ID      string `json:"id" bson:"id"`
	Segment int    `json:"segment" bson:"segment"`
	Cluster int    `json:"cluster" bson:"cluster"`
}

// GraphEdge mirrors the teacher's graph.Edge shape.
type GraphEdge struct {
	From string `json:"from" bson:"from"`
	To   string `json:"to" bson:"to"`
}

// Graph is the persisted node-link graph, built from a finished DataStore.
type Graph struct {
	Nodes []GraphNode `json:"nodes" bson:"nodes"`
	Edges []GraphEdge `json:"edges" bson:"edges"`
}

// FromDataStore converts ds's current graph into the persisted Graph shape.
func FromDataStore(ds *store.DataStore) Graph {
	seen := make(map[store.NodeKey]bool)
	var nodes []GraphNode
	for _, n := range ds.Nodes() {
		if seen[n.Key()] {
			continue
		}
		seen[n.Key()] = true
		nodes = append(nodes, GraphNode{ID: nodeID(*n), Segment: n.Segment, Cluster: n.Cluster})
	}
	var edges []GraphEdge
	for _, e := range ds.Edges() {
		edges = append(edges, GraphEdge{From: nodeID(e.From), To: nodeID(e.To)})
	}
	return Graph{Nodes: nodes, Edges: edges}
}

func nodeID(n store.Node) string {
	return strconv.Itoa(n.Segment) + ":" + strconv.Itoa(n.Cluster)
}

// Run is the document persisted to MongoDB's "runs" collection for one
// completed pipeline execution.
type Run struct {
	RunID  string         `bson:"run_id"`
	Params map[string]any `bson:"params"`
	Graph  Graph          `bson:"graph"`
	Scores []float64      `bson:"scores"`
	Stats  map[string]any `bson:"stats"`
}

// Mongo persists Run documents to a "runs" collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects to uri and returns a Mongo sink, or an error if the
// connection cannot be established.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, s2gerr.Wrap(s2gerr.ErrCodeIO, err, "connecting to mongo at %s", uri)
	}
	ctx, cancel2 := context.WithTimeout(ctx, 10*time.Second)
	defer cancel2()
	if err := client.Ping(ctx, nil); err != nil {
		return nil, s2gerr.Wrap(s2gerr.ErrCodeIO, err, "pinging mongo at %s", uri)
	}
	return &Mongo{client: client, coll: client.Database(database).Collection("runs")}, nil
}

// Persist inserts run into the "runs" collection.
func (m *Mongo) Persist(ctx context.Context, run Run) error {
	if _, err := m.coll.InsertOne(ctx, run); err != nil {
		return s2gerr.Wrap(s2gerr.ErrCodeIO, err, "persisting run %s", run.RunID)
	}
	return nil
}

// Close disconnects the underlying Mongo client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
