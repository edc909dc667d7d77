// Package pipeline sequences ingest → preprocess → phase-space build →
// rotation → segmentation → intersection → node estimation → edge
// construction → scoring → rendering into the single entry point the CLI
// calls, mirroring the teacher's pkg/pipeline parse → layout → render
// Runner (spec §4.11).
//
// Execute drives exactly one in-process peer over the whole input. It
// returns an ErrCodeConfig error for any n_cluster_nodes other than 1: no
// stage exchanges data with other peers, and internal/cli only assembles
// the cluster roster over pkg/s2g/transport and pkg/s2g/membership before
// calling Execute.
package pipeline

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/series2gpp/s2gpp-go/pkg/s2g/edge"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/ingest"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/intersect"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/node"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/numeric"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/phasespace"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/preprocess"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/render"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/rotation"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/score"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/segment"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/sink"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/store"
	"github.com/series2gpp/s2gpp-go/pkg/s2gerr"
)

// Options configures one peer's run of the pipeline.
type Options struct {
	DataPath                string
	ColumnStart, ColumnEnd  int
	PatternLength           int
	Latent                  int
	Rate                    int
	NThreads                int
	NClusterNodes           int
	QueryLength             int
	GraphOutputPath         string
	ScoreOutputPath         string
	Clustering              node.Algorithm
	SelfCorrection          bool
	RunID                   uuid.UUID
	Logger                  *log.Logger
}

// setDefaults fills zero-valued fields with the spec's CLI defaults (spec §5.5).
func (o *Options) setDefaults() {
	if o.PatternLength == 0 {
		o.PatternLength = 50
	}
	if o.Latent == 0 {
		o.Latent = 16
	}
	if o.Rate == 0 {
		o.Rate = 100
	}
	if o.NThreads == 0 {
		o.NThreads = 8
	}
	if o.NClusterNodes == 0 {
		o.NClusterNodes = 1
	}
	if o.QueryLength == 0 {
		o.QueryLength = 75
	}
	if o.Clustering == "" {
		o.Clustering = node.AlgorithmMultiKDE
	}
	if o.Logger == nil {
		o.Logger = log.New(os.Stderr)
	}
	if o.RunID == uuid.Nil {
		o.RunID = uuid.New()
	}
}

// Stats carries per-stage timing for one Execute call.
type Stats struct {
	IngestTime     time.Duration
	PreprocessTime time.Duration
	PhaseSpaceTime time.Duration
	RotationTime   time.Duration
	SegmentTime    time.Duration
	IntersectTime  time.Duration
	NodeTime       time.Duration
	EdgeTime       time.Duration
	ScoreTime      time.Duration

	RowCount  int
	NodeCount int
	EdgeCount int
}

// Result is the output of one Execute call: the scored anomaly vector, the
// finished graph, and stage timings.
type Result struct {
	Scores []float64
	Store  *store.DataStore
	Stats  Stats
}

// Execute runs every stage of the pipeline for this peer's share of the
// data and returns the scored result. When opts.GraphOutputPath or
// opts.ScoreOutputPath are set, the corresponding artifacts are also
// written to disk.
func Execute(ctx context.Context, opts Options) (*Result, error) {
	opts.setDefaults()
	if opts.NClusterNodes != 1 {
		return nil, s2gerr.New(s2gerr.ErrCodeConfig, "Execute only drives a single in-process peer; n_cluster_nodes=%d requires one CLI process per peer coordinated over transport/membership", opts.NClusterNodes)
	}

	stats := Stats{}
	log := opts.Logger

	ingestStart := time.Now()
	f, err := os.Open(opts.DataPath)
	if err != nil {
		return nil, s2gerr.Wrap(s2gerr.ErrCodeIO, err, "opening data_path %s", opts.DataPath)
	}
	defer f.Close()
	dataset, err := ingest.Read(f, opts.ColumnStart, opts.ColumnEnd)
	if err != nil {
		return nil, err
	}
	rows := make([][]float64, len(dataset.Rows))
	for i, r := range dataset.Rows {
		row := make([]float64, len(r))
		for j, v := range r {
			row[j] = float64(v)
		}
		rows[i] = row
	}
	stats.RowCount = len(rows)
	stats.IngestTime = time.Since(ingestStart)
	log.Info("ingested dataset", "rows", stats.RowCount, "columns", len(dataset.Header), "duration", stats.IngestTime)

	preprocessStart := time.Now()
	nCols := 0
	if len(rows) > 0 {
		nCols = len(rows[0])
	}
	colStats := preprocess.ComputeLocalStats(rows, nCols)
	stds := make([]float64, nCols)
	for i, s := range colStats {
		stds[i] = s.Std()
	}
	preprocess.Desensitize(rows, stds, opts.PatternLength)
	stats.PreprocessTime = time.Since(preprocessStart)
	log.Info("preprocessed dataset", "duration", stats.PreprocessTime)

	phaseStart := time.Now()
	phase, err := phasespace.Build(rows, opts.PatternLength)
	if err != nil {
		return nil, err
	}
	reference, err := phasespace.BuildReference(rows, opts.PatternLength)
	if err != nil {
		return nil, err
	}
	latent := phase.Latent()
	stats.PhaseSpaceTime = time.Since(phaseStart)
	log.Info("built phase space", "rows", len(phase), "latent", latent, "duration", stats.PhaseSpaceTime)

	rotationStart := time.Now()
	ds := store.New()
	nRows := len(phase)
	coords := make([][]float64, nRows)
	for i := range coords {
		coords[i] = make([]float64, 0, 2*latent)
	}
	for m := 0; m < latent; m++ {
		dataCol := phase.Column(m)
		refCol := reference.Column(m)
		width := len(dataCol[0])

		reduce := rotation.Reduce(dataCol, width)
		components, err := rotation.FinalizeComponents(reduce)
		if err != nil {
			return nil, err
		}

		projected := make([][2]float64, nRows)
		refProjected := make([][2]float64, nRows)
		for i := range dataCol {
			projected[i] = components.Project(dataCol[i])
		}
		for i := range refCol {
			refProjected[i] = components.Project(refCol[i])
		}

		for i := 0; i < nRows; i++ {
			tangent := refTangent(refProjected, i)
			r := rotation.RodriguesMatrix(tangent)
			rotated := rotation.Apply(r, [3]float64{projected[i][0], projected[i][1], 0})
			coords[i] = append(coords[i], rotated[0], rotated[1])
		}
	}

	points := make([]store.Point, nRows)
	for i := range points {
		points[i] = store.Point{ID: uint64(i), Coords: coords[i]}
	}
	if err := ds.AddPointsWithOffset(points, 0, opts.Rate); err != nil {
		return nil, err
	}
	stats.RotationTime = time.Since(rotationStart)
	log.Info("finished rotation", "points", nRows, "duration", stats.RotationTime)

	segmentStart := time.Now()
	allOwner := func(int) int { return 0 }
	seg := segment.New(opts.Rate, 0, allOwner)
	seg.Run(ds.Points())
	if opts.SelfCorrection {
		global := segment.GlobalTransitionCount([]int{len(seg.Transitions)})
		if segment.NeedsSelfCorrection(global, len(points)) {
			segment.MirrorX(ds.Points())
			for _, p := range ds.Points() {
				_, theta := numeric.CartesianToPolar(p.Coords[0], p.Coords[1])
				p.Segment = numeric.AngleToSegment(theta, opts.Rate)
			}
			seg = segment.New(opts.Rate, 0, allOwner)
			seg.Run(ds.Points())
		}
	}
	stats.SegmentTime = time.Since(segmentStart)
	log.Info("finished segmentation", "transitions", len(seg.Transitions), "duration", stats.SegmentTime)

	intersectStart := time.Now()
	transitions := make([]*store.Transition, len(seg.Transitions))
	for i := range seg.Transitions {
		t := seg.Transitions[i]
		transitions[i] = &t
	}
	bySegment, err := intersect.Compute(ctx, transitions, opts.Rate, opts.NThreads)
	if err != nil {
		return nil, err
	}
	for _, ins := range bySegment {
		ds.AddIntersections(ins)
	}
	stats.IntersectTime = time.Since(intersectStart)
	log.Info("computed intersections", "count", len(ds.Intersections()), "duration", stats.IntersectTime)

	nodeStart := time.Now()
	for segID := 0; segID < opts.Rate; segID++ {
		ins := ds.IntersectionsInSegment(segID)
		if len(ins) == 0 {
			continue
		}
		nodes, err := node.EstimateSegment(segID, ins, opts.Clustering)
		if err != nil {
			return nil, err
		}
		ds.AddNodes(nodes)
	}
	stats.NodeCount = len(ds.Nodes())
	stats.NodeTime = time.Since(nodeStart)
	log.Info("estimated nodes", "count", stats.NodeCount, "duration", stats.NodeTime)

	edgeStart := time.Now()
	groups := make(map[uint64][]store.Node)
	for _, n := range ds.Nodes() {
		groups[n.FromPointID] = append(groups[n.FromPointID], *n)
	}
	keys := make([]uint64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var prev *store.Node
	var edges []store.Edge
	for _, k := range keys {
		nodesAscending := groups[k]
		sort.Slice(nodesAscending, func(i, j int) bool { return nodesAscending[i].Segment < nodesAscending[j].Segment })
		edges = append(edges, edge.BuildEdgesForPoint(prev, nodesAscending)...)

		orderer := edge.NewEdgesOrderer()
		for _, n := range nodesAscending {
			orderer.Push(n)
		}
		ordered := orderer.Order()
		if len(ordered) > 0 {
			last := ordered[len(ordered)-1]
			prev = &last
		}
	}
	ds.AddEdges(edges)
	ds.SortEdges()
	stats.EdgeCount = len(ds.Edges())
	stats.EdgeTime = time.Since(edgeStart)
	log.Info("built edges", "count", stats.EdgeCount, "duration", stats.EdgeTime)

	scoreStart := time.Now()
	pointIDs := make([]uint64, nRows)
	for i := range pointIDs {
		pointIDs[i] = uint64(i)
	}
	edgesInTime := score.EdgesInTime(ds.Edges(), pointIDs)
	weight := score.EdgeWeights(ds.Edges())
	degree := score.NodeDegree(ds.Edges())
	windows, err := score.ScoreWindows(ds.Edges(), edgesInTime, opts.QueryLength, weight, degree)
	if err != nil {
		return nil, err
	}
	raw := score.Assemble([][]score.Window{windows})
	scores := score.MinMaxNormalize(raw)
	stats.ScoreTime = time.Since(scoreStart)
	log.Info("scored windows", "windows", len(scores), "duration", stats.ScoreTime)

	if opts.GraphOutputPath != "" {
		dot := render.ToDOT(ds, opts.RunID)
		if err := os.WriteFile(opts.GraphOutputPath, []byte(dot), 0o644); err != nil {
			return nil, s2gerr.Wrap(s2gerr.ErrCodeIO, err, "writing graph output %s", opts.GraphOutputPath)
		}
	}
	if opts.ScoreOutputPath != "" {
		if err := sink.WriteCSV(opts.ScoreOutputPath, scores); err != nil {
			return nil, err
		}
	}

	return &Result{Scores: scores, Store: ds, Stats: stats}, nil
}

// refTangent returns the local tangent direction of the reference curve at
// index i, embedded in 3D with a zero third coordinate, as the Rodrigues
// alignment reference vector (spec §4.2).
func refTangent(refProjected [][2]float64, i int) [3]float64 {
	j := i + 1
	if j >= len(refProjected) {
		j = i
		i = i - 1
		if i < 0 {
			return [3]float64{0, 0, 1}
		}
	}
	dx := refProjected[j][0] - refProjected[i][0]
	dy := refProjected[j][1] - refProjected[i][1]
	norm := numeric.Norm2([]float64{dx, dy})
	if norm == 0 {
		return [3]float64{0, 0, 1}
	}
	return [3]float64{dx / norm, dy / norm, 0}
}
