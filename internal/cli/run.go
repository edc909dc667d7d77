package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/series2gpp/s2gpp-go/pkg/config"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/membership"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/node"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/pipeline"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/sink"
	"github.com/series2gpp/s2gpp-go/pkg/s2g/transport"
	"github.com/series2gpp/s2gpp-go/pkg/s2gerr"
)

// runFlags holds every flag the run command accepts, mirrored 1:1 onto
// pkg/config.File so a TOML file and the flags can be merged field by field.
type runFlags struct {
	configPath string

	role            string
	dataPath        string
	mainHost        string
	localHost       string
	patternLength   int
	latent          int
	rate            int
	nThreads        int
	nClusterNodes   int
	queryLength     int
	graphOutputPath string
	scoreOutputPath string
	clustering      string
	selfCorrection  bool
	explainability  bool
	columnStart     int
	columnEnd       int
	redisAddr       string
	mongoURI        string
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a Series2Graph++ peer over a data file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMain(cmd.Context(), f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "path to a TOML config file (flags override its values)")
	flags.StringVar(&f.role, "role", "main", `peer role: "main" or "sub"`)
	flags.StringVar(&f.dataPath, "data_path", "", "path to the input CSV")
	flags.StringVar(&f.mainHost, "mainhost", "", "main peer's host:port (required for a sub peer, or to bind the main peer's listener)")
	flags.StringVar(&f.localHost, "local_host", "", "this peer's own host:port, advertised to the main peer")
	flags.IntVar(&f.patternLength, "pattern_length", 0, "sliding-window embedding length")
	flags.IntVar(&f.latent, "latent", 0, "latent size; recorded in the persisted run params, not read by any pipeline stage (columns come from column_start/column_end)")
	flags.IntVar(&f.rate, "rate", 0, "number of angular segments")
	flags.IntVar(&f.nThreads, "n_threads", 0, "worker pool size for intersection computation")
	flags.IntVar(&f.nClusterNodes, "n_cluster_nodes", 0, "total number of cooperating peers")
	flags.IntVar(&f.queryLength, "query_length", 0, "scoring window length")
	flags.StringVar(&f.graphOutputPath, "graph_output_path", "", "optional path to write the run's graph as Graphviz DOT")
	flags.StringVar(&f.scoreOutputPath, "score_output_path", "", "path to write the final score vector as CSV")
	flags.StringVar(&f.clustering, "clustering", "", `per-segment clustering algorithm: "multi-kde" or "meanshift"`)
	flags.BoolVar(&f.selfCorrection, "self_correction", false, "retry segmentation with a mirrored x-axis if self-correction is warranted")
	flags.BoolVar(&f.explainability, "explainability", false, "keep per-window subscores (incompatible with n_cluster_nodes>1)")
	flags.IntVar(&f.columnStart, "column_start", 0, "first input column to embed, inclusive")
	flags.IntVar(&f.columnEnd, "column_end", 0, "last input column to embed, exclusive")
	flags.StringVar(&f.redisAddr, "redis-addr", "", "optional Redis address for cluster roster pub/sub")
	flags.StringVar(&f.mongoURI, "mongo-uri", "", "optional MongoDB URI to persist the finished run")

	return cmd
}

func runMain(ctx context.Context, f runFlags) error {
	logger := loggerFromContext(ctx)

	var file config.File
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return err
		}
		file = loaded
	}

	role := config.MergeString(f.role, file.Role)
	nClusterNodes := config.MergeInt(f.nClusterNodes, file.NClusterNodes)
	explainability := config.MergeBool(f.explainability, file.Explainability)

	if explainability && nClusterNodes > 1 {
		return s2gerr.New(s2gerr.ErrCodeConfig, "explainability is incompatible with n_cluster_nodes=%d (subscores are only retained for the single-peer case)", nClusterNodes)
	}

	opts := pipeline.Options{
		DataPath:        config.MergeString(f.dataPath, file.DataPath),
		ColumnStart:     config.MergeInt(f.columnStart, file.ColumnStart),
		ColumnEnd:       config.MergeInt(f.columnEnd, file.ColumnEnd),
		PatternLength:   config.MergeInt(f.patternLength, file.PatternLength),
		Latent:          config.MergeInt(f.latent, file.Latent),
		Rate:            config.MergeInt(f.rate, file.Rate),
		NThreads:        config.MergeInt(f.nThreads, file.NThreads),
		NClusterNodes:   nClusterNodes,
		QueryLength:     config.MergeInt(f.queryLength, file.QueryLength),
		GraphOutputPath: config.MergeString(f.graphOutputPath, file.GraphOutputPath),
		ScoreOutputPath: config.MergeString(f.scoreOutputPath, file.ScoreOutputPath),
		Clustering:      node.Algorithm(config.MergeString(f.clustering, file.Clustering)),
		SelfCorrection:  config.MergeBool(f.selfCorrection, file.SelfCorrection),
		RunID:           uuid.New(),
		Logger:          logger,
	}

	if nClusterNodes > 1 {
		if err := bootstrapCluster(ctx, role, opts.RunID.String(), nClusterNodes,
			config.MergeString(f.mainHost, file.MainHost),
			config.MergeString(f.localHost, file.LocalHost),
			config.MergeString(f.redisAddr, file.RedisAddr), logger); err != nil {
			return err
		}
	}

	var result *pipeline.Result
	progressErr := runWithProgress(fmt.Sprintf("running %s", opts.RunID), func() (string, error) {
		r, err := pipeline.Execute(ctx, opts)
		if err != nil {
			return "", err
		}
		result = r
		return fmt.Sprintf("scored %d windows (%d nodes, %d edges)", len(r.Scores), r.Stats.NodeCount, r.Stats.EdgeCount), nil
	})
	if progressErr != nil {
		return progressErr
	}

	logger.Infof("run %s scored %d windows (%d nodes, %d edges)", opts.RunID, len(result.Scores), result.Stats.NodeCount, result.Stats.EdgeCount)

	mongoURI := config.MergeString(f.mongoURI, file.MongoURI)
	if mongoURI != "" {
		if err := persistToMongo(ctx, mongoURI, opts, result); err != nil {
			return err
		}
	}

	return nil
}

// bootstrapCluster assembles the roster for a multi-peer run. The main peer
// serves /peer/join until every sub peer has registered; a sub peer joins,
// takes the roster from the join response or, when Redis is configured,
// from its pub/sub channel, and opens a websocket to the main peer. Only
// the roster is assembled here: pipeline.Execute, which runMain calls next,
// returns a config error for n_cluster_nodes > 1.
func bootstrapCluster(ctx context.Context, role, runID string, nClusterNodes int, mainHost, localHost, redisAddr string, logger interface{ Infof(string, ...any) }) error {
	switch role {
	case "main":
		var peerMu sync.Mutex
		peerConns := make(map[int]*transport.Conn)
		peer := transport.NewServer(func(c *transport.Conn) {
			peerMu.Lock()
			peerConns[c.PeerID] = c
			peerMu.Unlock()
			logger.Infof("peer %d connected over websocket", c.PeerID)
		})

		coord := membership.NewCoordinator(runID, mainHost, nClusterNodes-1, membership.Config{RedisAddr: redisAddr})
		router := chi.NewRouter()
		coord.Routes(router)
		router.Mount("/", peer.Handler())

		ln, err := net.Listen("tcp", mainHost)
		if err != nil {
			return s2gerr.Wrap(s2gerr.ErrCodeTransport, err, "binding main peer listener on %s", mainHost)
		}
		srv := &http.Server{Handler: router}
		go srv.Serve(ln)
		defer srv.Close()

		roster, err := coord.Wait(ctx)
		if err != nil {
			return err
		}
		peer.SetProgress("roster-assembled", 0)
		logger.Infof("cluster roster assembled: %v", roster.Addresses)
		return nil

	case "sub":
		joinCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		peerID, roster, err := membership.Join(joinCtx, "http://"+mainHost, localHost)
		if err != nil {
			return err
		}
		if roster == nil && redisAddr != "" {
			r, err := membership.Subscribe(ctx, redisAddr, runID)
			if err != nil {
				return err
			}
			roster = &r
		}
		if roster != nil {
			logger.Infof("joined cluster roster as peer %d: %v", peerID, roster.Addresses)
		}

		conn, err := transport.Dial(joinCtx, mainHost, peerID)
		if err != nil {
			return err
		}
		defer conn.Close()
		return nil

	default:
		return s2gerr.New(s2gerr.ErrCodeConfig, `unknown role %q, want "main" or "sub"`, role)
	}
}

func persistToMongo(ctx context.Context, uri string, opts pipeline.Options, result *pipeline.Result) error {
	m, err := sink.NewMongo(ctx, uri, "s2gpp")
	if err != nil {
		return err
	}
	defer m.Close(ctx)

	run := sink.Run{
		RunID: opts.RunID.String(),
		Params: map[string]any{
			"pattern_length":  opts.PatternLength,
			"latent":          opts.Latent,
			"rate":            opts.Rate,
			"n_cluster_nodes": opts.NClusterNodes,
			"query_length":    opts.QueryLength,
			"clustering":      string(opts.Clustering),
		},
		Graph:  sink.FromDataStore(result.Store),
		Scores: result.Scores,
		Stats: map[string]any{
			"row_count":  result.Stats.RowCount,
			"node_count": result.Stats.NodeCount,
			"edge_count": result.Stats.EdgeCount,
		},
	}
	return m.Persist(ctx, run)
}
