package cli

import (
	"context"
	"testing"

	"github.com/charmbracelet/log"
)

func TestBootstrapClusterUnknownRole(t *testing.T) {
	err := bootstrapCluster(context.Background(), "bogus", "run-1", 2, "", "", "", log.Default())
	if err == nil {
		t.Fatal("expected an error for an unknown role")
	}
}

func TestRunMainRejectsExplainabilityWithMultipleClusterNodes(t *testing.T) {
	f := runFlags{
		dataPath:      "unused.csv",
		nClusterNodes: 3,
		explainability: true,
	}
	if err := runMain(context.Background(), f); err == nil {
		t.Fatal("expected a config error for explainability with n_cluster_nodes>1")
	}
}
