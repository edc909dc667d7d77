// Package config loads Series2Graph++ run parameters from an optional TOML
// file, in the teacher's style of parsing deps lock files with
// BurntSushi/toml. CLI flags always take precedence over the file: the file
// fills in a value only where the flag was left at its zero value (spec §2.3).
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/series2gpp/s2gpp-go/pkg/s2gerr"
)

// File is the parsed shape of a run's TOML config file. Every field is a
// pointer so an absent key can be distinguished from an explicit zero value.
type File struct {
	Role            *string `toml:"role"`
	DataPath        *string `toml:"data_path"`
	MainHost        *string `toml:"mainhost"`
	LocalHost       *string `toml:"local_host"`
	PatternLength   *int    `toml:"pattern_length"`
	Latent          *int    `toml:"latent"`
	Rate            *int    `toml:"rate"`
	NThreads        *int    `toml:"n_threads"`
	NClusterNodes   *int    `toml:"n_cluster_nodes"`
	QueryLength     *int    `toml:"query_length"`
	GraphOutputPath *string `toml:"graph_output_path"`
	ScoreOutputPath *string `toml:"score_output_path"`
	Clustering      *string `toml:"clustering"`
	SelfCorrection  *bool   `toml:"self_correction"`
	Explainability  *bool   `toml:"explainability"`
	ColumnStart     *int    `toml:"column_start"`
	ColumnEnd       *int    `toml:"column_end"`
	RedisAddr       *string `toml:"redis_addr"`
	MongoURI        *string `toml:"mongo_uri"`
}

// Load parses the TOML file at path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, s2gerr.Wrap(s2gerr.ErrCodeIO, err, "reading config file %s", path)
	}
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return File{}, s2gerr.Wrap(s2gerr.ErrCodeConfig, err, "parsing config file %s", path)
	}
	return f, nil
}

// MergeString returns flagVal if it's non-empty, otherwise fileVal's
// dereferenced value (or "" if fileVal is nil).
func MergeString(flagVal string, fileVal *string) string {
	if flagVal != "" {
		return flagVal
	}
	if fileVal != nil {
		return *fileVal
	}
	return ""
}

// MergeInt returns flagVal if it's non-zero, otherwise fileVal's
// dereferenced value (or 0 if fileVal is nil).
func MergeInt(flagVal int, fileVal *int) int {
	if flagVal != 0 {
		return flagVal
	}
	if fileVal != nil {
		return *fileVal
	}
	return 0
}

// MergeBool returns flagVal if true, otherwise fileVal's dereferenced value
// (or false if fileVal is nil). Since cobra bool flags default to false,
// the file value only ever fills in a flag the user left unset.
func MergeBool(flagVal bool, fileVal *bool) bool {
	if flagVal {
		return true
	}
	if fileVal != nil {
		return *fileVal
	}
	return false
}
