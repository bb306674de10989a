package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"obesityweb/db"
	"obesityweb/ml"
)

func writeTrainingCSV(t *testing.T) string {
	t.Helper()
	rows := []string{strings.Join(append(ml.FeatureNames(), ml.LabelColumn), ",")}
	for i := 0; i < 20; i++ {
		weight, label := 45+i, "insufficient_weight"
		if i >= 10 {
			weight, label = 110+i, "obesity_type_II"
		}
		rows = append(rows, fmt.Sprintf("Female,30,165,%d,no,yes,always,1-2,no,no,sometimes,more than 2L,yes,none,3-5 hours,car,%s", weight, label))
	}
	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(rows, "\n")), 0o644))
	return path
}

func TestTrainWritesServableArtifacts(t *testing.T) {
	opts := trainOptions{
		dataFile:  writeTrainingCSV(t),
		outputDir: filepath.Join(t.TempDir(), "artifacts"),
		maxDepth:  10,
		testRatio: 0.25,
		seed:      1,
		version:   "cli-test",
		auditDB:   filepath.Join(t.TempDir(), "audit.db"),
	}
	require.NoError(t, train(context.Background(), opts, zap.NewNop()))

	registry, err := ml.NewRegistry(opts.outputDir, nil)
	require.NoError(t, err)
	require.Equal(t, "cli-test", registry.Current().Info.Version)
	require.Equal(t, ml.ModelTypeDecisionTree, registry.Current().Info.Type)

	store, err := db.Open(opts.auditDB)
	require.NoError(t, err)
	defer store.Close()
	logs, err := store.LoadTrainingLog(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, 20, logs[0].DataPoints)
	require.GreaterOrEqual(t, logs[0].Accuracy, 0.6)
	require.LessOrEqual(t, logs[0].Accuracy, 1.0)
}

func TestTrainMissingFile(t *testing.T) {
	err := train(context.Background(), trainOptions{dataFile: filepath.Join(t.TempDir(), "none.csv")}, zap.NewNop())
	require.Error(t, err)
}
