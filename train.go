package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"obesityweb/db"
	"obesityweb/ml"
	"obesityweb/pipeline"
)

type trainOptions struct {
	dataFile  string
	outputDir string
	maxDepth  int
	testRatio float64
	seed      int64
	version   string
	auditDB   string
}

func TrainCommand() *cobra.Command {
	var opts trainOptions

	cmd := &cobra.Command{
		Use:   "train -i data.csv [-o artifactDir]",
		Short: "Trains a decision tree on a labelled CSV and writes the model, scaler and encoder artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("output") {
				opts.outputDir = cfg.Artifacts.Dir
			}
			if !cmd.Flags().Changed("audit-db") {
				opts.auditDB = cfg.Database.Path
			}
			if opts.version == "" {
				opts.version = time.Now().UTC().Format("20060102150405")
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return train(cmd.Context(), opts, logger)
		},
	}

	cmd.Flags().StringVarP(&opts.dataFile, "train-file", "i", "", "CSV with one column per attribute plus a label column")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", ".", "directory to write the artifacts to")
	cmd.Flags().IntVarP(&opts.maxDepth, "max-depth", "d", 10, "maximum tree depth")
	cmd.Flags().Float64VarP(&opts.testRatio, "test-ratio", "", 0.2, "share of rows held out for evaluation")
	cmd.Flags().Int64VarP(&opts.seed, "random-seed", "x", 42, "seed for the train/test split")
	cmd.Flags().StringVarP(&opts.version, "model-version", "", "", "version recorded in model.json (default: timestamp)")
	cmd.Flags().StringVarP(&opts.auditDB, "audit-db", "", "", "sqlite file to record the training run in")

	_ = cmd.MarkFlagRequired("train-file")

	return cmd
}

func train(ctx context.Context, opts trainOptions, logger *zap.Logger) error {
	file, err := os.Open(opts.dataFile)
	if err != nil {
		return err
	}
	defer file.Close()

	set, err := ml.ReadTrainingCSV(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.dataFile, err)
	}

	cleaner := pipeline.NewDataCleaner(logger)
	set, issues := cleaner.Clean(set)
	for _, issue := range issues {
		logger.Warn("training row rejected",
			zap.Int("line", issue.Line),
			zap.String("rule", issue.Type),
			zap.String("reason", issue.Message),
		)
	}
	stats := cleaner.GetStats()
	logger.Info("training data cleaned",
		zap.Int64("rows", stats.TotalProcessed),
		zap.Int64("rejected", stats.Rejected),
		zap.Int64("corrected", stats.Corrected),
	)
	if len(set.Vectors) == 0 {
		return fmt.Errorf("no usable rows in %s", opts.dataFile)
	}

	trainSet, testSet := set.Split(opts.testRatio, opts.seed)
	if len(testSet.Vectors) == 0 {
		trainSet, testSet = set, set
	}
	artifacts, err := ml.TrainArtifacts(trainSet, opts.maxDepth, opts.version)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	accuracy, err := ml.Accuracy(artifacts, testSet)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	logger.Info("model trained",
		zap.String("version", opts.version),
		zap.Int("train_rows", len(trainSet.Vectors)),
		zap.Int("test_rows", len(testSet.Vectors)),
		zap.Float64("accuracy", accuracy),
		zap.Strings("labels", artifacts.Encoders.Label),
	)

	if err := artifacts.Save(opts.outputDir); err != nil {
		return fmt.Errorf("save artifacts: %w", err)
	}
	logger.Info("artifacts saved", zap.String("dir", opts.outputDir))

	if opts.auditDB == "" {
		return nil
	}
	store, err := db.Open(opts.auditDB)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveTrainingLog(ctx, db.TrainingLog{
		ModelName:    artifacts.Info.Type,
		ModelVersion: opts.version,
		Accuracy:     accuracy,
		DataPoints:   len(set.Vectors),
	})
}
