package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/collection"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/pipeline"
)

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand(rootOpts *RootOptions) *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "aggregate --data <docs> [file]",
		Short: "Run a pipeline over a set of documents",
		Long: `Load an array of documents from --data, run the pipeline read from file or
stdin over them and print the resulting documents.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, err := readInput(ctx, cmd, firstArg(args))
			if err != nil {
				return err
			}
			stages, err := asStages(v)
			if err != nil {
				return err
			}
			docs, err := readInput(ctx, cmd, dataPath)
			if err != nil {
				return err
			}
			list, ok := docs.([]any)
			if !ok {
				return fmt.Errorf("documents must be an array, got %T", docs)
			}

			log := rootOpts.logger()
			opt := rootOpts.optimizer()
			defer opt.Stop()
			coll := collection.NewCollection(
				domain.WithCollectionLogger(log),
				domain.WithCollectionPipeline(pipeline.NewPipeline(
					domain.WithPipelineOptimizer(opt),
					domain.WithPipelineOptimizeExpr(rootOpts.config.OptimizeExpr),
					domain.WithPipelineLogger(log),
				)),
			)
			if _, err := coll.Insert(ctx, list...); err != nil {
				return fmt.Errorf("loading documents: %w", err)
			}

			anyStages := make([]any, len(stages))
			for n, stage := range stages {
				anyStages[n] = stage
			}
			cur, err := coll.Aggregate(ctx, anyStages...)
			if err != nil {
				return err
			}
			defer cur.Close()

			res := []any{}
			for cur.Next() {
				var doc map[string]any
				if err := cur.Scan(ctx, &doc); err != nil {
					return err
				}
				res = append(res, doc)
			}
			if err := cur.Err(); err != nil {
				return err
			}
			return rootOpts.write(cmd, res)
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "extended JSON array of documents")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}
