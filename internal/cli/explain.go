package cli

import (
	"github.com/spf13/cobra"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/pipeline"
)

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain [file]",
		Short: "Print the rewritten form of a pipeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := readInput(cmd.Context(), cmd, firstArg(args))
			if err != nil {
				return err
			}
			stages, err := asStages(v)
			if err != nil {
				return err
			}
			opt := rootOpts.optimizer()
			defer opt.Stop()
			p := pipeline.NewPipeline(
				domain.WithPipelineOptimizer(opt),
				domain.WithPipelineOptimizeExpr(rootOpts.config.OptimizeExpr),
				domain.WithPipelineLogger(rootOpts.logger()),
			)
			res, err := p.Explain(stages...)
			if err != nil {
				return err
			}
			return rootOpts.write(cmd, res)
		},
	}
}
