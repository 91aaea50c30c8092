package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewOptimizeCommand creates the optimize command.
func NewOptimizeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize [file]",
		Short: "Rewrite a $match filter into pipeline stages",
		Long: `Read a $match filter as extended JSON from file or stdin and print the
stages it is rewritten into.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := readInput(cmd.Context(), cmd, firstArg(args))
			if err != nil {
				return err
			}
			opt := rootOpts.optimizer()
			defer opt.Stop()
			stages := opt.Optimize(filter)
			rootOpts.logger().Debug("optimized filter", zap.Int("stages", len(stages)))
			return rootOpts.write(cmd, stages)
		},
	}
}
