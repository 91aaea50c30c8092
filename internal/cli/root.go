// Package cli implements the mqlopt command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dolmen-go/contextio"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/optimizer"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/serializer"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Indent     int

	config Config
	log    *zap.Logger
}

// NewRootCommand creates the root command for the mqlopt CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "mqlopt",
		Short: "Rewrite $expr filters into index-friendly $match stages",
		Long: `mqlopt converts aggregation expressions found in $expr filters into
plain query predicates, keeping whatever cannot be converted in a residual
$expr stage.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log to stderr")
	cmd.PersistentFlags().IntVar(&opts.Indent, "indent", 0, "indent output with this many spaces")

	cmd.AddCommand(NewOptimizeCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewAggregateCommand(opts))

	return cmd
}

func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := LoadConfig(cmd.Context(), o.ConfigPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose = o.Verbose
	}
	if flags.Changed("indent") {
		cfg.Indent = o.Indent
	}
	if cfg.Indent < 0 {
		return fmt.Errorf("invalid indent %d: must not be negative", cfg.Indent)
	}
	o.config = cfg

	o.log = zap.NewNop()
	if cfg.Verbose {
		zcfg := zap.NewDevelopmentConfig()
		zcfg.OutputPaths = []string{"stderr"}
		if o.log, err = zcfg.Build(); err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
	}
	return nil
}

func (o *RootOptions) logger() *zap.Logger {
	if o.log == nil {
		return zap.NewNop()
	}
	return o.log
}

func (o *RootOptions) optimizer() *optimizer.CachingOptimizer {
	return optimizer.NewCachingOptimizer(
		domain.WithCacheSize(o.config.Cache.Size),
		domain.WithCacheTTL(o.config.Cache.TTL),
		domain.WithCacheLogger(o.logger()),
	)
}

func (o *RootOptions) write(cmd *cobra.Command, v any) error {
	s := serializer.NewSerializer(domain.WithSerializerIndent(o.config.Indent))
	b, err := s.Serialize(cmd.Context(), v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}

// readInput parses extended JSON from the named file, or from stdin when
// name is empty or "-".
func readInput(ctx context.Context, cmd *cobra.Command, name string) (any, error) {
	var r io.Reader = cmd.InOrStdin()
	if name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(contextio.NewReader(ctx, r))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", inputName(name), err)
	}
	v, err := data.ParseJSON(b)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", inputName(name), err)
	}
	return v, nil
}

func inputName(name string) string {
	if name == "" || name == "-" {
		return "stdin"
	}
	return name
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func asStages(v any) ([]domain.Document, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("a pipeline must be an array of stages, got %T", v)
	}
	res := make([]domain.Document, len(list))
	for n, item := range list {
		doc, ok := item.(domain.Document)
		if !ok {
			return nil, fmt.Errorf("stage %d: %w", n, domain.ErrStageFormat{Reason: "each stage must be an object"})
		}
		res[n] = doc
	}
	return res, nil
}
