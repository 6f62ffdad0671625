// Package cli implements vscore, a one-shot visibility scorer that runs the
// analysis pipeline without accounts, quota or history.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rankontop/backend/internal/analysis"
	"github.com/rankontop/backend/internal/bootstrap"
	"github.com/rankontop/backend/pkg/config"
	"github.com/rankontop/backend/pkg/logger"
)

type Evaluator interface {
	Evaluate(ctx context.Context, target analysis.Target) (*analysis.Record, error)
}

func Execute() error {
	return NewRoot().Execute()
}

var newEvaluator = func(configPath string) (Evaluator, func(), error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, "stderr"); err != nil {
		return nil, nil, err
	}

	p, err := bootstrap.Build(cfg)
	if err != nil {
		return nil, nil, err
	}
	return analysis.NewService(p.Sources, nil, nil, p.Config), p.Close, nil
}

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "vscore",
		Short:         "Score the search, answer-engine and app-store visibility of a target",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(ScoreCmd(), CacheCmd())
	return root
}

func ScoreCmd() *cobra.Command {
	var (
		target     analysis.Target
		configPath string
		timeout    time.Duration
		compact    bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Analyze one URL or app and print the record as JSON",
		Example: `  vscore score --url https://example.com --keyword "running shoes"
  vscore score --app-id com.instagram.android`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target = target.Normalize()
			if err := target.Validate(); err != nil {
				return err
			}

			eval, closeFn, err := newEvaluator(configPath)
			if err != nil {
				return fmt.Errorf("failed to set up: %w", err)
			}
			defer closeFn()
			defer logger.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			rec, err := eval.Evaluate(ctx, target)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(rec)
		},
	}

	cmd.Flags().StringVar(&target.URL, "url", "", "Web page to analyze")
	cmd.Flags().StringVar(&target.Keyword, "keyword", "", "Target keyword (first comma-separated entry is used)")
	cmd.Flags().StringVar(&target.AppID, "app-id", "", "Store id of the app to analyze")
	cmd.Flags().StringVar(&configPath, "config", "", "Config file (default: ./config.yaml if present)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall time limit")
	cmd.Flags().BoolVar(&compact, "compact", false, "Print JSON on one line")
	return cmd
}
