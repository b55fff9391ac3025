package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ronappleton/studioflow/internal/cache"
	"github.com/ronappleton/studioflow/internal/config"
	"github.com/ronappleton/studioflow/internal/database"
	"github.com/ronappleton/studioflow/internal/logging"
	"github.com/ronappleton/studioflow/internal/overview"
	"github.com/ronappleton/studioflow/internal/workflow"
)

type exportOptions struct {
	organization string
	filters      overview.Filters
	sortBy       string
	order        string
	output       string
}

func newExportCommand() *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write workflows from the configured store as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, sink, err := logging.New(cfg.Logging, "studioflow-cli")
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
				if sink != nil {
					sink.Close()
				}
			}()
			if opts.organization == "" {
				opts.organization = cfg.Organization.DefaultID
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			svc, closeStore, err := openService(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			w := cmd.OutOrStdout()
			if opts.output != "" && opts.output != "-" {
				f, err := os.Create(opts.output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			n, err := writeExport(ctx, svc, opts, w)
			if err != nil {
				return err
			}
			logger.Info("export written", zap.Int("workflows", n), zap.String("organization_id", opts.organization))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.organization, "org", "", "Organization id (defaults to organization.default_id)")
	f.StringVar(&opts.filters.Status, "status", "", "Workflow status filter")
	f.StringVar(&opts.filters.School, "school", "", "School id filter")
	f.StringVar(&opts.filters.SessionType, "session-type", "", "Session type filter")
	f.StringVar((*string)(&opts.filters.DateRange), "date-range", "", "today, week, month or all")
	f.StringVar(&opts.filters.Search, "search", "", "Free-text search; replaces the other filters")
	f.StringVar(&opts.sortBy, "sort", "", "date, school, progress or status")
	f.StringVar(&opts.order, "order", string(overview.Asc), "asc or desc")
	f.StringVarP(&opts.output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

// openService builds a read-side service over the configured store without
// the fx graph.
func openService(ctx context.Context, cfg config.Config, logger *zap.Logger) (*workflow.Service, func(), error) {
	var pool *pgxpool.Pool
	closeStore := func() {}
	if cfg.Database.DSN != "" {
		p, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		pool = p
		closeStore = p.Close
	} else {
		logger.Warn("no database configured, exporting from an empty in-memory store")
	}
	store, err := workflow.NewStoreFromConfig(pool, logger)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	dir, err := workflow.NewDirectoryFromConfig(cfg, pool)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	svc := workflow.NewService(workflow.ServiceOptions{
		Store:     store,
		Directory: dir,
		Templates: cache.Nop[[]workflow.Template]{},
		Logger:    logger.Named("workflow"),
	})
	return svc, closeStore, nil
}

func writeExport(ctx context.Context, svc *workflow.Service, opts exportOptions, w io.Writer) (int, error) {
	snap, err := svc.Snapshot(ctx, opts.organization)
	if err != nil {
		return 0, err
	}
	e := overview.NewEngine(overview.FromSnapshot(snap), svc.Now())
	list := e.Filter(e.Workflows(), opts.filters)
	if opts.sortBy != "" {
		list = e.Sort(list, overview.SortBy(opts.sortBy), overview.SortOrder(opts.order))
	}
	return len(list), e.WriteCSV(w, list)
}
