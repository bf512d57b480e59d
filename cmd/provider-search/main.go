// Command provider-search runs the provider ranking from the command line,
// against PostgreSQL or a YAML fixture.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"arrume_backend/internal/providers/ranking"
	providerrepo "arrume_backend/internal/providers/repository"
	providerservice "arrume_backend/internal/providers/service"
	"arrume_backend/platform/config"
	"arrume_backend/platform/db"
	"arrume_backend/platform/logger"
	"arrume_backend/platform/phone"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type searchOptions struct {
	city         string
	token        string
	region       string
	neighborhood string
	limit        int
	categories   []string
	source       string
	fixturePath  string
	databaseURL  string
	asJSON       bool
	verbose      bool
}

type databaseURL string

func (d databaseURL) GetDatabaseURL() string { return string(d) }

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	opts := searchOptions{}

	cmd := &cobra.Command{
		Use:   "provider-search",
		Short: "Rank providers for a city and a postal code or neighborhood",
		Example: "  provider-search --city \"São Paulo\" --token 01310100 --limit 3\n" +
			"  provider-search --source fixture --fixture providers.yml --city Curitiba --token Batel",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.city, "city", "", "city to search in (required)")
	flags.StringVar(&opts.token, "token", "", "8 digit postal code or neighborhood name")
	flags.StringVar(&opts.region, "region", "", "two letter state code")
	flags.StringVar(&opts.neighborhood, "neighborhood", "", "neighborhood hint used when the token is empty")
	flags.IntVar(&opts.limit, "limit", 3, "maximum number of providers")
	flags.StringSliceVar(&opts.categories, "categories", nil, "provider categories (comma separated)")
	flags.StringVar(&opts.source, "source", envOr("PROVIDER_SOURCE", config.BackendPostgres), "candidate source: postgres or fixture")
	flags.StringVar(&opts.fixturePath, "fixture", os.Getenv("PROVIDER_FIXTURE_PATH"), "YAML fixture path for --source fixture")
	flags.StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flags.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log search attempts to stderr")
	_ = cmd.MarkFlagRequired("city")

	return cmd
}

func runSearch(ctx context.Context, opts searchOptions, out, errOut io.Writer) error {
	log := logger.Discard()
	if opts.verbose {
		log = logger.NewWithWriter("development", errOut)
	}

	reader, closeReader, err := openReader(ctx, opts)
	if err != nil {
		return err
	}
	defer closeReader()

	svc := providerservice.New(reader, opts.limit, nil, nil, log)
	ranked, err := svc.Search(ctx, providerservice.SearchParams{
		City:             opts.city,
		LocationToken:    opts.token,
		Region:           opts.region,
		NeighborhoodHint: opts.neighborhood,
		Limit:            opts.limit,
		Categories:       opts.categories,
	})
	if err != nil {
		return fmt.Errorf("search providers: %w", err)
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ranked)
	}
	return printTable(out, ranked)
}

func openReader(ctx context.Context, opts searchOptions) (providerservice.CandidateReader, func(), error) {
	switch strings.ToLower(opts.source) {
	case config.BackendFixture:
		if opts.fixturePath == "" {
			return nil, nil, errors.New("--fixture is required with --source fixture")
		}
		fixture, err := providerrepo.LoadFixture(opts.fixturePath)
		if err != nil {
			return nil, nil, err
		}
		return fixture, func() {}, nil
	case config.BackendPostgres:
		if opts.databaseURL == "" {
			return nil, nil, errors.New("--database-url or DATABASE_URL is required with --source postgres")
		}
		pool, err := db.NewPool(ctx, databaseURL(opts.databaseURL))
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		return providerrepo.New(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q", opts.source)
	}
}

func printTable(out io.Writer, ranked []ranking.Ranked) error {
	if len(ranked) == 0 {
		_, err := fmt.Fprintln(out, "no providers found")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tID\tNAME\tPHONE\tCITY\tNEIGHBORHOOD\tCEP\tTIER\tDISTANCE")
	for i, r := range ranked {
		distance := "-"
		if r.Distance != math.MaxInt {
			distance = fmt.Sprint(r.Distance)
		}
		_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			i+1, r.ID, r.Name, phone.Display(r.Phone), r.City, r.Neighborhood, r.PostalCode, r.Tier, distance)
	}
	return w.Flush()
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
