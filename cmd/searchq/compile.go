package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/shelfsearch/internal/db/postgres"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/shelfsearch/internal/engine/dsl"
	chiTransport "github.com/kailas-cloud/shelfsearch/internal/transport/chi"
	"github.com/kailas-cloud/shelfsearch/internal/version"
)

const (
	surfaceCorpus  = "corpus"
	surfaceLibrary = "library"
)

type compileOptions struct {
	surface      string
	tier         string
	user         string
	offset       bool
	defaultSize  int
	maxSize      int
	defaultScore float64
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "searchq",
		Short:        "Inspect compiled search queries",
		Version:      version.String(),
		SilenceUsage: true,
	}
	root.AddCommand(newCompileCmd())
	return root
}

func newCompileCmd() *cobra.Command {
	opts := compileOptions{}
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a JSON search request read from stdin",
		Long: `Compile a JSON search request into the query the API would run.

Corpus and premium library requests print the engine body. Free-tier
library requests print the relational row and count statements.
Semantic routing is not simulated: corpus requests compile as keyword.

Examples:
  echo '{"term":"#go channels"}' | searchq compile --surface library --tier premium
  searchq compile --surface library --tier free --offset < request.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompile(cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.surface, "surface", surfaceCorpus, "search surface: corpus or library")
	f.StringVar(&opts.tier, "tier", "premium", "library tier: free or premium")
	f.StringVar(&opts.user, "user", "searchq", "user id scoping library requests")
	f.BoolVar(&opts.offset, "offset", false, "use offset pagination instead of cursors")
	f.IntVar(&opts.defaultSize, "default-size", 30, "default page size")
	f.IntVar(&opts.maxSize, "max-size", 100, "maximum page size")
	f.Float64Var(&opts.defaultScore, "default-score", 1, "score of documents without a boost match")
	return cmd
}

func runCompile(in io.Reader, out io.Writer, opts compileOptions) error {
	var body chiTransport.SearchRequest
	if err := json.NewDecoder(in).Decode(&body); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	req, err := body.ToRequest()
	if err != nil {
		return err
	}

	limits := pagination.Limits{DefaultSize: opts.defaultSize, MaxSize: opts.maxSize}
	var eng pagination.Engine = pagination.SortTuple{Limits: limits}
	if opts.offset {
		eng = pagination.Offset{Limits: limits}
	}

	var surface dsl.Surface
	switch strings.ToLower(opts.surface) {
	case surfaceCorpus:
		surface = dsl.Corpus
	case surfaceLibrary:
		if opts.user == "" {
			return fmt.Errorf("library requests need --user")
		}
		req = req.WithUser(opts.user)
		surface = dsl.Library
		if strings.EqualFold(opts.tier, "free") {
			// Free tier always pages by offset.
			p, err := pagination.Offset{Limits: limits}.Params(req.Pagination())
			if err != nil {
				return err
			}
			q, err := postgres.Build(req, p)
			if err != nil {
				return err
			}
			return writeJSON(out, q)
		}
	default:
		return fmt.Errorf("unknown surface %q", opts.surface)
	}

	spec := req.Pagination()
	if !opts.offset && (spec.Before != "" || spec.Last != nil) {
		return fmt.Errorf("before/last need --offset")
	}
	p, err := eng.Params(spec)
	if err != nil {
		return err
	}
	q, err := dsl.NewKeyword(surface, req, p, opts.defaultScore).ToQuery()
	if err != nil {
		return err
	}
	return writeJSON(out, q)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
