package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devlopersumit/issuehub/internal/app"
	"github.com/devlopersumit/issuehub/internal/fetch"
	"github.com/devlopersumit/issuehub/internal/github"
	"github.com/devlopersumit/issuehub/internal/kvstore"
	"github.com/devlopersumit/issuehub/internal/mcpserver"
	"github.com/devlopersumit/issuehub/internal/types"
	"github.com/devlopersumit/issuehub/internal/ui"
)

type searchOptions struct {
	language    string
	labels      []string
	page        int
	perPage     int
	all         bool
	unassigned  bool
	interactive bool
}

func newSearchCommand() *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search [text...]",
		Short: "Search open issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Repository language")
	cmd.Flags().StringSliceVar(&opts.labels, "label", nil, "Issue label (repeatable)")
	cmd.Flags().IntVarP(&opts.page, "page", "p", 1, "Result page")
	cmd.Flags().IntVar(&opts.perPage, "per-page", fetch.DefaultPerPage, "Results per page")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Include closed issues")
	cmd.Flags().BoolVar(&opts.unassigned, "unassigned", false, "Only issues without an assignee")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Pick an issue and print its URL")
	return cmd
}

func runSearch(ctx context.Context, text string, opts *searchOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, _, err := openApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	q := fetch.Query{
		Text: github.BuildIssueQuery(github.IssueFilters{
			Text:       text,
			Language:   opts.language,
			Labels:     opts.labels,
			OpenOnly:   !opts.all,
			Unassigned: opts.unassigned,
		}),
		Page:    opts.page,
		PerPage: opts.perPage,
	}
	if q.Text == "" {
		return fmt.Errorf("nothing to search for: pass text, --language or --label")
	}

	orch := fetch.New(a.SearchOptions())
	defer orch.Close()

	st, err := orch.Resolve(ctx, q)
	if err != nil {
		return err
	}
	if st.Err != nil {
		return st.Err
	}

	languages := enrichNow(ctx, a, st.Result.Issues)

	if opts.interactive && len(st.Result.Issues) > 0 {
		idx, err := ui.SelectIssue(st.Result.Issues, languages)
		if err != nil {
			return err
		}
		fmt.Println(st.Result.Issues[idx].HTMLURL)
		return nil
	}

	ui.WriteSearchState(os.Stdout, st, languages)
	return nil
}

// enrichNow resolves languages for the repositories behind issues before
// printing. It returns nil when enrichment is disabled.
func enrichNow(ctx context.Context, a *app.App, issues []types.Issue) map[string][]string {
	if a.Enricher == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var refs []types.RepoRef
	for _, issue := range issues {
		ref, ok := issue.Repo()
		if !ok {
			continue
		}
		if _, dup := seen[ref.String()]; dup {
			continue
		}
		seen[ref.String()] = struct{}{}
		refs = append(refs, ref)
	}

	_ = a.Enricher.Process(ctx, refs)
	return a.Languages(issues)
}

func newBountiesCommand() *cobra.Command {
	var refresh, asJSON bool
	cmd := &cobra.Command{
		Use:   "bounties",
		Short: "List curated bounty issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, _, err := openApp(os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			if refresh {
				err = a.Refresher.Refresh(ctx)
			} else {
				err = a.Refresher.Load(ctx)
			}
			if err != nil {
				return err
			}

			snap := a.Refresher.Snapshot()
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}

			issues := make([]types.Issue, len(snap.Records))
			for i, rec := range snap.Records {
				issues[i] = rec.Issue
			}
			if snap.RateLimited {
				fmt.Fprintln(os.Stdout, "Rate limited: some sources or repositories were not checked.")
			}
			ui.WriteBounties(os.Stdout, snap.Records, enrichNow(ctx, a, issues))
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the cached list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the list as JSON")
	return cmd
}

func newRateLimitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ratelimit",
		Short: "Show the tracked rate limit window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := openApp(os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			ui.WriteRateLimit(os.Stdout, a.Tracker.Snapshot())
			return nil
		},
	}
}

// cacheNamespaces are the namespaces a user may clear by name
var cacheNamespaces = []kvstore.Policy{
	kvstore.BountyPolicy,
	kvstore.LanguagePolicy,
	kvstore.LegitimacyPolicy,
	kvstore.SearchPolicy,
	kvstore.RateLimitPolicy,
}

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the persistent cache",
	}

	var expiredOnly bool
	purge := &cobra.Command{
		Use:       "purge [namespace...]",
		Short:     "Remove cached entries",
		Long:      "Remove every entry in the named namespaces, or in all of them when none is given.",
		ValidArgs: namespaceNames(),
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := openApp(os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if expiredOnly {
				n, err := a.Store.PurgeExpired(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Removed %d expired entries\n", n)
				return nil
			}

			names := args
			if len(names) == 0 {
				names = namespaceNames()
			}
			for _, name := range names {
				for _, p := range cacheNamespaces {
					if p.Name != name {
						continue
					}
					n, err := kvstore.NewNamespace[json.RawMessage](a.Store, p, logger).Clear(ctx)
					if err != nil {
						return fmt.Errorf("failed to clear %s: %w", name, err)
					}
					fmt.Printf("%s: removed %d entries\n", name, n)
				}
			}
			return nil
		},
	}
	purge.Flags().BoolVar(&expiredOnly, "expired", false, "Only remove expired entries")

	cmd.AddCommand(purge)
	return cmd
}

func namespaceNames() []string {
	names := make([]string, len(cacheNamespaces))
	for i, p := range cacheNamespaces {
		names[i] = p.Name
	}
	return names
}

func newMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the search and bounty tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, logger, err := openApp(os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			go func() { _ = a.Refresher.Start(ctx) }()
			if a.Enricher != nil {
				go func() { _ = a.Enricher.Start(ctx) }()
			}

			return mcpserver.NewServer(a.MCPDependencies(), logger).Serve(ctx)
		},
	}
}
