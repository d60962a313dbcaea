package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aryannaik/pick/internal/candidate"
	"github.com/aryannaik/pick/internal/directory"
	"github.com/aryannaik/pick/internal/logger"
	"github.com/aryannaik/pick/internal/metrics"
	"github.com/aryannaik/pick/internal/suggest"
)

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List candidates in directory order",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(metrics.New())
			if err != nil {
				return err
			}
			pick, _ := store.Pick()
			renderCandidates(cmd.OutOrStdout(), store.List(), pick)
			return nil
		},
	}
}

func renderCandidates(w io.Writer, list []candidate.Candidate, pick string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "ID", "Name", "Description", "Handles", "Votes", "Rating"})
	for _, c := range list {
		marker := ""
		if c.ID == pick {
			marker = "*"
		}
		labels := make([]string, 0, len(c.SocialHandles))
		for _, h := range c.DisplayHandles() {
			labels = append(labels, h.Display())
		}
		t.AppendRow(table.Row{marker, c.ID, c.Name, c.ShortDescription, strings.Join(labels, " "), c.VoteCount, stars(c.Rating)})
	}
	t.AppendFooter(table.Row{"", "", "Total", len(list)})
	t.Render()
}

func stars(rating int) string {
	return strings.Repeat("★", min(max(rating, 0), directory.MaxRating))
}

func newStandingsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "standings",
		Short: "Show candidates ranked by votes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(metrics.New())
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Rank", "Name", "Votes"})
			for i, c := range store.Standings() {
				t.AppendRow(table.Row{i + 1, c.Name, c.VoteCount})
			}
			t.Render()
			return nil
		},
	}
}

func newSeedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Append the demo candidates and save",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(metrics.New())
			if err != nil {
				return err
			}
			for _, c := range directory.DemoCandidates() {
				if _, err := store.Add(c); err != nil {
					return err
				}
			}
			if err := store.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s with %d candidates\n", store.Path(), store.Len())
			return nil
		},
	}
}

func newRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(metrics.New())
			if err != nil {
				return err
			}
			if err := store.Remove(args[0]); err != nil {
				return err
			}
			return store.Save()
		},
	}
}

func newVoteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vote <id>",
		Short: "Pick a candidate and cast one vote for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(metrics.New())
			if err != nil {
				return err
			}
			if err := store.SetPick(args[0]); err != nil {
				return err
			}
			voted, err := store.CastVote()
			if err != nil {
				return err
			}
			if err := store.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now has %d votes\n", voted.Name, voted.VoteCount)
			return nil
		},
	}
}

func newLookupCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "lookup <prefix>",
		Short: "List encyclopedia titles starting with prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, closeLookup, err := a.newLookup(cmd.Context(), metrics.New())
			if err != nil {
				return err
			}
			defer closeLookup()

			pages, err := client.SearchTitles(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Title", "Article"})
			for _, p := range pages {
				u, err := p.ArticleURL()
				if err != nil {
					a.log.Warn("Skipping unencodable title", logger.String("title", p.Title), logger.Err(err))
					continue
				}
				t.AppendRow(table.Row{p.Title, u})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", suggest.DefaultLimit, "maximum titles, 0 for the API maximum")
	return cmd
}

func newSummaryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <title>",
		Short: "Fetch the summary of an encyclopedia page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, closeLookup, err := a.newLookup(cmd.Context(), metrics.New())
			if err != nil {
				return err
			}
			defer closeLookup()

			s, err := client.FetchSummary(cmd.Context(), candidate.Page{Title: strings.Join(args, " ")})
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendRow(table.Row{"Title", s.NormalizedTitle})
			if s.ShortDescription != nil {
				t.AppendRow(table.Row{"Description", *s.ShortDescription})
			}
			if s.ImageURL != nil {
				t.AppendRow(table.Row{"Image", *s.ImageURL})
			}
			t.AppendRow(table.Row{"Extract", s.Extract})
			t.Render()
			return nil
		},
	}
}
