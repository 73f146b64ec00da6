// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/answer-engine/internal/archive"
	"github.com/pdiddy/answer-engine/pkg/types"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage archived answers (list, show, search)",
	Long: `Archive manages the local SQLite store of completed answers. Use
subcommands to list stored answers, show one in full, or search section
text with FTS5.`,
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived answers, newest first",
	RunE:  runArchiveList,
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	store, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(context.Background())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No archived answers.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-19s  %-8s  %-8s  %s\n", "ID", "Created", "Sections", "Cost", "Query")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	for _, e := range entries {
		query := e.Query
		if len(query) > 40 {
			query = query[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-19s  %-8d  %-8.4f  %s\n",
			e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"), e.Sections, e.Cost, query)
	}
	return nil
}

var archiveShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one archived answer in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveShow,
}

func runArchiveShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid answer id %q", args[0])
	}

	store, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	a, err := store.Show(context.Background(), id)
	if err != nil {
		return err
	}
	fmt.Print(renderMarkdown(a))
	return nil
}

var archiveSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search over archived section text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runArchiveSearch,
}

func runArchiveSearch(cmd *cobra.Command, args []string) error {
	store, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	hits, err := store.Search(context.Background(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for _, h := range hits {
		body := h.Body
		if len(body) > 120 {
			body = body[:117] + "..."
		}
		fmt.Fprintf(os.Stdout, "[%d] %s — %s\n    %s\n", h.AnswerID, h.Query, h.Title, body)
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(hits))
	return nil
}

func openArchive(cmd *cobra.Command) (*archive.Store, error) {
	archiveDir, _ := cmd.Flags().GetString("archive-dir")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	return archive.Open(types.ArchiveConfig{ArchiveDir: archiveDir, MaxResults: maxResults})
}

func init() {
	archiveCmd.PersistentFlags().String("archive-dir", "archive", "base directory for the answer archive")
	archiveCmd.PersistentFlags().Int("max-results", 20, "maximum number of results")

	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveShowCmd)
	archiveCmd.AddCommand(archiveSearchCmd)

	rootCmd.AddCommand(archiveCmd)
}
