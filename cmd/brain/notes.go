package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/viant/brain/brain"
	"github.com/viant/brain/knowledge"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a note",
	Long:  "Embed a problem/solution/explanation note and store it.",
	Args:  cobra.NoArgs,
	RunE:  runAdd,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search notes by meaning",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

// Flags
var (
	problem     string
	solution    string
	explanation string
	tags        []string
	searchLimit int
	exactSearch bool
)

func init() {
	rootCmd.AddCommand(addCmd, searchCmd, getCmd)

	addCmd.Flags().StringVar(&problem, "problem", "", "Problem the note solves")
	addCmd.Flags().StringVar(&solution, "solution", "", "Solution that worked")
	addCmd.Flags().StringVar(&explanation, "explanation", "", "Why the solution works")
	addCmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag, repeatable")

	searchCmd.Flags().IntVar(&searchLimit, "limit", brain.DefaultLimit, "Maximum number of results")
	searchCmd.Flags().BoolVar(&exactSearch, "exact", false, "Rank every note in SQL instead of using the index (sqlite backend)")
}

func runAdd(cmd *cobra.Command, _ []string) error {
	if problem == "" && solution == "" && explanation == "" {
		return errors.New("at least one of --problem, --solution or --explanation is required")
	}
	a, err := openReadyApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	id, err := a.engine.AddNote(cmd.Context(), brain.NoteInput{
		Problem:     problem,
		Solution:    solution,
		Explanation: explanation,
		Tags:        tags,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := openReadyApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	eng := a.engine
	if exactSearch {
		if a.sqlite == nil {
			return errors.New("--exact requires the sqlite store backend")
		}
		if eng, err = brain.New(a.handle, exactStore{a.sqlite}, brain.WithLogger(logger)); err != nil {
			return err
		}
	}
	results, err := eng.Search(cmd.Context(), args[0], searchLimit)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), results)
}

func runGet(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), globalConfig, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	result, err := a.engine.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

// openReadyApp opens the app and blocks until the embedder has loaded.
func openReadyApp(cmd *cobra.Command) (*app, error) {
	a, err := openApp(cmd.Context(), globalConfig, logger)
	if err != nil {
		return nil, err
	}
	if err := a.handle.Wait(cmd.Context()); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// exactStore answers queries with a full SQL scan.
type exactStore struct {
	*knowledge.SQLiteStore
}

func (s exactStore) Query(ctx context.Context, vec []float32, k int) ([]knowledge.Neighbor, error) {
	return s.QueryExact(ctx, vec, k)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
