package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/artpar/coursesync/domain/course"
	"github.com/spf13/cobra"
)

var normalizeStrict bool

var normalizeCmd = &cobra.Command{
	Use:   "normalize FILE",
	Short: "Normalize a course document",
	Long: `Read a course JSON document in the chapter shape or the legacy module
shape, and print the normalized document carrying both shapes.

Lesson content blobs in any legacy layout are upgraded to the current
schema, orders are made dense and durations recomputed. Validation issues
that would block a remote save are printed to stderr.

Use "-" to read from stdin.

Examples:
  coursesync normalize course.json
  cat legacy.json | coursesync normalize - --strict`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)

	normalizeCmd.Flags().BoolVar(&normalizeStrict, "strict", false, "exit with an error when validation issues are found")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	var doc course.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	doc = course.Normalize(doc)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	issues := course.Validate(doc.Course)
	for _, issue := range issues {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", crossMark, issue)
	}
	if normalizeStrict && len(issues) > 0 {
		return fmt.Errorf("%d validation issue(s)", len(issues))
	}
	return nil
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
