package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/artpar/coursesync/bootstrap"
	"github.com/artpar/coursesync/config"
	"github.com/artpar/coursesync/domain/course"
	"github.com/spf13/cobra"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Inspect and publish courses",
	Long: `Work with the course registry as the editing surface sees it: the
sample catalogue, hydrated from the remote authority when remote.url is set,
with local drafts applied on open.`,
}

var coursesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List courses",
	RunE:  runCoursesList,
}

var coursesPublishCmd = &cobra.Command{
	Use:   "publish ID",
	Short: "Publish a course, including its local draft",
	Args:  cobra.ExactArgs(1),
	RunE:  runCoursesPublish,
}

var readyTimeout time.Duration

func init() {
	rootCmd.AddCommand(coursesCmd)
	coursesCmd.AddCommand(coursesListCmd)
	coursesCmd.AddCommand(coursesPublishCmd)

	coursesCmd.PersistentFlags().DurationVar(&readyTimeout, "timeout", 15*time.Second, "how long to wait for hydration")
}

// openApp loads the config and waits for hydration.
func openApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Metrics.Enabled = false

	a, err := bootstrap.New(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := a.Ready(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("wait for hydration: %w", err)
	}
	return a, nil
}

func runCoursesList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLUG\tSTATUS\tLESSONS\tDURATION\tTITLE")
	for _, c := range a.Registry.GetAll() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", c.ID, c.Slug, c.Status, c.LessonCount, c.Duration, c.Title)
	}
	return w.Flush()
}

func runCoursesPublish(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	// Close waits for the background remote publish.
	defer a.Close()

	id := args[0]
	if _, err := a.Autosave.Open(cmd.Context(), id); err != nil {
		return err
	}
	c, err := a.Autosave.Publish(cmd.Context(), id)
	if issues, ok := course.Issues(err); ok {
		for _, issue := range issues {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", crossMark, issue)
		}
		return fmt.Errorf("%s cannot be published", id)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Published %s (%s) at %s\n", checkMark, c.Title, c.Slug, c.PublishedAt.Format(time.RFC3339))
	return nil
}
