package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelssavage/spanish-worksheets/internal/scheduler"
	"github.com/michaelssavage/spanish-worksheets/internal/store"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/layout"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/theme"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Generate and email worksheets for every user due today",
	Long: `Process every active user whose next delivery date is today (UTC), or
the date given with --date. Each processed user is rescheduled two days out,
whatever the outcome. Run it once a day from cron.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().String("date", "", "Sweep date as YYYY-MM-DD (default: today, UTC)")
	sweepCmd.Flags().Int("concurrency", 0, "Users processed at once (default from config)")
}

func runSweep(cmd *cobra.Command, args []string) error {
	day := time.Now().UTC()
	if d, _ := cmd.Flags().GetString("date"); d != "" {
		parsed, err := time.Parse(store.DateLayout, d)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", d, err)
		}
		day = parsed
	}

	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	cfg := e.cfg.Scheduler
	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		cfg.Concurrency = n
	}
	svc, err := e.delivery(cmd.Context())
	if err != nil {
		return err
	}

	sum, err := scheduler.NewSweeper(svc, e.store.Users(), cfg, e.log).Run(cmd.Context(), day)
	printSummary(sum)
	return err
}

func printSummary(sum scheduler.Summary) {
	fmt.Println(layout.RenderHeader("Sweep "+sum.Date, sum.RunID, layout.DefaultWidth))
	fmt.Println(layout.RenderFields([]layout.Field{
		{Label: "Due", Value: strconv.Itoa(sum.Due)},
		{Label: "Created", Value: strconv.Itoa(sum.Created)},
		{Label: "Duplicate", Value: strconv.Itoa(sum.Duplicate)},
		{Label: "Malformed", Value: strconv.Itoa(sum.Malformed)},
		{Label: "Failed", Value: strconv.Itoa(sum.Failed)},
		{Label: "Emailed", Value: strconv.Itoa(sum.Emailed)},
		{Label: "Email failed", Value: strconv.Itoa(sum.EmailFailed)},
	}))
	if sum.Unscheduled > 0 {
		fmt.Println(theme.Failed.Render(fmt.Sprintf("%d user(s) could not be rescheduled", sum.Unscheduled)))
	}
}
