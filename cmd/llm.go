package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michaelssavage/spanish-worksheets/internal/llm"
	"github.com/michaelssavage/spanish-worksheets/internal/store"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/layout"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/theme"
)

const eventTimeLayout = "2006-01-02 15:04:05"

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded model calls",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent model calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		events, err := e.store.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{Limit: limit, Purpose: purpose})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No model calls recorded.")
			return nil
		}

		rows := make([][]string, 0, len(events))
		for _, ev := range events {
			rows = append(rows, []string{
				strconv.Itoa(ev.ID),
				ev.Timestamp.Local().Format(eventTimeLayout),
				ev.Purpose,
				truncate(ev.Model, 28),
				strconv.Itoa(ev.InputTokens),
				strconv.Itoa(ev.OutputTokens),
				strconv.FormatInt(ev.LatencyMs, 10),
				mark(ev.Success),
			})
		}
		fmt.Println(layout.RenderTable([]layout.Column{
			{Title: "ID", Right: true},
			{Title: "Time"},
			{Title: "Purpose"},
			{Title: "Model"},
			{Title: "In", Right: true},
			{Title: "Out", Right: true},
			{Title: "Ms", Right: true},
			{Title: "OK"},
		}, rows))
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the prompt and reply of one model call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		ev, err := e.store.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if ev == nil {
			return fmt.Errorf("event %d not found", id)
		}

		fields := []layout.Field{
			{Label: "ID", Value: strconv.Itoa(ev.ID)},
			{Label: "Time", Value: ev.Timestamp.Local().Format(eventTimeLayout)},
			{Label: "Provider", Value: ev.Provider},
			{Label: "Model", Value: ev.Model},
			{Label: "Purpose", Value: ev.Purpose},
			{Label: "Tokens", Value: fmt.Sprintf("%d in / %d out", ev.InputTokens, ev.OutputTokens)},
			{Label: "Latency", Value: fmt.Sprintf("%dms", ev.LatencyMs)},
			{Label: "Result", Value: mark(ev.Success)},
		}
		if ev.ErrorMessage != "" {
			fields = append(fields, layout.Field{Label: "Error", Value: ev.ErrorMessage})
		}
		fmt.Println(layout.RenderFields(fields))
		fmt.Println()
		fmt.Println(layout.RenderSection("REQUEST", ev.RequestBody, 60))
		fmt.Println(layout.RenderSection("RESPONSE", ev.ResponseBody, 60))
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		ctx := cmd.Context()
		byPurpose, err := e.store.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		if len(byPurpose) == 0 {
			fmt.Println("No model calls recorded.")
			return nil
		}
		byModel, err := e.store.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}

		fmt.Println(theme.Title.Render("Usage by purpose"))
		fmt.Println(usageTable(byPurpose))
		fmt.Println()
		fmt.Println(theme.Title.Render("Estimated cost (USD)"))
		fmt.Println(costTable(byModel))
		return nil
	},
}

func usageTable(rows []store.LLMUsage) string {
	var total store.LLMUsage
	out := make([][]string, 0, len(rows)+1)
	for _, u := range rows {
		out = append(out, []string{
			u.Key,
			strconv.Itoa(u.Calls),
			strconv.Itoa(u.InputTokens),
			strconv.Itoa(u.OutputTokens),
			strconv.FormatInt(u.AvgLatencyMs, 10),
		})
		total.Calls += u.Calls
		total.InputTokens += u.InputTokens
		total.OutputTokens += u.OutputTokens
	}
	out = append(out, []string{"TOTAL", strconv.Itoa(total.Calls), strconv.Itoa(total.InputTokens), strconv.Itoa(total.OutputTokens)})
	return layout.RenderTable([]layout.Column{
		{Title: "Purpose"},
		{Title: "Calls", Right: true},
		{Title: "Input", Right: true},
		{Title: "Output", Right: true},
		{Title: "Avg ms", Right: true},
	}, out)
}

// costTable prices each model's usage. Models without a known price show
// "?" and make the total partial.
func costTable(rows []store.LLMUsage) string {
	var (
		sum      float64
		unpriced []string
	)
	out := make([][]string, 0, len(rows)+1)
	for _, u := range rows {
		cost := "?"
		if p := llm.LookupCost(u.Key); p != nil {
			c := p.Cost(u.InputTokens, u.OutputTokens)
			sum += c
			cost = formatCost(c)
		} else {
			unpriced = append(unpriced, u.Key)
		}
		out = append(out, []string{truncate(u.Key, 32), strconv.Itoa(u.Calls), cost})
	}
	label := "TOTAL"
	if len(unpriced) > 0 {
		label = "TOTAL (partial)"
	}
	out = append(out, []string{label, "", formatCost(sum)})

	table := layout.RenderTable([]layout.Column{
		{Title: "Model"},
		{Title: "Calls", Right: true},
		{Title: "Cost", Right: true},
	}, out)
	if len(unpriced) > 0 {
		table += "\n\n" + theme.Hint.Render("No price for: "+strings.Join(unpriced, ", "))
	}
	return table
}

func mark(ok bool) string {
	if ok {
		return theme.OK.Render("✓")
	}
	return theme.Failed.Render("✗")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only calls with this purpose (worksheet-gen, worksheet-repair, passthrough)")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}
