package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelssavage/spanish-worksheets/internal/ui/components"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/layout"
	"github.com/michaelssavage/spanish-worksheets/internal/worksheet"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show subscribers, stored worksheets and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		users, err := e.store.Users().List(ctx)
		if err != nil {
			return err
		}
		today := time.Now().UTC()
		due, err := e.store.Users().Due(ctx, today)
		if err != nil {
			return err
		}
		var active, sheets int
		for _, u := range users {
			if u.Active {
				active++
			}
			n, err := e.store.Worksheets().CountByUser(ctx, u.ID)
			if err != nil {
				return err
			}
			sheets += n
		}

		cursor, err := readCursor(ctx, e.store.Configs())
		if err != nil {
			return err
		}
		pools := e.cfg.Worksheet.Pools
		next, pool := worksheet.Upcoming(pools, cursor)

		mailState := "configured"
		if missing := e.cfg.Mail.Missing(); len(missing) > 0 {
			mailState = "missing " + strings.Join(missing, ", ")
		}
		llmState := e.cfg.LLM.Provider
		if err := e.cfg.ValidateLLM(); err != nil {
			llmState += " (" + err.Error() + ")"
		}

		fmt.Println(layout.RenderHeader("hojas", version, layout.DefaultWidth))
		fmt.Println()
		fmt.Println(layout.RenderFields([]layout.Field{
			{Label: "Database", Value: e.store.Dialect()},
			{Label: "Users", Value: fmt.Sprintf("%d (%d active)", len(users), active)},
			{Label: "Due today", Value: strconv.Itoa(len(due))},
			{Label: "Worksheets", Value: strconv.Itoa(sheets)},
			{Label: "Schema", Value: e.cfg.Worksheet.SchemaVersion},
			{Label: "LLM", Value: llmState},
			{Label: "Mail", Value: mailState},
			{Label: "Next themes", Value: strings.Join(pool, ", ")},
		}))
		fmt.Println()
		fmt.Println(components.NewRotationBar("Rotation", next+1, len(pools), layout.DefaultWidth/2).View())
		return nil
	},
}
