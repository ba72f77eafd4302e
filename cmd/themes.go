package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michaelssavage/spanish-worksheets/internal/store"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/components"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/layout"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/theme"
	"github.com/michaelssavage/spanish-worksheets/internal/worksheet"
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "Inspect or reset the theme rotation",
}

var themesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List theme pools and the one served next",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		cursor, err := readCursor(ctx, e.store.Configs())
		if err != nil {
			return err
		}
		pools := e.cfg.Worksheet.Pools
		next, _ := worksheet.Upcoming(pools, cursor)

		for i, p := range pools {
			line := fmt.Sprintf("  %d  %s", i, strings.Join(p, ", "))
			if i == next {
				fmt.Println(theme.Title.Render("▶" + line[1:]))
				continue
			}
			fmt.Println(theme.Body.Render(line))
		}
		fmt.Println()
		fmt.Println(components.NewRotationBar("Rotation", next+1, len(pools), layout.DefaultWidth/2).View())
		fmt.Println(theme.Hint.Render(fmt.Sprintf("cursor = %d", cursor)))
		return nil
	},
}

var themesResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restart the rotation at the first pool, or at --to",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		to, _ := cmd.Flags().GetInt("to")

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		if to < 0 || to >= len(e.cfg.Worksheet.Pools) {
			return fmt.Errorf("--to must be between 0 and %d", len(e.cfg.Worksheet.Pools)-1)
		}
		if err := e.store.Configs().Set(ctx, worksheet.CursorKey, strconv.Itoa(to)); err != nil {
			return err
		}
		fmt.Println(theme.OK.Render(fmt.Sprintf("Next pool: %d (%s)", to, strings.Join(e.cfg.Worksheet.Pools[to], ", "))))
		return nil
	},
}

// readCursor returns the stored rotation cursor, 0 when unset.
func readCursor(ctx context.Context, configs store.ConfigRepo) (int64, error) {
	v, err := configs.Get(ctx, worksheet.CursorKey)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("theme cursor %q is not an integer: %w", v, err)
	}
	return n, nil
}

func init() {
	themesResetCmd.Flags().Int("to", 0, "Pool index to serve next")

	themesCmd.AddCommand(themesListCmd)
	themesCmd.AddCommand(themesResetCmd)
}
