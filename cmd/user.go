package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelssavage/spanish-worksheets/internal/store"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/theme"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage subscribers",
}

var userAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Add a subscriber",
	Long: `Add a subscriber. The first delivery is today (UTC) unless --start is
given; pass --start "" to leave the user unscheduled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		next, err := parseStart(cmd)
		if err != nil {
			return err
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		u, err := e.store.Users().Create(ctx, args[0], next)
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("user %s already exists", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Println(theme.OK.Render(fmt.Sprintf("Added user %d %s (next delivery %s)", u.ID, u.Email, formatDay(u.NextDelivery))))
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscribers",
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
		if len(users) == 0 {
			fmt.Println("No users found.")
			return nil
		}

		fmt.Printf("%-5s  %-36s  %-8s  %-12s  %s\n", "ID", "Email", "Active", "Next", "Recipients")
		fmt.Println(strings.Repeat("─", 80))
		for _, u := range users {
			recips, err := e.store.Recipients().List(ctx, u.ID)
			if err != nil {
				return err
			}
			active := "yes"
			if !u.Active {
				active = "no"
			}
			fmt.Printf("%-5d  %-36s  %-8s  %-12s  %d\n",
				u.ID, truncate(u.Email, 36), active, formatDay(u.NextDelivery), len(recips))
		}
		return nil
	},
}

var userActivateCmd = &cobra.Command{
	Use:   "activate <email>",
	Short: "Include the user in sweeps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUserActive(cmd, args[0], true)
	},
}

var userDeactivateCmd = &cobra.Command{
	Use:   "deactivate <email>",
	Short: "Pause deliveries for the user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUserActive(cmd, args[0], false)
	},
}

var userScheduleCmd = &cobra.Command{
	Use:   "schedule <email> <YYYY-MM-DD>",
	Short: "Set the user's next delivery date",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		day, err := time.Parse(store.DateLayout, args[1])
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", args[1], err)
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		u, err := e.user(ctx, args[0])
		if err != nil {
			return err
		}
		if err := e.store.Users().SetNextDelivery(ctx, u.ID, day); err != nil {
			return err
		}
		fmt.Println(theme.OK.Render(fmt.Sprintf("%s next delivery %s", u.Email, day.Format(store.DateLayout))))
		return nil
	},
}

func setUserActive(cmd *cobra.Command, email string, active bool) error {
	ctx := cmd.Context()
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	u, err := e.user(ctx, email)
	if err != nil {
		return err
	}
	if err := e.store.Users().SetActive(ctx, u.ID, active); err != nil {
		return err
	}
	state := "active"
	if !active {
		state = "paused"
	}
	fmt.Println(theme.OK.Render(fmt.Sprintf("%s is now %s", u.Email, state)))
	return nil
}

// parseStart reads --start. An explicitly empty value means unscheduled.
func parseStart(cmd *cobra.Command) (*time.Time, error) {
	v, _ := cmd.Flags().GetString("start")
	if !cmd.Flags().Changed("start") {
		today := time.Now().UTC()
		return &today, nil
	}
	if v == "" {
		return nil, nil
	}
	day, err := time.Parse(store.DateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("invalid --start %q: %w", v, err)
	}
	return &day, nil
}

func formatDay(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(store.DateLayout)
}

func init() {
	userAddCmd.Flags().String("start", "", "First delivery date YYYY-MM-DD (default: today, UTC)")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userActivateCmd)
	userCmd.AddCommand(userDeactivateCmd)
	userCmd.AddCommand(userScheduleCmd)
}
