package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michaelssavage/spanish-worksheets/internal/store"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/theme"
)

var recipientCmd = &cobra.Command{
	Use:   "recipient",
	Short: "Manage extra addresses that receive a user's worksheets",
}

var recipientAddCmd = &cobra.Command{
	Use:   "add <user-email> <recipient-email>",
	Short: "Copy the user's worksheets to another address",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name, _ := cmd.Flags().GetString("name")

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		u, err := e.user(ctx, args[0])
		if err != nil {
			return err
		}
		r, err := e.store.Recipients().Add(ctx, u.ID, args[1], name)
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%s already receives worksheets for %s", args[1], u.Email)
		}
		if err != nil {
			return err
		}
		fmt.Println(theme.OK.Render(fmt.Sprintf("Added %s for %s", r.Email, u.Email)))
		return nil
	},
}

var recipientRemoveCmd = &cobra.Command{
	Use:   "remove <user-email> <recipient-email>",
	Short: "Stop copying the user's worksheets to an address",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		u, err := e.user(ctx, args[0])
		if err != nil {
			return err
		}
		err = e.store.Recipients().Remove(ctx, u.ID, args[1])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%s is not a recipient for %s", args[1], u.Email)
		}
		if err != nil {
			return err
		}
		fmt.Println(theme.OK.Render(fmt.Sprintf("Removed %s from %s", args[1], u.Email)))
		return nil
	},
}

var recipientListCmd = &cobra.Command{
	Use:   "list <user-email>",
	Short: "List a user's extra recipients",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		u, err := e.user(ctx, args[0])
		if err != nil {
			return err
		}
		recips, err := e.store.Recipients().List(ctx, u.ID)
		if err != nil {
			return err
		}
		if len(recips) == 0 {
			fmt.Printf("%s has no extra recipients.\n", u.Email)
			return nil
		}
		fmt.Printf("%-36s  %s\n", "Email", "Name")
		fmt.Println(strings.Repeat("─", 60))
		for _, r := range recips {
			fmt.Printf("%-36s  %s\n", truncate(r.Email, 36), r.Name)
		}
		return nil
	},
}

func init() {
	recipientAddCmd.Flags().String("name", "", "Display name for the recipient")

	recipientCmd.AddCommand(recipientAddCmd)
	recipientCmd.AddCommand(recipientRemoveCmd)
	recipientCmd.AddCommand(recipientListCmd)
}
