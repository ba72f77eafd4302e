package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/michaelssavage/spanish-worksheets/internal/delivery"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/layout"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/theme"
	"github.com/michaelssavage/spanish-worksheets/internal/worksheet"
)

var worksheetCmd = &cobra.Command{
	Use:   "worksheet",
	Short: "Inspect or resend a user's current worksheet",
}

var worksheetShowCmd = &cobra.Command{
	Use:   "show <email>",
	Short: "Render the user's current worksheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		user, err := e.user(ctx, args[0])
		if err != nil {
			return err
		}
		ws, err := e.store.Worksheets().Latest(ctx, user.ID)
		if err != nil {
			return err
		}
		if ws == nil {
			fmt.Printf("%s has no worksheet yet.\n", user.Email)
			return nil
		}

		raw, _ := cmd.Flags().GetBool("raw")
		if raw {
			fmt.Println(ws.Content)
			return nil
		}
		v, err := worksheet.LookupVersion(ws.SchemaVersion)
		if err != nil {
			v, _ = worksheet.LookupVersion(e.cfg.Worksheet.SchemaVersion)
		}
		fmt.Println(layout.RenderFields([]layout.Field{
			{Label: "Worksheet", Value: fmt.Sprint(ws.ID)},
			{Label: "Created", Value: ws.CreatedAt.Local().Format("2006-01-02 15:04:05")},
			{Label: "Hash", Value: ws.ContentHash},
		}))
		fmt.Println(layout.RenderWorksheet(v, ws.Content, ws.Themes, layout.DefaultWidth))
		return nil
	},
}

var worksheetResendCmd = &cobra.Command{
	Use:   "resend <email>",
	Short: "Email the user's current worksheet again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		user, err := e.user(ctx, args[0])
		if err != nil {
			return err
		}
		svc, err := e.delivery(ctx)
		if err != nil {
			return err
		}
		ws, err := svc.Resend(ctx, *user)
		if errors.Is(err, delivery.ErrNoWorksheet) {
			return fmt.Errorf("%s has no worksheet to resend", user.Email)
		}
		if err != nil {
			return err
		}
		fmt.Println(theme.OK.Render(fmt.Sprintf("Worksheet %d sent to %s", ws.ID, user.Email)))
		return nil
	},
}

func init() {
	worksheetShowCmd.Flags().Bool("raw", false, "Print the stored JSON")

	worksheetCmd.AddCommand(worksheetShowCmd)
	worksheetCmd.AddCommand(worksheetResendCmd)
}
