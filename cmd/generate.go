package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/michaelssavage/spanish-worksheets/internal/ui/layout"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/theme"
	"github.com/michaelssavage/spanish-worksheets/internal/worksheet"
)

var generateCmd = &cobra.Command{
	Use:   "generate <email>",
	Short: "Generate and email a worksheet for one user now",
	Long: `Run the generation pipeline for a single user outside the schedule.
The theme cursor advances and a created worksheet replaces the user's
previous one. The user's next delivery date is not changed.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().Bool("show", false, "Render the worksheet in the terminal")
}

func runGenerate(cmd *cobra.Command, args []string) error {
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

	res, err := svc.Generate(ctx, *user)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	switch res.Outcome {
	case worksheet.OutcomeDuplicate:
		return fmt.Errorf("duplicate worksheet, nothing stored (themes: %v)", res.Themes)
	case worksheet.OutcomeMalformed:
		return fmt.Errorf("model output malformed: %s", res.Reason)
	}

	ws := res.Worksheet
	fmt.Println(theme.OK.Render(fmt.Sprintf("Worksheet %d created for %s", ws.ID, user.Email)))
	if res.Repaired {
		fmt.Println(theme.Hint.Render("Output needed one repair pass."))
	}
	if res.Emailed {
		fmt.Println(theme.OK.Render("Emailed."))
	} else if res.EmailErr != nil {
		fmt.Println(theme.Failed.Render("Email failed: " + res.EmailErr.Error()))
	}

	if show, _ := cmd.Flags().GetBool("show"); show {
		v, err := worksheet.LookupVersion(ws.SchemaVersion)
		if err != nil {
			return err
		}
		fmt.Println(layout.RenderWorksheet(v, ws.Content, ws.Themes, layout.DefaultWidth))
	}
	return nil
}
