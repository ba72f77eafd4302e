package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/michaelssavage/spanish-worksheets/internal/logger"
	"github.com/michaelssavage/spanish-worksheets/internal/mail"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/theme"
)

var testEmailCmd = &cobra.Command{
	Use:   "test-email",
	Short: "Send a Mailgun test message",
	RunE: func(cmd *cobra.Command, args []string) error {
		to, _ := cmd.Flags().GetStringSlice("to")
		if len(to) == 0 {
			if env := os.Getenv("TEST_EMAIL_TO"); env != "" {
				to = []string{env}
			}
		}
		if len(to) == 0 {
			return errors.New("no recipient: pass --to or set TEST_EMAIL_TO")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.Log.Options())
		if err != nil {
			return err
		}
		defer log.Sync()

		if err := mail.New(cfg.Mail, log).Send(cmd.Context(), mail.TestMessage(to)); err != nil {
			return fmt.Errorf("send test email: %w", err)
		}
		fmt.Println(theme.OK.Render(fmt.Sprintf("Test email sent to %v", to)))
		return nil
	},
}

func init() {
	testEmailCmd.Flags().StringSlice("to", nil, "Recipient address (default: TEST_EMAIL_TO)")
}
