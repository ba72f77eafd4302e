package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/michaelssavage/spanish-worksheets/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API bearer tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <email>",
	Short: "Issue a bearer token for a user",
	Long: `Print a signed bearer token for the user. The token is accepted by the
worksheet endpoints of "hojas serve" until it expires. JWT_SECRET must match
the server's.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		if e.cfg.HTTP.JWTSecret == "" {
			return errors.New("JWT_SECRET is required to issue tokens")
		}
		ttl := e.cfg.HTTP.TokenTTL
		if cmd.Flags().Changed("ttl") {
			ttl, _ = cmd.Flags().GetDuration("ttl")
		}
		tokens, err := auth.New(e.cfg.HTTP.JWTSecret, ttl)
		if err != nil {
			return err
		}

		u, err := e.user(ctx, args[0])
		if err != nil {
			return err
		}
		tok, err := tokens.Issue(u.ID, u.Email)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		fmt.Fprintf(os.Stderr, "valid for %s\n", tokens.TTL())
		return nil
	},
}

func init() {
	tokenIssueCmd.Flags().Duration("ttl", auth.DefaultTTL, "Token lifetime")

	tokenCmd.AddCommand(tokenIssueCmd)
}
