package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/michaelssavage/spanish-worksheets/internal/llm"
	"github.com/michaelssavage/spanish-worksheets/internal/logger"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/layout"
	"github.com/michaelssavage/spanish-worksheets/internal/ui/theme"
	"github.com/michaelssavage/spanish-worksheets/internal/worksheet"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview an LLM-generated worksheet (no database)",
	Long: `Build the prompt, call the model, then extract and validate the reply,
rendering the result in the terminal.

This is a stateless developer tool: no database, no theme cursor, no
deduplication, no email. Useful for evaluating prompt and schema changes.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringSlice("themes", nil, "Comma-separated themes (default: the pool chosen by --pool)")
	previewCmd.Flags().Int("pool", 0, "Index of the configured theme pool to use")
	previewCmd.Flags().String("schema", "", "Schema version (default from config)")
	previewCmd.Flags().Bool("raw", false, "Also print the model's raw reply")
}

// errNoCursor keeps preview from touching the rotation.
var errNoCursor = errors.New("preview does not use the theme cursor")

type noCursor struct{}

func (noCursor) Increment(context.Context, string) (int64, error) { return 0, errNoCursor }

func runPreview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if s, _ := cmd.Flags().GetString("schema"); s != "" {
		cfg.Worksheet.SchemaVersion = s
	}
	if err := cfg.ValidateLLM(); err != nil {
		return fmt.Errorf("LLM provider: %w", err)
	}

	themes, _ := cmd.Flags().GetStringSlice("themes")
	if len(themes) == 0 {
		pool, _ := cmd.Flags().GetInt("pool")
		if pool < 0 || pool >= len(cfg.Worksheet.Pools) {
			return fmt.Errorf("--pool must be between 0 and %d", len(cfg.Worksheet.Pools)-1)
		}
		themes = cfg.Worksheet.Pools[pool]
	}

	log, err := logger.New(cfg.Log.Options())
	if err != nil {
		return err
	}
	defer log.Sync()

	// No EventRepo: request events are not recorded.
	provider, err := llm.NewProvider(ctx, cfg.LLM, nil, log)
	if err != nil {
		return fmt.Errorf("LLM provider: %w", err)
	}
	gen, err := worksheet.NewGenerator(provider, noCursor{}, nil, cfg.Worksheet, log)
	if err != nil {
		return err
	}

	fmt.Println(theme.Hint.Render(fmt.Sprintf("Generating %s worksheet with %s...", gen.Version().Name, provider.ModelID())))
	res, err := gen.Preview(ctx, themes)
	if err != nil {
		return err
	}

	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		fmt.Println(res.Raw)
	}
	if res.Outcome == worksheet.OutcomeMalformed {
		fmt.Println(theme.Failed.Render("✗ Malformed: " + res.Reason))
		return nil
	}

	fmt.Println(layout.RenderWorksheet(gen.Version(), res.Raw, res.Themes, layout.DefaultWidth))
	status := "✓ Valid"
	if res.Repaired {
		status += " (after repair)"
	}
	fmt.Println(theme.OK.Render(status))
	return nil
}
