package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/entry-report/internal/model"
	"github.com/sells-group/entry-report/internal/registry"
	"github.com/sells-group/entry-report/internal/store"
	"github.com/sells-group/entry-report/pkg/notion"
)

var templatesFile string

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage report section templates",
}

var templatesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load section templates from a YAML file or the Notion registry into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("templates"); err != nil {
			return err
		}

		templates, err := loadTemplates(ctx)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := syncTemplates(ctx, st, templates)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "synced %d templates\n", n)
		return nil
	},
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active section templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("templates"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		templates, err := st.ListTemplates(ctx)
		if err != nil {
			return eris.Wrap(err, "list templates")
		}
		return printTemplates(cmd.OutOrStdout(), registry.Prepare(templates))
	},
}

// loadTemplates reads templates from --file, or from Notion when no file is
// given.
func loadTemplates(ctx context.Context) ([]model.SectionTemplate, error) {
	if templatesFile != "" {
		return registry.LoadTemplatesFromFile(templatesFile)
	}
	if cfg.Notion.Token == "" || cfg.Notion.TemplateDB == "" {
		return nil, eris.New("templates: --file or notion.token and notion.template_db are required")
	}
	client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(3))
	return registry.LoadTemplateRegistry(ctx, client, cfg.Notion.TemplateDB)
}

// syncTemplates upserts templates into st.
func syncTemplates(ctx context.Context, st store.Store, templates []model.SectionTemplate) (int, error) {
	if len(templates) == 0 {
		return 0, eris.New("templates: nothing to sync")
	}
	n, err := st.UpsertTemplates(ctx, templates)
	if err != nil {
		return 0, eris.Wrap(err, "upsert templates")
	}
	zap.L().Info("templates synced", zap.Int("count", n))
	return n, nil
}

func printTemplates(w io.Writer, templates []model.SectionTemplate) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tSECTION\tTIER\tTITLE")
	for _, t := range templates {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.SortOrder, t.Name, t.RequiredTier, t.Title)
	}
	return tw.Flush()
}

func init() {
	templatesSyncCmd.Flags().StringVar(&templatesFile, "file", "", "YAML template file (default: Notion registry)")
	templatesCmd.AddCommand(templatesSyncCmd, templatesListCmd)
	rootCmd.AddCommand(templatesCmd)
}
