// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"refiner-cli/internal/issue"
	"refiner-cli/internal/model"
	"refiner-cli/internal/refine"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var (
	schemaPlain bool

	schemaCmd = &cobra.Command{
		Use:   "schema",
		Short: "Show the refined database schema",
		Long: `Show the off-chain schema document produced by the last refinement
run: the schema metadata and the full DDL of the refined database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd)
		},
	}
)

func init() {
	schemaCmd.Flags().BoolVar(&schemaPlain, "plain", false, "print the raw DDL without rendering")
}

func runSchema(cmd *cobra.Command) error {
	cfg := loadConfig()

	path := filepath.Join(cfg.OutputDir, refine.SchemaFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("read schema document").
			WithResource(path).
			WithSuggestion("Run `refiner refine` first to produce the schema").
			Wrap(err).
			BuildError()
	}

	var schema model.OffChainSchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	if schemaPlain {
		fmt.Fprintln(out, schema.SchemaDefinition)
		return nil
	}

	md := fmt.Sprintf("# %s %s\n\n%s\n\n```sql\n%s\n```\n",
		schema.Name, schema.Version, schema.Description, schema.SchemaDefinition)
	rendered, err := glamour.Render(md, "dark")
	if err != nil {
		// Fall back to the raw document when the terminal renderer fails.
		fmt.Fprintln(out, schema.SchemaDefinition)
		return nil
	}
	fmt.Fprint(out, rendered)
	return nil
}
