package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skystats/skystats/internal/core"
	errwrap "github.com/skystats/skystats/internal/errors"
	"github.com/skystats/skystats/internal/output"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change display preferences",
}

var prefsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show stored preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		prefs, err := db.GetPreferences(cmd.Context())
		if err != nil {
			return err
		}
		return writeDocument(cmd, "prefs", output.PreferencesDocument(prefs))
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a preference",
	Long: fmt.Sprintf(`Change a preference.

Keys:
  %s   C or F
  %s         light or dark`, core.PrefTemperatureUnit, core.PrefThemeMode),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		value, err := db.SetPreference(cmd.Context(), args[0], args[1])
		if err != nil {
			return errwrap.NewInvalidInputError(err.Error())
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], value)
		return err
	},
}

func init() {
	addOutputFlags(prefsGetCmd)
	prefsCmd.AddCommand(prefsGetCmd)
	prefsCmd.AddCommand(prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}
