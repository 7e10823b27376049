package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the local database",
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the ignore-list and notes tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if dryRun {
			ui.DryRunMsg("Would drop and recreate all tables in %s", viper.GetString("db_path"))
			return nil
		}
		s, err := getStore()
		if err != nil {
			return err
		}
		if err := s.Recreate(cmd.Context()); err != nil {
			return err
		}
		ui.Success("Recreated tables in %s", viper.GetString("db_path"))
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbResetCmd)
	rootCmd.AddCommand(dbCmd)
}
