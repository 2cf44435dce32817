// Package cli handles the command-line interface logic
// using the Cobra library.
package cli

import (
	"github.com/spf13/cobra"
)

// GlobalOptions are shared by every sub-command.
type GlobalOptions struct {
	MappingFile string
	LogFile     string
}

func NewRootCmd() *cobra.Command {
	global := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "postmig",
		Short: "postmig - migrate legacy blog taxonomy and images to normalized tables",
		Long: `postmig moves the comma-separated categories and tags and the single image
url stored on each post into first-class category, tag and image rows, links
them to their posts, repairs posts left half-migrated by earlier runs and can
finally clear the legacy columns. Every phase is safe to re-run.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&global.MappingFile, "mapping", "m", "", "Path to a table/column mapping file (defaults to the built-in layout)")
	rootCmd.PersistentFlags().StringVar(&global.LogFile, "log-file", "", "Also append log output to this file")

	rootCmd.AddCommand(NewMigrateCmd(global))
	rootCmd.AddCommand(NewVerifyCmd(global))

	return rootCmd
}
