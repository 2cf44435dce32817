package cli

import (
	"github.com/spf13/cobra"
)

type VerifyOptions struct {
	*GlobalOptions
	FailOnIssues bool
	LogLevel     string
}

// NewVerifyCmd creates the read-only "verify" sub-command, which lists the
// posts whose legacy fields have no normalized counterpart.
func NewVerifyCmd(global *GlobalOptions) *cobra.Command {
	opts := &VerifyOptions{GlobalOptions: global}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Report posts whose legacy data has not been migrated (read-only)",
		RunE: func(c *cobra.Command, args []string) error {
			return runVerify(c.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.FailOnIssues, "fail-on-issues", false, "Exit non-zero when inconsistent posts are found")
	cmd.Flags().StringVarP(&opts.LogLevel, "log-level", "l", "normal", "Log verbosity: minimal, normal or verbose")

	return cmd
}
