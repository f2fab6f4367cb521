package cli

import (
	"github.com/spf13/cobra"
)

// NewCommand builds the vectex root command. The outcome of the last
// execution is stored in *res.
func NewCommand(env Env, res *CLIResult) *cobra.Command {
	var configPath, logLevel string

	cmd := &cobra.Command{
		Use:   "vectex <filename> [color]",
		Short: "Render a LaTeX math expression from stdin to a colorized SVG",
		Long: `vectex reads a LaTeX math expression from standard input, typesets it
with latex, converts the result with dvisvgm and writes an SVG whose
paths and rects are filled with a single color (default #000000) to
<filename>. No extension is appended to <filename>.

latex and dvisvgm must be installed, or configured with --config.`,
		Args: func(_ *cobra.Command, args []string) error {
			_, err := ParseInvocation(args)
			return err
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			inv, err := ParseInvocation(args)
			if err != nil {
				return err
			}
			inv.ConfigPath = configPath
			inv.LogLevel = logLevel

			r, err := Execute(c.Context(), inv, env)
			*res = r
			return err
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return invalidInvocationf("%v", err)
	})
	cmd.Flags().StringVar(&configPath, "config", "", "TOML configuration file")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (panic|fatal|error|warning|info|debug|trace)")

	if env.Stdin != nil {
		cmd.SetIn(env.Stdin)
	}
	if env.Stdout != nil {
		cmd.SetOut(env.Stdout)
	}
	if env.Stderr != nil {
		cmd.SetErr(env.Stderr)
	}
	return cmd
}
