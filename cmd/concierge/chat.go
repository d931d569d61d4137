package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/concierge/internal/cli"
	"github.com/aretw0/concierge/internal/presentation/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat [session-id]",
	Short: "Chat with the assistant in the terminal",
	Long: `Starts an interactive chat. Forms open as terminal forms when stdin and stdout
are a TTY and are asked field by field otherwise. Passing an existing session ID
replays its transcript and resumes it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		fresh, _ := cmd.Flags().GetBool("fresh")
		quiet, _ := cmd.Flags().GetBool("quiet")
		debug, _ := cmd.Flags().GetBool("debug")

		sigCtx := cli.WithInterrupt(cmd.Context())
		defer sigCtx.Stop()

		// Logs would tear the chat UI apart unless asked for.
		var opts []cli.AppOption
		if !debug {
			opts = append(opts, cli.WithLogOutput(io.Discard))
		}
		app, err := loadApp(sigCtx, cmd, opts...)
		if err != nil {
			return err
		}
		defer app.Close()

		chatOpts := cli.ChatOptions{
			Fresh: fresh,
			JSON:  jsonMode,
			Rich:  !jsonMode && tui.IsInteractive(),
			Quiet: quiet,
			In:    os.Stdin,
			Out:   os.Stdout,
		}
		if len(args) > 0 {
			chatOpts.SessionID = args[0]
		}
		err = cli.Chat(sigCtx, app, chatOpts)
		if sigCtx.Interrupted() && !jsonMode && !quiet {
			cmd.Println("\n>>> Interrupted.")
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("json", false, "Use JSON-Lines input and output")
	chatCmd.Flags().Bool("fresh", false, "Delete the session before starting")
	chatCmd.Flags().BoolP("quiet", "q", false, "Skip the banner and status messages")
	chatCmd.Flags().Bool("debug", false, "Write logs to stderr")
}
