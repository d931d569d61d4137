/*
Package runner implements the interactive chat loop in front of the session manager.

The runner reads utterances through a pluggable IOHandler, submits them, prints the
assistant's turns and, when a turn carries a form, asks the handler to fill it and
answers the prompt. Validation failures are shown and the form is asked again.

# Key Components

  - Runner: the loop. It only needs the Conversation methods of session.Manager.
  - IOHandler: decouples how turns are shown and input is read (text, JSON lines).
  - TextHandler: line-based terminal I/O with optional markdown, card and form renderers.
  - JSONHandler: one JSON document per line, for scripting and pipes.

# Usage

	r := runner.NewRunner(manager,
		runner.WithSessionID("user-1"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
