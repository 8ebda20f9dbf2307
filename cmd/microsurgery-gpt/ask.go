package main

import (
	"io"
	"os"
	"strings"

	"github.com/go-go-golems/microsurgery-gpt/pkg/gateway"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newAskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and print the answer",
		Long: "Ask a single question and print the answer. Without arguments the " +
			"question is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			question := strings.Join(args, " ")

			topic, _ := cmd.Flags().GetInt("topic")
			if topic != 0 {
				p, err := loadPersona()
				if err != nil {
					return err
				}
				t, ok := p.Topic(topic)
				if !ok {
					return errors.Errorf("no topic %d, see the topics command", topic)
				}
				question = t.Query
			}

			if question == "" {
				b, err := io.ReadAll(os.Stdin)
				if err != nil {
					return errors.Wrap(err, "could not read question from stdin")
				}
				question = string(b)
			}
			if strings.TrimSpace(question) == "" {
				return errors.New("no question given")
			}

			s, err := newSession()
			if err != nil {
				return err
			}
			if err := configureSession(ctx, s, true); err != nil {
				return err
			}
			if !s.IsConfigured() {
				return gateway.ErrNotConfigured
			}

			reply, err := s.Send(ctx, question)
			if err != nil {
				return err
			}
			if reply.IsError {
				return errors.New(reply.Text)
			}

			plain, _ := cmd.Flags().GetBool("plain")
			return writeMarkdown(os.Stdout, reply.Text, !plain && isOutputTerminal())
		},
	}
	cmd.Flags().Bool("plain", false, "Print the raw markdown answer")
	cmd.Flags().Int("topic", 0, "Ask suggested topic N instead of a question")
	return cmd
}
