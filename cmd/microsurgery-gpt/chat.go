package main

import (
	"context"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/microsurgery-gpt/pkg/events"
	"github.com/go-go-golems/microsurgery-gpt/pkg/gateway"
	"github.com/go-go-golems/microsurgery-gpt/pkg/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topic, _ := cmd.Flags().GetInt("topic")
			return runChat(cmd.Context(), topic)
		},
	}
	cmd.Flags().Int("topic", 0, "Start the conversation with suggested topic N")
	return cmd
}

func runChat(ctx context.Context, topic int) error {
	logger := watermill.NopLogger{}
	pubSub := events.NewGoChannel()
	defer func() {
		if err := pubSub.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close pubSub")
		}
	}()

	pm := events.NewPublisherManager()
	pm.RegisterPublisher(events.TopicSession, pubSub)

	s, err := newSession(session.WithPublisherManager(pm))
	if err != nil {
		return err
	}

	var initialQuery string
	if topic != 0 {
		t, ok := s.Persona().Topic(topic)
		if !ok {
			return errors.Errorf("no topic %d, see the topics command", topic)
		}
		initialQuery = t.Query
	}

	if err := configureSession(ctx, s, true); err != nil {
		return err
	}
	if !s.IsConfigured() {
		return gateway.ErrNotConfigured
	}

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return err
	}

	options := []tea.ProgramOption{
		tea.WithMouseCellMotion(), // turn on mouse support so we can track the mouse wheel
	}
	if !isOutputTerminal() {
		options = append(options, tea.WithOutput(os.Stderr))
	} else {
		options = append(options, tea.WithAltScreen())
	}

	glamourStyle := "light"
	if lipgloss.HasDarkBackground() {
		glamourStyle = "dark"
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(
		initialModel(ctx, s, glamourStyle, initialQuery),
		options...,
	)

	router.AddNoPublisherHandler("ui",
		events.TopicSession, pubSub,
		func(msg *message.Message) error {
			// a bad payload is dropped, a nack would redeliver it forever
			defer msg.Ack()

			e, err := events.NewEventFromJson(msg.Payload)
			if err != nil {
				log.Warn().Err(err).Msg("could not decode session event")
				return nil
			}
			p.Send(sessionEventMsg{Event: e})
			return nil
		})

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()

		select {
		case <-router.Running():
		case <-ctx.Done():
			return nil
		}

		if _, err := p.Run(); err != nil {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
