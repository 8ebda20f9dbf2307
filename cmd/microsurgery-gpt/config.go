package main

import (
	"context"
	"os"
	"strings"

	"github.com/go-go-golems/microsurgery-gpt/pkg/gateway"
	"github.com/go-go-golems/microsurgery-gpt/pkg/gateway/gemini"
	"github.com/go-go-golems/microsurgery-gpt/pkg/persona"
	"github.com/go-go-golems/microsurgery-gpt/pkg/security"
	"github.com/go-go-golems/microsurgery-gpt/pkg/session"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/tcnksm/go-input"
)

func loadPersona() (*persona.Settings, error) {
	p := persona.Default()
	if path := viper.GetString("persona-file"); path != "" {
		var err error
		p, err = persona.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
	}
	if model := viper.GetString("model"); model != "" {
		p.Model = model
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func newSession(options ...session.Option) (*session.Session, error) {
	p, err := loadPersona()
	if err != nil {
		return nil, err
	}
	baseURL := viper.GetString("gemini-base-url")
	if err := endpointPolicy().ValidateEndpoint(baseURL); err != nil {
		return nil, errors.Wrap(err, "gemini-base-url")
	}
	factory := gemini.NewFactory(gemini.WithBaseURL(baseURL))
	gw := gateway.New(factory, gateway.WithPersona(p))
	return session.NewSession(gw, options...)
}

func endpointPolicy() security.EndpointPolicy {
	allowLocal := viper.GetBool("allow-local-endpoints")
	return security.EndpointPolicy{
		AllowHTTP:  allowLocal,
		AllowLocal: allowLocal,
	}
}

// configureSession installs the API key from the environment, or asks for it
// once when interactive is set and stdin is a terminal. The session stays
// unconfigured when no key is available.
func configureSession(ctx context.Context, s *session.Session, interactive bool) error {
	apiKey := strings.TrimSpace(viper.GetString("api-key"))
	if apiKey == "" && interactive && isatty.IsTerminal(os.Stdin.Fd()) {
		var err error
		apiKey, err = askAPIKey()
		if err != nil {
			return err
		}
	}
	if apiKey == "" {
		log.Debug().Msg("no API key available, session stays unconfigured")
		return nil
	}
	return s.Configure(ctx, apiKey)
}

func askAPIKey() (string, error) {
	ui := &input.UI{
		Writer: os.Stderr,
		Reader: os.Stdin,
	}
	query := "Enter your Gemini API key to access the reconstructive surgery assistant"
	answer, err := ui.Ask(query, &input.Options{
		Required:  true,
		Loop:      true,
		Mask:      true,
		HideOrder: true,
		ValidateFunc: func(answer string) error {
			if strings.TrimSpace(answer) == "" {
				return errors.New("the API key cannot be empty")
			}
			return nil
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "could not read API key")
	}
	return strings.TrimSpace(answer), nil
}
