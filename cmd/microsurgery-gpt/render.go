package main

import (
	"bytes"
	"io"
	"os"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
)

func isOutputTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// writeMarkdown styles md with glamour when w is a terminal and writes it raw
// otherwise.
func writeMarkdown(w io.Writer, md string, styled bool) error {
	if styled {
		out, err := glamour.Render(md, "dark")
		if err == nil {
			_, err = io.WriteString(w, out)
			return err
		}
		log.Warn().Err(err).Msg("could not render markdown, printing raw text")
	}
	_, err := io.WriteString(w, md)
	if err != nil {
		return err
	}
	if len(md) > 0 && md[len(md)-1] != '\n' {
		_, err = io.WriteString(w, "\n")
	}
	return err
}

func renderTemplate(name string, tmpl string, data any) (string, error) {
	t, err := template.New(name).Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buffer bytes.Buffer
	if err := t.Execute(&buffer, data); err != nil {
		return "", err
	}
	return buffer.String(), nil
}
