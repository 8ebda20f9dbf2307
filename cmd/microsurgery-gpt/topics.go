package main

import (
	"os"

	"github.com/spf13/cobra"
)

const topicsTemplate = `# {{ .Name }} research topics
{{ range $idx, $topic := .Topics }}
{{ add $idx 1 }}. **{{ $topic.Title }}**
   {{ $topic.Query | trim }}
{{ end }}
> {{ .Disclaimer }}
`

func newTopicsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List the suggested research topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPersona()
			if err != nil {
				return err
			}
			md, err := renderTemplate("topics", topicsTemplate, p)
			if err != nil {
				return err
			}
			plain, _ := cmd.Flags().GetBool("plain")
			return writeMarkdown(os.Stdout, md, !plain && isOutputTerminal())
		},
	}
	cmd.Flags().Bool("plain", false, "Print raw markdown")
	return cmd
}
