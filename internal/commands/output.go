package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/folio-dev/folio/internal/render"
)

const terminalWidth = 100

// printMarkdown writes md as is, or styled for the terminal when pretty.
func printMarkdown(cmd *cobra.Command, md string, pretty bool) error {
	if pretty {
		styled, err := render.Terminal(md, terminalWidth)
		if err != nil {
			return err
		}
		md = styled
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), md)
	return err
}
