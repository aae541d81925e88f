package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/smartreview/internal/platforms"
	"github.com/smartreview/internal/prompts"
)

// PlatformsCommand lists the built-in platform limits and prompt locales.
func PlatformsCommand() *cli.Command {
	return &cli.Command{
		Name:  "platforms",
		Usage: "List review platforms with their character limits",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print as JSON"},
		},
		Action: func(c *cli.Context) error {
			limits := platforms.All()
			if c.Bool("json") {
				return printJSON(c.App.Writer, limits)
			}
			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PLATFORM\tMAX CHARS\tTONE")
			for _, l := range limits {
				fmt.Fprintf(w, "%s\t%d\t%s\n", l.PlatformName, l.MaxChars, l.ToneNorm)
			}
			fmt.Fprintf(w, "\nLocales: %v\n", prompts.SupportedLocales())
			return w.Flush()
		},
	}
}
