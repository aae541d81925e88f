package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/smartreview/pkg/models"
)

func submissionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "store", Aliases: []string{"s"}, Usage: "Store `ID` from the [[stores]] config", Required: true},
		&cli.IntFlag{Name: "rating", Aliases: []string{"r"}, Usage: "Star rating 1-5", Required: true},
		&cli.StringSliceFlag{Name: "aspect", Aliases: []string{"a"}, Usage: "Selected aspect (repeatable)"},
		&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "Free text from the customer"},
		&cli.StringFlag{Name: "locale", Aliases: []string{"l"}, Usage: "Locale, e.g. en or ja", Value: "en"},
		&cli.StringFlag{Name: "tone", Usage: "friendly, professional, casual or enthusiastic"},
		&cli.StringFlag{Name: "length", Usage: "short, medium or long"},
		&cli.StringSliceFlag{Name: "area", Usage: "Improvement area for low ratings (repeatable)"},
		&cli.StringFlag{Name: "contact", Usage: "Contact details for follow-up"},
		&cli.BoolFlag{Name: "follow-up", Usage: "Customer asked to be contacted"},
	}
}

func submissionFromFlags(c *cli.Context) models.Submission {
	sub := models.Submission{
		StoreID:          c.String("store"),
		Rating:           c.Int("rating"),
		SelectedAspects:  c.StringSlice("aspect"),
		FreeText:         c.String("text"),
		Locale:           c.String("locale"),
		DesiredTone:      models.Tone(c.String("tone")),
		DesiredLength:    models.ReviewLength(c.String("length")),
		ImprovementAreas: c.StringSlice("area"),
		FollowUp:         c.Bool("follow-up"),
	}
	if contact := strings.TrimSpace(c.String("contact")); contact != "" {
		sub.ContactInfo = &contact
	}
	return sub
}

// SubmitCommand routes a rating the same way the HTTP API does.
func SubmitCommand() *cli.Command {
	return &cli.Command{
		Name:   "submit",
		Usage:  "Submit a rating and let the engine choose review generation or feedback capture",
		Flags:  submissionFlags(),
		Action: runSubmit,
	}
}

func runSubmit(c *cli.Context) error {
	app, err := loadApp(c)
	if err != nil {
		return err
	}
	defer closeApp(app)

	out, err := app.Engine.Submit(c.Context, submissionFromFlags(c))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, out)
}

// GenerateCommand returns the review generation command
func GenerateCommand() *cli.Command {
	flags := append(submissionFlags(), &cli.BoolFlag{
		Name:  "dry-run",
		Usage: "Print the prompt that would be sent instead of calling the model",
	})
	return &cli.Command{
		Name:   "generate",
		Usage:  "Generate a review for a positive rating",
		Flags:  flags,
		Action: runGenerate,
	}
}

func runGenerate(c *cli.Context) error {
	app, err := loadApp(c)
	if err != nil {
		return err
	}
	defer closeApp(app)

	sub := submissionFromFlags(c)
	if c.Bool("dry-run") {
		store, err := app.Stores.GetStore(c.Context, sub.StoreID)
		if err != nil {
			return err
		}
		p, err := app.Reviews.Preview(models.GenerationRequest{Submission: sub, Store: *store})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "# platform=%s char_limit=%d words=%d-%d temperature=%.1f max_tokens=%d\n",
			p.Platform, p.CharLimit, p.MinWords, p.MaxWords, p.Temperature, p.MaxTokens)
		fmt.Fprintf(c.App.Writer, "## system\n%s\n\n## user\n%s\n", p.System, p.User)
		return nil
	}

	r, err := app.Engine.GenerateReview(c.Context, sub)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, r)
}

func printJSON(w io.Writer, v interface{}) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func closeApp(app *App) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Close(ctx); err != nil {
		app.Logger.Warn().Err(err).Msg("Shutdown was not clean")
	}
}
