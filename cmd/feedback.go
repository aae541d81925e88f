package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/smartreview/internal/feedback"
	"github.com/smartreview/pkg/models"
)

// FeedbackCommand returns the feedback commands
func FeedbackCommand() *cli.Command {
	return &cli.Command{
		Name:  "feedback",
		Usage: "Capture and read private feedback",
		Subcommands: []*cli.Command{
			{
				Name:  "capture",
				Usage: "Capture feedback for a low rating",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "store", Aliases: []string{"s"}, Usage: "Store `ID`", Required: true},
					&cli.IntFlag{Name: "rating", Aliases: []string{"r"}, Usage: "Star rating 1-5", Required: true},
					&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "What went wrong", Required: true},
					&cli.StringFlag{Name: "locale", Aliases: []string{"l"}, Usage: "Locale of the text", Value: "en"},
					&cli.StringSliceFlag{Name: "area", Usage: "Improvement area (repeatable)"},
					&cli.StringFlag{Name: "contact", Usage: "Contact details for follow-up"},
					&cli.BoolFlag{Name: "follow-up", Usage: "Customer asked to be contacted"},
					&cli.BoolFlag{Name: "wait", Usage: "Wait for the improvement suggestion before printing"},
				},
				Action: runFeedbackCapture,
			},
			{
				Name:      "list",
				Usage:     "List a store's feedback, newest first",
				ArgsUsage: "STORE_ID",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.IntFlag{Name: "limit", Value: feedback.DefaultPageSize},
				},
				Action: runFeedbackList,
			},
		},
	}
}

func runFeedbackCapture(c *cli.Context) error {
	app, err := loadApp(c)
	if err != nil {
		return err
	}
	defer closeApp(app)

	req := models.FeedbackRequest{
		StoreID:          c.String("store"),
		Rating:           c.Int("rating"),
		FreeText:         c.String("text"),
		Locale:           c.String("locale"),
		ImprovementAreas: c.StringSlice("area"),
		FollowUpRequired: c.Bool("follow-up"),
	}
	if contact := strings.TrimSpace(c.String("contact")); contact != "" {
		req.ContactInfo = &contact
	}

	rec, err := app.Engine.CaptureFeedback(c.Context, req)
	if err != nil {
		return err
	}

	if c.Bool("wait") {
		ctx, cancel := context.WithTimeout(c.Context, app.Config.AI.OverallDeadline+5*time.Second)
		defer cancel()
		if err := app.WaitForSuggestions(ctx); err != nil {
			return fmt.Errorf("waiting for suggestion: %w", err)
		}
		if rec, err = app.Feedback.Get(c.Context, rec.ID); err != nil {
			return err
		}
	}
	return printJSON(c.App.Writer, rec)
}

func runFeedbackList(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one STORE_ID argument")
	}
	app, err := loadApp(c)
	if err != nil {
		return err
	}
	defer closeApp(app)

	records, err := app.Feedback.List(c.Context, c.Args().First(), c.Int("page"), c.Int("limit"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, records)
}
