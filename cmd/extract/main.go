package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/m-nakagawa/cookmark/internal/ai"
	"github.com/m-nakagawa/cookmark/internal/ai/gemini"
	"github.com/m-nakagawa/cookmark/internal/ai/openai"
	"github.com/m-nakagawa/cookmark/internal/extract"
)

// Command line front end for the extraction pipeline. Runs without a store:
// category guidance comes from the --categories flag, if any.
func main() {
	app := &cli.App{
		Name:  "extract",
		Usage: "run the recipe extraction pipeline against a URL or pasted text",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "gemini-model",
				Usage: "Gemini model name",
			},
			&cli.StringFlag{
				Name:  "openai-model",
				Usage: "OpenAI model name",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "per-provider request timeout",
				Value: 45 * time.Second,
			},
			&cli.StringSliceFlag{
				Name:  "categories",
				Usage: "known category names to bias classification",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "only log errors",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "url",
				Usage:     "fetch a recipe page and extract it",
				ArgsUsage: "<url>",
				Action:    urlAction,
			},
			{
				Name:  "text",
				Usage: "extract from text piped on stdin",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "source-url",
						Usage: "original page URL, recorded with the result",
					},
				},
				Action: textAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func urlAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: extract url <url>", 2)
	}

	svc, logger := buildService(c)
	res, err := svc.ExtractFromURL(c.Context, c.Args().First())
	if err != nil {
		logger.Error("extract failed", "error", err)
		return cli.Exit(err.Error(), 1)
	}
	return printResult(res)
}

func textAction(c *cli.Context) error {
	text, err := io.ReadAll(os.Stdin)
	if err != nil {
		return cli.Exit(fmt.Sprintf("read stdin: %v", err), 2)
	}

	svc, logger := buildService(c)
	res, err := svc.ExtractFromText(c.Context, string(text), c.String("source-url"))
	if err != nil {
		logger.Error("extract failed", "error", err)
		return cli.Exit(err.Error(), 1)
	}
	return printResult(res)
}

func buildService(c *cli.Context) (*extract.Service, *slog.Logger) {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	providers := []ai.Generator{
		gemini.NewClient(gemini.Config{
			Model:   c.String("gemini-model"),
			Timeout: c.Duration("timeout"),
		}, logger),
		openai.NewClient(openai.Config{
			Model:   c.String("openai-model"),
			Timeout: c.Duration("timeout"),
		}, logger),
	}
	gateway := ai.NewGateway(providers, logger)

	var categories extract.CategorySource
	if names := c.StringSlice("categories"); len(names) > 0 {
		categories = staticCategories(names)
	}

	return extract.NewService(gateway, categories, extract.Config{}, logger), logger
}

type staticCategories []string

func (s staticCategories) CategoryNames(_ context.Context) ([]string, error) {
	return s, nil
}

func printResult(res *extract.Result) error {
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
