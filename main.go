package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig         = "config"
	flagLogLevel       = "log-level"
	flagLogFormat      = "log-format"
	flagDataset        = "dataset"
	flagOutput         = "output"
	flagExtension      = "extension"
	flagMaxImages      = "max-images"
	flagIoU            = "iou"
	flagJSON           = "json"
	flagOutputDir      = "output-dir"
	flagRecursive      = "recursive"
	flagRemoveOriginal = "remove-original"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "sigdet",
		Usage: "detect signatures in document images and draw them next to the ground truth",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"SIGDET_CONFIG"},
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "log level (trace, debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  flagLogFormat,
				Usage: "log format (text or json)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "annotate every dataset image with predicted (green) and ground-truth (red) boxes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagDataset, Usage: "dataset `DIR` containing images/ and labels/"},
					&cli.StringFlag{Name: flagOutput, Usage: "output `DIR` for annotated images"},
					&cli.StringFlag{Name: flagExtension, Usage: "image extension to process"},
				},
				Action: runAction,
			},
			{
				Name:  "evaluate",
				Usage: "compute precision, recall, F1 and AP over a labelled dataset",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagDataset, Usage: "dataset `DIR` containing images/ and labels/"},
					&cli.StringFlag{Name: flagExtension, Usage: "image extension to evaluate"},
					&cli.IntFlag{Name: flagMaxImages, Usage: "evaluate only the first `N` images (0 = all)", EnvVars: []string{"MAX_IMAGES"}},
					&cli.Float64Flag{Name: flagIoU, Value: 0.5, Usage: "IoU threshold for a true positive"},
					&cli.BoolFlag{Name: flagJSON, Usage: "print the result as JSON"},
				},
				Action: evaluateAction,
			},
			{
				Name:      "decode",
				Usage:     "decode *.base64 image dumps",
				ArgsUsage: "<file or directory>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagOutputDir, Usage: "write decoded files to `DIR`"},
					&cli.BoolFlag{Name: flagRecursive, Aliases: []string{"r"}, Usage: "descend into subdirectories"},
					&cli.BoolFlag{Name: flagRemoveOriginal, Usage: "delete each .base64 file after decoding it"},
				},
				Action: decodeAction,
			},
		},
	}
}
