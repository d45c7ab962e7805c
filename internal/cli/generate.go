package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func generateCommand(cfg *settings) *cli.Command {
	var download bool

	return &cli.Command{
		Name:      "generate",
		Aliases:   []string{"gen"},
		Usage:     "Generate images for one prompt",
		ArgsUsage: "<prompt...>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "download",
				Aliases:     []string{"d"},
				Usage:       "Save the images to the download directory",
				Destination: &download,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			w := c.Root().Writer
			cl, err := newClient(cfg, w, nil)
			if err != nil {
				return err
			}
			return cl.generateOnce(ctx, strings.Join(c.Args().Slice(), " "), download)
		},
	}
}

func (c *client) generateOnce(ctx context.Context, prompt string, download bool) error {
	stop := followSpinner(c.orch, c.out)
	res := c.orch.Generate(ctx, prompt)
	stop()
	if !res.Succeeded() {
		return goerr.New(res.Message, goerr.V("kind", res.Kind))
	}

	entry, _ := c.orch.Current()
	printEntry(c.out, entry, c.now())
	if !download {
		return nil
	}
	for i, img := range entry.Images {
		path, err := c.downloader.Save(ctx, img.URL, i+1)
		if err != nil {
			return goerr.Wrap(err, "failed to save image", goerr.V("index", i+1))
		}
		fmt.Fprintf(c.out, "saved %s\n", path)
	}
	return nil
}
