package main

import (
	"fmt"

	"github.com/nvr-ai/go-keyframes/keyframes"
	"github.com/nvr-ai/go-keyframes/shapes"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func inspectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("inspect: exactly one document path is required")
	}
	path := c.Args().First()

	doc, err := keyframes.ReadFile(path)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "document: %s\n", path)
	fmt.Fprintf(w, "frames:   %d\n", len(doc))
	if len(doc) > 0 {
		fmt.Fprintf(w, "span:     %.1f ms - %.1f ms\n", doc[0].TimestampMs, doc[len(doc)-1].TimestampMs)
	}
	fmt.Fprintf(w, "shapes:   %d\n", doc.ShapeCount())

	counts := doc.KindCounts()
	for _, kind := range shapes.Kinds {
		fmt.Fprintf(w, "  %-9s %d\n", kind.String()+":", counts[kind.String()])
	}
	return nil
}
