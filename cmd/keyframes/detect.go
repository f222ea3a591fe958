package main

import (
	"encoding/json"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-keyframes/keyframes"
	"github.com/nvr-ai/go-keyframes/shapes"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// imageResult is one entry of the detect command output.
type imageResult struct {
	Path   string            `json:"path"`
	Shapes []keyframes.Shape `json:"shapes"`
}

func detectAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("detect: at least one image path is required")
	}

	detector, err := shapes.NewDetector(detectionConfig(c, shapes.DefaultConfig()))
	if err != nil {
		return err
	}

	out := make([]imageResult, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return errors.Wrapf(err, "detect: open %s", path)
		}

		records, err := detector.DetectImage(img)
		if err != nil {
			return errors.Wrapf(err, "detect: %s", path)
		}

		result := imageResult{Path: path, Shapes: make([]keyframes.Shape, 0, len(records))}
		for _, rec := range records {
			result.Shapes = append(result.Shapes, keyframes.FromRecord(rec))
		}
		out = append(out, result)
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "    ")
	return errors.Wrap(enc.Encode(out), "detect: write output")
}
