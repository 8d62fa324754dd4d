package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/Billy-Davies-2/futdraw/internal/imaging"
)

type cmdImage struct {
	In       string `long:"in" short:"i" required:"true" description:"Source image (PNG, JPEG or GIF)"`
	Out      string `long:"out" short:"O" required:"true" description:"Destination PNG"`
	MaxBytes int64  `long:"max-bytes" default:"10485760" description:"Largest accepted source image"`
}

func (cmd *cmdImage) Execute([]string) error {
	in, err := os.Open(cmd.In)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	png, err := imaging.Normalize(in, cmd.MaxBytes)
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.In, err)
	}
	if err := os.WriteFile(cmd.Out, png, 0o644); err != nil {
		return err
	}

	_, err = fmt.Fprintf(stdout, "%s (%s) -> %s (%s, %dx%d)\n",
		cmd.In, humanize.Bytes(uint64(info.Size())),
		cmd.Out, humanize.Bytes(uint64(len(png))),
		imaging.CardWidth, imaging.CardHeight)
	return err
}
