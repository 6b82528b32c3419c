package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/samcharles93/cinder/internal/variant"
	"github.com/urfave/cli/v3"
)

func variantsCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:  "variants",
		Usage: "List the model variants --which accepts",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the table as JSON",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if asJSON {
				return writeVariantsJSON(os.Stdout, variant.All())
			}
			return writeVariantsTable(os.Stdout, variant.All())
		},
	}
}

func writeVariantsTable(w io.Writer, vs []variant.Variant) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TAG\tINSTRUCT\tGQA\tFORMAT\tREPO\tFILE")
	for _, v := range vs {
		tag := v.Tag
		if tag == variant.DefaultTag {
			tag += " *"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%t\t%d\t%s\t%s\t%s\n", tag, v.Instruct, v.GQA, v.Format(), v.Repo, v.File)
	}
	return tw.Flush()
}

func writeVariantsJSON(w io.Writer, vs []variant.Variant) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(vs)
}
