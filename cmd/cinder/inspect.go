package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samcharles93/cinder/internal/gguf"
	"github.com/samcharles93/cinder/internal/variant"
	"github.com/urfave/cli/v3"
)

// arrayDisplayLimit is the longest metadata array printed in full.
const arrayDisplayLimit = 8

func inspectCmd() *cli.Command {
	var (
		showKV      bool
		showTensors int64
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the metadata, vocabulary and tensor directory of a GGUF file",
		ArgsUsage: "<path.gguf>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "kv",
				Usage:       "show all metadata key/values",
				Destination: &showKV,
			},
			&cli.Int64Flag{
				Name:        "tensors",
				Usage:       "number of tensors to list (0 to skip, -1 for all)",
				Value:       20,
				Destination: &showTensors,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return cli.Exit("usage: cinder inspect [--kv] [--tensors N] <path.gguf>", 2)
			}
			f, err := gguf.Open(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			writeInspect(os.Stdout, f, showKV, int(showTensors))
			return nil
		},
	}
}

func writeInspect(w io.Writer, f *gguf.File, showKV bool, tensors int) {
	_, _ = fmt.Fprintf(w, "File: %s\n", f.Path)
	_, _ = fmt.Fprintf(w, "GGUF v%d | tensors=%d | kv=%d | alignment=%d | data_offset=%d | params=%d\n",
		f.Header.Version, f.Header.TensorCount, f.Header.KVCount, f.Alignment, f.DataOffset, f.ParamCount())
	if tag, ok := variantForFile(f.Path); ok {
		_, _ = fmt.Fprintf(w, "Variant: %s\n", tag)
	}

	arch := f.Architecture()
	keys := []string{"general.name", "general.architecture", "general.file_type", "general.quantization_version"}
	if arch != "" {
		for _, k := range []string{
			"context_length", "embedding_length", "block_count", "feed_forward_length",
			"attention.head_count", "attention.head_count_kv", "rope.freq_base",
		} {
			keys = append(keys, arch+"."+k)
		}
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Model:")
	for _, k := range keys {
		writeKey(w, f.KV, k)
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Tokenizer:")
	if v, err := f.Vocab(); err != nil {
		_, _ = fmt.Fprintf(w, "  unavailable: %v\n", err)
	} else {
		_, _ = fmt.Fprintf(w, "  %-36s %s\n", "model:", v.Model)
		_, _ = fmt.Fprintf(w, "  %-36s %d\n", "tokens:", len(v.Tokens))
		_, _ = fmt.Fprintf(w, "  %-36s %s\n", "bos:", tokenLabel(v, v.BOS))
		_, _ = fmt.Fprintf(w, "  %-36s %s\n", "eos:", tokenLabel(v, v.EOS))
		_, _ = fmt.Fprintf(w, "  %-36s %s\n", "unk:", tokenLabel(v, v.UNK))
		_, _ = fmt.Fprintf(w, "  %-36s %t\n", "add_bos:", v.AddBOS)
	}

	if showKV {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "All metadata:")
		names := make([]string, 0, len(f.KV))
		for k := range f.KV {
			names = append(names, k)
		}
		slices.Sort(names)
		for _, k := range names {
			_, _ = fmt.Fprintf(w, "  %s = %s\n", k, f.KV[k].Format(arrayDisplayLimit))
		}
	}

	if tensors == 0 || len(f.Tensors) == 0 {
		return
	}
	count := len(f.Tensors)
	if tensors < 0 || tensors > count {
		tensors = count
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Tensors:")
	for _, t := range f.Tensors[:tensors] {
		_, _ = fmt.Fprintf(w, "  %-40s %-6s dims=%s off=%d\n", t.Name, t.Type, formatDims(t.Dims), t.Offset)
	}
	if tensors < count {
		_, _ = fmt.Fprintf(w, "  ... (%d more)\n", count-tensors)
	}
}

func writeKey(w io.Writer, kv gguf.KV, key string) {
	if v, ok := kv[key]; ok {
		_, _ = fmt.Fprintf(w, "  %-36s %s\n", key+":", v.Format(arrayDisplayLimit))
	}
}

func tokenLabel(v gguf.Vocab, id int) string {
	if id < 0 {
		return "-"
	}
	return fmt.Sprintf("%d %q", id, v.Tokens[id])
}

func formatDims(dims []uint64) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(parts, "x") + "]"
}

// variantForFile matches a weight file name against the variant table.
func variantForFile(path string) (string, bool) {
	name := filepath.Base(path)
	for _, v := range variant.All() {
		if v.File == name {
			return v.Tag, true
		}
	}
	return "", false
}
