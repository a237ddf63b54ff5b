// Package main implements the genconfig tool that writes config.default.toml
// from config.DefaultConfig() annotated with config.ConfigDocs.
//
// It is invoked by go generate via the directive in internal/config/config.go.
package main

import (
	"fmt"
	"os"

	"tools.zach/dev/hexmap/internal/atomicfile"
	"tools.zach/dev/hexmap/internal/config"
)

// go generate runs from internal/config/, so ../../ reaches the repo root
// where configdata.go embeds config.default.toml.
const defaultOutPath = "../../config.default.toml"

func main() {
	outPath := defaultOutPath
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}
	if err := generate(outPath); err != nil {
		fmt.Fprintf(os.Stderr, "genconfig: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", outPath)
}

// generate renders the documented default config and writes it to outPath.
func generate(outPath string) error {
	data, err := config.RenderDocumented(config.DefaultConfig())
	if err != nil {
		return err
	}
	if err := atomicfile.Write(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	return nil
}
