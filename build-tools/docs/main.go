// docs writes the man pages and markdown reference of ssdpd into a directory.
//
//	go run ./build-tools/docs <out dir>
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/forestnode-io/ssdpd/pkg/commands/root"
	"github.com/spf13/cobra/doc"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <out dir>", filepath.Base(os.Args[0]))
	}
	out := os.Args[1]

	cmd := root.CobraCommand()
	cmd.DisableAutoGenTag = true

	manDir := filepath.Join(out, "man")
	mdDir := filepath.Join(out, "md")
	for _, dir := range []string{manDir, mdDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal(err)
		}
	}

	header := doc.GenManHeader{
		Title:   "SSDPD",
		Section: "1",
		Source:  "https://github.com/forestnode-io/ssdpd",
	}
	if err := doc.GenManTree(cmd, &header, manDir); err != nil {
		log.Fatal(err)
	}
	if err := doc.GenMarkdownTree(cmd, mdDir); err != nil {
		log.Fatal(err)
	}
}
