package config

import (
	"flag"
	"os"
	"strings"

	"github.com/dmitrijs2005/gaiasync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-e string   TAP server base URL
//	-u string   Gaia archive username
//	-p string   Gaia archive password
//	-f string   path to the OPENCLUST clusters.dat file
//	-n string   comma-separated region names, or ALL
//	-s int      partition size (rows per remote query, <= 0 for unbounded)
//	-x float    extra-size multiplier applied to region dimensions
//	-w int      worker pool size
//	-r int      extra per-region retry attempts on transient failures
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with the -c/-config flags
//     handled by the JSON overlay.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-e", "-u", "-p", "-f", "-n", "-s", "-x", "-w", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.TAPEndpoint, "e", config.TAPEndpoint, "TAP server base URL")
	fs.StringVar(&config.Username, "u", config.Username, "Gaia archive username")
	fs.StringVar(&config.Password, "p", config.Password, "Gaia archive password")
	fs.StringVar(&config.CatalogueFile, "f", config.CatalogueFile, "OPENCLUST catalogue file")

	regions := fs.String("n", strings.Join(config.Regions, ","), "comma-separated region names, or ALL")

	fs.IntVar(&config.PartitionSize, "s", config.PartitionSize, "partition size (rows per remote query)")
	fs.Float64Var(&config.ExtraSize, "x", config.ExtraSize, "extra-size multiplier")
	fs.IntVar(&config.Workers, "w", config.Workers, "worker pool size")
	fs.IntVar(&config.RetryAttempts, "r", config.RetryAttempts, "extra per-region retry attempts")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	names := make([]string, 0)
	for _, name := range strings.Split(*regions, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		config.Regions = names
	}
}
