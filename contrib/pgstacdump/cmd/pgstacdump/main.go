package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/stac-utils/pgstac-go/contrib/pgstacdump"
	"github.com/stac-utils/pgstac-go/pkg/connection"
	"github.com/stac-utils/pgstac-go/pkg/constants"
)

func main() {
	config := pgstacdump.NewConfig()

	flag.StringVar(&config.DSN, "dsn", connection.GetEnvOrDefault(constants.EnvDSN, ""), "pgstac database connection string")
	flag.StringVar(&config.Output, "output", "", "Output file path (required)")
	flag.StringVar(&config.Dir, "dir", "", "Base directory for dumps (prefixes output path)")
	flag.IntVar(&config.PageSize, "page-size", config.PageSize, "Items read per search page")
	flag.Func("format", "Dump framing: ndjson or cbor (default ndjson)", func(v string) error {
		config.Format = pgstacdump.Format(v)
		return config.Format.Validate()
	})
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable verbose logging")

	var collections string
	flag.StringVar(&collections, "collections", "", "Comma-separated list of collections to dump (empty means all)")

	flag.Parse()

	if collections != "" {
		for _, c := range strings.Split(collections, ",") {
			if c = strings.TrimSpace(c); c != "" {
				config.Collections = append(config.Collections, c)
			}
		}
	}

	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	if err := pgstacdump.Do(context.Background(), config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
