package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/stac-utils/pgstac-go/contrib/pgstacload"
	"github.com/stac-utils/pgstac-go/pkg/connection"
	"github.com/stac-utils/pgstac-go/pkg/constants"
)

func main() {
	config := pgstacload.NewConfig()

	flag.StringVar(&config.DSN, "dsn", connection.GetEnvOrDefault(constants.EnvDSN, ""), "pgstac database connection string")
	flag.StringVar(&config.Input, "input", "", "Dump file to load (required)")
	flag.IntVar(&config.BatchSize, "batch-size", config.BatchSize, "Items per bulk upsert")
	flag.BoolVar(&config.Atomic, "atomic", false, "Load the whole dump in a single transaction")
	flag.BoolVar(&config.SkipVerify, "skip-verify", false, "Do not check the dump against its manifest")
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable verbose logging")
	flag.Parse()

	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	stats, err := pgstacload.Do(context.Background(), config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if stats.Failed > 0 {
		fmt.Fprintf(os.Stderr, "%d items were not loaded\n", stats.Failed)
		os.Exit(2)
	}
}
