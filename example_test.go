package pgstac_test

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	pgstac "github.com/stac-utils/pgstac-go"
	"github.com/stac-utils/pgstac-go/pkg/connection"
	"github.com/stac-utils/pgstac-go/pkg/models"
)

func ExampleNew() {
	ctx := context.Background()

	cfg, err := connection.NewConfigFromEnv()
	if err != nil {
		panic(err)
	}
	pool, err := connection.Connect(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	client := pgstac.New(pool, pgstac.WithLogger(zerolog.New(os.Stderr)))
	version, err := client.Version(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Println("pgstac", version)
}

func ExampleClient_Item() {
	ctx := context.Background()
	pool, err := connection.Connect(ctx, connection.NewConfig(os.Getenv("PGSTAC_DSN")))
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	client := pgstac.New(pool)
	item, err := client.Item(ctx, "landsat-c2-l2", "LC08_L2SP_034032_20230107")
	switch {
	case errors.Is(err, pgstac.ErrNotFound):
		fmt.Println("no such item")
	case err != nil:
		panic(err)
	default:
		fmt.Println(item.ID, item.Properties["platform"])
	}
}

func ExampleClient_UpsertItems() {
	ctx := context.Background()
	pool, err := connection.Connect(ctx, connection.NewConfig(os.Getenv("PGSTAC_DSN")))
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	client := pgstac.New(pool)
	items := []models.Item{models.NewItem("a"), models.NewItem("b")}
	for i := range items {
		items[i].Collection = "collection-id"
	}

	result, err := client.UpsertItems(ctx, items)
	if errors.Is(err, pgstac.ErrPartialFailure) {
		for _, o := range result.Failed() {
			fmt.Printf("item %d (%s) not written: %v\n", o.Index, o.ID, o.Err)
		}
	} else if err != nil {
		panic(err)
	}
	fmt.Println(len(result.Succeeded()), "items written")
}

func ExampleClient_SearchPages() {
	ctx := context.Background()
	pool, err := connection.Connect(ctx, connection.NewConfig(os.Getenv("PGSTAC_DSN")))
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	search := pgstac.Search{
		Collections: []string{"landsat-c2-l2"},
		Bbox:        models.Bbox{-105.5, 39.5, -104.5, 40.5},
		Datetime:    "2023-01-01T00:00:00Z/..",
		Limit:       100,
		SortBy:      []pgstac.SortBy{{Field: "datetime", Direction: pgstac.Descending}},
	}
	total := 0
	err = pgstac.New(pool).SearchPages(ctx, search, func(p *pgstac.Page) error {
		total += len(p.Features)
		return nil
	})
	if err != nil {
		panic(err)
	}
	fmt.Println(total, "items")
}

func ExampleWithTx() {
	ctx := context.Background()
	pool, err := connection.Connect(ctx, connection.NewConfig(os.Getenv("PGSTAC_DSN")))
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	// The collection and its first item are written together or not at all.
	err = pgstac.WithTx(ctx, pool, func(tx *pgstac.Client) error {
		if err := tx.AddCollection(ctx, models.NewCollection("collection-id", "a description")); err != nil {
			return err
		}
		item := models.NewItem("an-id")
		item.Collection = "collection-id"
		return tx.AddItem(ctx, item)
	})
	if err != nil {
		panic(err)
	}
}
