// Dumps the catalog to CSV on stdout (or -out file), one row per entry with
// genres pipe-joined.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cecepns/komiknesia-sub000/internal/catalog"
	"github.com/cecepns/komiknesia-sub000/internal/config"
	"github.com/cecepns/komiknesia-sub000/pkg/database"
)

func main() {
	out := flag.String("out", "", "output file (default stdout)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		fmt.Fprintf(os.Stderr, "db migrate failed: %v\n", err)
		os.Exit(1)
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create %s: %v\n", *out, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	repo := catalog.NewRepo(db)
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"id", "westmanga_id", "slug", "title", "author", "type", "status",
		"rating", "manual", "genres",
	}
	if err := cw.Write(header); err != nil {
		fmt.Fprintf(os.Stderr, "write header: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	const batch = 100 // repo list clamp
	for offset := 0; ; offset += batch {
		items, err := repo.List(ctx, catalog.ListQuery{Limit: batch, Offset: offset})
		if err != nil {
			fmt.Fprintf(os.Stderr, "list: %v\n", err)
			os.Exit(1)
		}
		if len(items) == 0 {
			break
		}
		for _, m := range items {
			genres, err := repo.GenresFor(ctx, m.ID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "genres for %s: %v\n", m.Slug, err)
				os.Exit(1)
			}
			remoteID := ""
			if m.WestmangaID != nil {
				remoteID = strconv.FormatInt(*m.WestmangaID, 10)
			}
			row := []string{
				strconv.FormatInt(m.ID, 10),
				remoteID,
				m.Slug,
				m.Title,
				m.Author,
				m.Type,
				m.Status,
				strconv.FormatFloat(m.Rating, 'f', 2, 64),
				strconv.FormatBool(m.Manual),
				strings.Join(genres, "|"),
			}
			if err := cw.Write(row); err != nil {
				fmt.Fprintf(os.Stderr, "write row: %v\n", err)
				os.Exit(1)
			}
		}
		if len(items) < batch {
			break
		}
	}
}
