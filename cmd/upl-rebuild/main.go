package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/upl_backend/config"
	"github.com/mmdatafocus/upl_backend/models"
)

// upl-rebuild folds the event ledger back into UPL projections. With no
// flags it verifies every UPL and reports drift; --repair writes the fold
// back over drifted rows.
func main() {
	uplID := flag.String("upl-id", "", "Optional: limit to a single UPL id")
	repair := flag.Bool("repair", false, "Write the folded projection back over drifted rows")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing UPLs and continue")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx := context.Background()

	var ids []string
	if strings.TrimSpace(*uplID) != "" {
		ids = []string{strings.TrimSpace(*uplID)}
	} else {
		var err error
		ids, err = models.ListUplIds(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "discover upl ids: %v\n", err)
			os.Exit(1)
		}
	}

	var drifted, failed int
	for _, id := range ids {
		drifts, err := models.RebuildUplProjection(ctx, id, *repair)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "upl %s: %v\n", id, err)
			if !*continueOnError {
				os.Exit(1)
			}
			continue
		}
		if len(drifts) == 0 {
			continue
		}
		drifted++
		for _, d := range drifts {
			fmt.Printf("upl %s: %s stored=%q folded=%q\n", d.UplId, d.Field, d.Stored, d.Folded)
		}
	}

	action := "verified"
	if *repair {
		action = "repaired"
	}
	fmt.Printf("%s %d upls, %d drifted, %d failed\n", action, len(ids), drifted, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
