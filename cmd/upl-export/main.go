package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mmdatafocus/upl_backend/config"
	"github.com/mmdatafocus/upl_backend/models"
	"github.com/mmdatafocus/upl_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// upl-export dumps active stock to an xlsx workbook, one row per UPL,
// for stocktaking and handover to the back office.
func main() {
	locationID := flag.Int("location-id", 0, "Optional: limit to one location")
	minQuantityStr := flag.String("min-quantity", "", "Optional: skip UPLs below this quantity")
	outFile := flag.String("out", "upl-export.xlsx", "Output file name")
	flag.Parse()

	minQuantity := decimal.Zero
	if *minQuantityStr != "" {
		var err error
		minQuantity, err = utils.ParseDecimal(*minQuantityStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid min-quantity: %v\n", err)
			os.Exit(1)
		}
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx := context.Background()

	locations, err := models.GetLocations(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load locations: %v\n", err)
		os.Exit(1)
	}
	locationNames := make(map[int]string, len(locations))
	for _, l := range locations {
		locationNames[l.ID] = l.Name
	}

	var upls []*models.Upl
	if *locationID > 0 {
		upls, err = models.GetUplsByLocation(ctx, *locationID)
	} else {
		for _, l := range locations {
			var atLocation []*models.Upl
			atLocation, err = models.GetUplsByLocation(ctx, l.ID)
			if err != nil {
				break
			}
			upls = append(upls, atLocation...)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load upls: %v\n", err)
		os.Exit(1)
	}

	f := excelize.NewFile()
	sheetName := "Sheet1"
	if _, err := f.NewSheet(sheetName); err != nil {
		fmt.Fprintf(os.Stderr, "create sheet: %v\n", err)
		os.Exit(1)
	}

	// Add headers
	f.SetCellValue(sheetName, "A1", "UplId")
	f.SetCellValue(sheetName, "B1", "Quantity")
	f.SetCellValue(sheetName, "C1", "Unit")
	f.SetCellValue(sheetName, "D1", "Location")
	f.SetCellValue(sheetName, "E1", "BestBefore")
	f.SetCellValue(sheetName, "F1", "NetRetailPrice")
	f.SetCellValue(sheetName, "G1", "Vat")
	f.SetCellValue(sheetName, "H1", "GrossRetailPrice")

	// Add data
	rowNo := 0
	for _, u := range upls {
		if u.Quantity.LessThan(minQuantity) {
			continue
		}
		rowNo++
		row := fmt.Sprint(rowNo + 1)
		f.SetCellValue(sheetName, "A"+row, u.ID)
		f.SetCellValue(sheetName, "B"+row, u.Quantity.String())
		f.SetCellValue(sheetName, "C"+row, u.Unit)
		f.SetCellValue(sheetName, "D"+row, locationNames[u.LocationId])
		if u.BestBefore != nil {
			f.SetCellValue(sheetName, "E"+row, u.BestBefore.Format("2006-01-02"))
		}
		if u.NetRetailPrice != nil {
			f.SetCellValue(sheetName, "F"+row, u.NetRetailPrice.String())
		}
		if u.Vat != nil {
			f.SetCellValue(sheetName, "G"+row, string(*u.Vat))
		}
		if u.GrossRetailPrice != nil {
			f.SetCellValue(sheetName, "H"+row, u.GrossRetailPrice.String())
		}
	}

	if err := f.SaveAs(*outFile); err != nil {
		fmt.Fprintf(os.Stderr, "save %s: %v\n", *outFile, err)
		os.Exit(1)
	}
	fmt.Printf("exported %d upls to %s\n", rowNo, *outFile)
}
