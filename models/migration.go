package models

import (
	"log"

	"github.com/mmdatafocus/upl_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Location{},
		&Upl{},
		&UplEvent{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
