package main

import (
	"github.com/darasahq/darasa/storage/database"
)

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) createDB() error {
	return database.CreateIfNotExist(cli.conf)
}

func (cli *commandLine) migrate() error {
	return migrateFunc(cli.db)
}
