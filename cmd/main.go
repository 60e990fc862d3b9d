package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/Tomas-vilte/MateMigrate/internal/cli/command/migrate"
	"github.com/Tomas-vilte/MateMigrate/internal/cli/registry"
	cfg "github.com/Tomas-vilte/MateMigrate/internal/config"
	"github.com/Tomas-vilte/MateMigrate/internal/i18n"
	"github.com/urfave/cli/v3"
)

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Error iniciando la cli: %v", err)
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func initializeApp() (*cli.Command, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("no se pudo obtener el directorio del usuario: %w", err)
	}

	cfgApp, err := cfg.LoadConfig(homeDir)
	if err != nil {
		return nil, err
	}

	translations, err := i18n.NewTranslations(cfgApp.Language, "")
	if err != nil {
		return nil, fmt.Errorf("error al cargar las traducciones: %w", err)
	}

	registerCommand := registry.NewRegistry(cfgApp, translations)
	if err := registerCommand.Register("migrate", migrate.NewMigrateCommandFactory()); err != nil {
		return nil, err
	}

	return &cli.Command{
		Name:     "matemigrate",
		Usage:    translations.GetMessage("migrate_command_usage", 0, nil),
		Commands: registerCommand.CreateCommands(),
	}, nil
}
