package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Tomas-vilte/MateMigrate/internal/config"
	"github.com/Tomas-vilte/MateMigrate/internal/i18n"
	"github.com/Tomas-vilte/MateMigrate/internal/infrastructure/checkpoint"
	"github.com/Tomas-vilte/MateMigrate/internal/infrastructure/pivotal"
	ghsink "github.com/Tomas-vilte/MateMigrate/internal/infrastructure/sinks/github"
	"github.com/Tomas-vilte/MateMigrate/internal/infrastructure/sinks/xmldoc"
	"github.com/Tomas-vilte/MateMigrate/internal/logger"
	"github.com/Tomas-vilte/MateMigrate/internal/services"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

const (
	outputGitHub = "github"
	outputXML    = "xml"
)

// MigrateCommandFactory es la fábrica del comando migrate.
type MigrateCommandFactory struct{}

func NewMigrateCommandFactory() *MigrateCommandFactory {
	return &MigrateCommandFactory{}
}

func (f *MigrateCommandFactory) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   t.GetMessage("migrate_command_usage", 0, nil),
		Flags:   f.createFlags(t),
		Action:  f.createAction(t, cfg),
	}
}

func (f *MigrateCommandFactory) createFlags(t *i18n.Translations) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   t.GetMessage("migrate_flag_file", 0, nil),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   t.GetMessage("migrate_flag_output", 0, nil),
			Value:   outputXML,
		},
		&cli.IntFlag{
			Name:    "size",
			Aliases: []string{"n"},
			Usage:   t.GetMessage("migrate_flag_size", 0, nil),
			Value:   3,
		},
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   t.GetMessage("migrate_flag_mode", 0, nil),
			Value:   services.ModeIndex,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   t.GetMessage("migrate_flag_verbose", 0, nil),
		},
	}
}

func (f *MigrateCommandFactory) createAction(t *i18n.Translations, cfg *config.Config) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		logger.Initialize(false, command.Bool("verbose"))

		csvPath := command.String("file")
		if csvPath == "" {
			return fmt.Errorf("%s", t.GetMessage("migrate_error_missing_file", 0, nil))
		}

		output := command.String("output")
		size := command.Int("size")
		mode := command.String("mode")

		rows, err := pivotal.ReadRows(csvPath)
		if err != nil {
			return err
		}
		mapper := pivotal.NewRowMapper(csvPath)

		service, err := f.buildService(ctx, t, cfg, output, csvPath, mapper)
		if err != nil {
			return err
		}

		summary, runErr := service.Run(ctx, rows, mode, int(size))

		if runErr == nil {
			switch output {
			case outputXML:
				fmt.Println(t.GetMessage("migrate_xml_done", 0, map[string]interface{}{
					"Path": cfg.XMLOutputPath,
				}))
			case outputGitHub:
				fmt.Println(t.GetMessage("migrate_github_done", 0, nil))
			}
		}

		// El resumen se imprime incluso cuando el lote se cortó: el conteo
		// dice desde dónde retomar.
		fmt.Println(t.GetMessage("migrate_summary", 0, map[string]interface{}{
			"Rows":    summary.Rows,
			"Minutes": int(summary.Elapsed.Minutes()),
			"Seconds": fmt.Sprintf("%02d", int(summary.Elapsed.Seconds())%60),
		}))
		return runErr
	}
}

// buildService arma el pipeline para el sink elegido. Solo el sink remoto
// lleva checkpoint: el documento XML no tiene resume.
func (f *MigrateCommandFactory) buildService(ctx context.Context, t *i18n.Translations, cfg *config.Config, output, csvPath string, mapper services.RowMapper) (*services.MigrationService, error) {
	switch output {
	case outputXML:
		sink := xmldoc.NewSink(cfg.XMLOutputPath, cfg.InlineComments)
		return services.NewMigrationService(sink, mapper, nil, t), nil

	case outputGitHub:
		owner, repo, err := cfg.SplitRepoPath()
		if err != nil {
			return nil, fmt.Errorf("%s", t.GetMessage("migrate_error_invalid_repo", 0, nil))
		}

		token := cfg.GitHubToken
		if token == "" {
			if token, err = promptToken(t); err != nil {
				return nil, err
			}
		}

		store := checkpoint.Load(ctx, cfg.CheckpointPath)
		sink := ghsink.NewSink(owner, repo, token, store, ghsink.Options{
			InlineComments:  cfg.InlineComments,
			UploadFiles:     cfg.UploadFiles,
			AttachmentsBase: filepath.Dir(csvPath),
			Delay:           time.Duration(cfg.DelaySeconds) * time.Second,
			SafetyMargin:    time.Duration(cfg.SafetyMarginSeconds) * time.Second,
		})
		return services.NewMigrationService(sink, mapper, store, t), nil

	default:
		return nil, fmt.Errorf("%s", t.GetMessage("migrate_error_unknown_output", 0, map[string]interface{}{
			"Output": output,
		}))
	}
}

// promptToken pide el token por la terminal sin eco cuando no vino ni por
// entorno ni por configuración.
func promptToken(t *i18n.Translations) (string, error) {
	fmt.Print(t.GetMessage("migrate_token_prompt", 0, nil))
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("error al leer el token: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
