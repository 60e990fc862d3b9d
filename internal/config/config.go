package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	domainerrors "github.com/Tomas-vilte/MateMigrate/internal/domain/errors"
	"github.com/joho/godotenv"
)

type Config struct {
	Language string `json:"language"`

	// GitHubToken puede dejarse vacío y proveerse vía GITHUB_TOKEN.
	GitHubToken string `json:"github_token,omitempty"`
	// RepoPath es el destino remoto con formato "owner/repo".
	RepoPath string `json:"repo_path,omitempty"`

	// InlineComments anexa los comentarios al cuerpo de la issue en lugar
	// de crearlos como comentarios remotos separados.
	InlineComments bool `json:"inline_comments"`
	// UploadFiles habilita la transferencia real de adjuntos; apagado, el
	// sink devuelve solo el deep-link convencional.
	UploadFiles bool `json:"upload_files"`

	CheckpointPath string `json:"checkpoint_path"`
	XMLOutputPath  string `json:"xml_output_path"`

	// DelaySeconds es la pausa fija entre escrituras remotas.
	DelaySeconds int `json:"delay_seconds"`
	// SafetyMarginSeconds se suma al reset del rate limit antes de
	// reintentar.
	SafetyMarginSeconds int `json:"safety_margin_seconds"`

	PathFile string `json:"path_file"`
}

const (
	defaultLang         = "en"
	defaultCheckpoint   = "log.json"
	defaultXMLOutput    = "export.xml"
	defaultDelaySecs    = 3
	defaultMarginSecs   = 60
	configDirName       = ".mate-migrate"
	configFileName      = "config.json"
	envToken            = "GITHUB_TOKEN"
	envRepoPath         = "GITHUB_REPO_PATH"
	envInlineComments   = "GITHUB_INLINE_COMMENTS"
	envUploadFiles      = "GITHUB_UPLOAD_FILES"
)

// LoadConfig lee la configuración JSON desde path (un archivo .json o el
// directorio home del usuario) y aplica los overrides de entorno. Un .env
// en el directorio actual se carga primero, como hace el resto del tooling.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var configPath string
	if filepath.Ext(path) == ".json" {
		configPath = path
	} else {
		configDir := filepath.Join(path, configDirName)
		configPath = filepath.Join(configDir, configFileName)

		if _, err := os.Stat(configDir); os.IsNotExist(err) {
			if err := os.MkdirAll(configDir, 0755); err != nil {
				return nil, fmt.Errorf("error al crear el directorio de configuración: %w", err)
			}
		}
	}

	config, err := readOrCreate(configPath)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("la configuración cargada no es válida: %w", err)
	}
	return config, nil
}

func readOrCreate(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error al leer el archivo de configuración: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error al decodificar el archivo JSON: %w", err)
	}
	config.PathFile = configPath
	return &config, nil
}

func createDefaultConfig(path string) (*Config, error) {
	config := &Config{
		Language:            defaultLang,
		CheckpointPath:      defaultCheckpoint,
		XMLOutputPath:       defaultXMLOutput,
		DelaySeconds:        defaultDelaySecs,
		SafetyMarginSeconds: defaultMarginSecs,
		PathFile:            path,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("error al crear el directorio de configuración: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error al codificar la configuración por defecto: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("error al guardar la configuración por defecto: %w", err)
	}
	return config, nil
}

func applyEnvOverrides(config *Config) {
	if token := os.Getenv(envToken); token != "" {
		config.GitHubToken = token
	}
	if repo := os.Getenv(envRepoPath); repo != "" {
		config.RepoPath = repo
	}
	if inline := os.Getenv(envInlineComments); inline != "" {
		config.InlineComments = inline == "true"
	}
	if upload := os.Getenv(envUploadFiles); upload != "" {
		config.UploadFiles = upload == "true"
	}
}

func SaveConfig(config *Config) error {
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("la configuración a guardar no es válida: %w", err)
	}
	if config.PathFile == "" {
		return errors.New("la ruta del archivo de configuración no está definida")
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("error al codificar la configuración: %w", err)
	}
	if err := os.WriteFile(config.PathFile, data, 0644); err != nil {
		return fmt.Errorf("error al guardar la configuración: %w", err)
	}
	return nil
}

func validateConfig(config *Config) error {
	if config.Language == "" {
		return errors.New("language no puede estar vacío")
	}
	if config.DelaySeconds < 0 {
		return errors.New("delay_seconds no puede ser negativo")
	}
	if config.SafetyMarginSeconds < 0 {
		return errors.New("safety_margin_seconds no puede ser negativo")
	}
	if config.CheckpointPath == "" {
		return errors.New("checkpoint_path no puede estar vacío")
	}
	return nil
}

// SplitRepoPath separa "owner/repo" y valida el formato. Un path sin barra
// es un error de entrada fatal antes de procesar cualquier fila.
func (c *Config) SplitRepoPath() (owner, repo string, err error) {
	parts := strings.SplitN(c.RepoPath, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", domainerrors.NewInvalidRepoPathError(c.RepoPath)
	}
	return parts[0], parts[1], nil
}
