package i18n

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

type Translations struct {
	bundle   *i18n.Bundle
	localize *i18n.Localizer
}

// NewTranslations carga los mensajes embebidos en inglés y cualquier
// archivo locales/active.*.toml presente en localesPath.
func NewTranslations(defaultLang string, localesPath string) (*Translations, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	bundle.MustParseMessageFileBytes([]byte(defaultMessages), "default.en.toml")

	if localesPath == "" {
		localesPath = "locales"
	}
	files, err := filepath.Glob(filepath.Join(localesPath, "active.*.toml"))
	if err != nil {
		return nil, fmt.Errorf("error reading locales: %w", err)
	}
	for _, file := range files {
		if _, err := bundle.LoadMessageFile(file); err != nil {
			return nil, fmt.Errorf("error loading locale file %s: %w", file, err)
		}
	}

	return &Translations{
		bundle:   bundle,
		localize: i18n.NewLocalizer(bundle, defaultLang),
	}, nil
}

func (t *Translations) SetLanguage(lang string) error {
	for _, tag := range t.bundle.LanguageTags() {
		if tag.String() == lang {
			t.localize = i18n.NewLocalizer(t.bundle, lang)
			return nil
		}
	}
	return fmt.Errorf("language '%s' not supported", lang)
}

func (t *Translations) GetMessage(messageID string, count int, templateData map[string]interface{}) string {
	localized, err := t.localize.Localize(&i18n.LocalizeConfig{
		DefaultMessage: &i18n.Message{
			ID: messageID,
		},
		PluralCount:  count,
		TemplateData: templateData,
	})
	if err != nil {
		return "Translation missing: " + messageID
	}
	return localized
}

var defaultMessages = `
	[migrate_command_usage]
	other = "Migrate a tracker CSV export to GitHub issues or to an XML document"

	[migrate_flag_file]
	other = "Path to the CSV export"

	[migrate_flag_output]
	other = "Output sink: 'github' or 'xml'"

	[migrate_flag_size]
	other = "How many rows to process (-1 means all remaining)"

	[migrate_flag_mode]
	other = "Row selection mode: 'index' resumes after the last checkpoint, 'missing' diffs ids against it"

	[migrate_flag_verbose]
	other = "Verbose progress output"

	[migrate_error_missing_file]
	other = "Enter the path to the CSV export with --file"

	[migrate_error_invalid_repo]
	other = "Repository should contain a forward slash ('/'); set it with GITHUB_REPO_PATH or in the config file"

	[migrate_error_unknown_output]
	other = "Unknown output '{{.Output}}': use 'github' or 'xml'"

	[migrate_token_prompt]
	other = "Enter GitHub Token > "

	[migrate_missing_found]
	one = "Found {{.Count}} missing issue"
	other = "Found {{.Count}} missing issues"

	[migrate_will_process]
	other = "Will process {{.Count}} issues: {{.Ids}}"

	[migrate_row_error]
	other = "Error processing row {{.Index}}: {{.Error}}"

	[migrate_summary]
	other = "CSV processing completed. Processed {{.Rows}} rows in {{.Minutes}}:{{.Seconds}}"

	[migrate_rate_limit_depleted]
	other = "Rate limit depleted. Reset at: {{.Reset}}"

	[migrate_xml_done]
	other = "XML file generated: {{.Path}}"

	[migrate_github_done]
	other = "GitHub processing complete."
	`
