// Package story composes the speaker-tagged script that the synthesis engine
// reads, and writes it to the well-known input artifact.
package story

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/lingocast/internal/core"
	"github.com/book-expert/lingocast/internal/fileutil"
	"github.com/book-expert/logger"
	"github.com/valyala/fasttemplate"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	titlePrefix     = "The Curious Case of the "
	wordSeparator   = ", "
	filePermissions = 0o600
	tagStart        = "{"
	tagEnd          = "}"
)

// Template placeholders.
const (
	placeholderTopic = "topic"
	placeholderWords = "words"
	placeholderTitle = "title"
)

// ErrEmptyTemplate is returned when the template file exists but holds nothing.
var ErrEmptyTemplate = errors.New("story template is empty")

// Story is the composed script and where it was written.
type Story struct {
	Title     string
	Text      string
	InputPath string
	Words     []string
}

// Options configures a Composer.
type Options struct {
	TemplatePath string
	OutputDir    string
	InputName    string
	Padding      WordPolicy
}

// Composer builds story transcripts from an external template.
type Composer struct {
	templatePath string
	inputPath    string
	outputDir    string
	padding      WordPolicy
	log          *logger.Logger
}

// NewComposer creates a Composer. A nil Padding keeps word lists as given.
func NewComposer(opts Options, log *logger.Logger) *Composer {
	padding := opts.Padding
	if padding == nil {
		padding = Unrestricted{}
	}

	// The synthesis program runs in its own working directory, so the input
	// path handed to it must not be relative.
	inputPath := filepath.Join(opts.OutputDir, opts.InputName)
	if abs, err := filepath.Abs(inputPath); err == nil {
		inputPath = abs
	}

	return &Composer{
		templatePath: opts.TemplatePath,
		inputPath:    inputPath,
		outputDir:    opts.OutputDir,
		padding:      padding,
		log:          log,
	}
}

// InputPath is the fixed location of the input artifact.
func (c *Composer) InputPath() string {
	return c.inputPath
}

// Compose renders the template for the topic and words and writes the result
// to the input artifact, overwriting what was there. Nothing is written when
// the template cannot be read.
func (c *Composer) Compose(topic string, words []string) (*Story, error) {
	tmpl, err := c.loadTemplate()
	if err != nil {
		return nil, err
	}

	title := Title(topic)
	used := c.padding.Apply(words)

	text := strings.TrimSpace(fasttemplate.ExecuteStringStd(tmpl, tagStart, tagEnd, map[string]any{
		placeholderTopic: topic,
		placeholderWords: strings.Join(used, wordSeparator),
		placeholderTitle: title,
	}))

	err = fileutil.EnsureDir(c.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}

	err = os.WriteFile(c.inputPath, []byte(text), filePermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to write input artifact %s: %w", c.inputPath, err)
	}

	c.log.Info("Composed story %q (%d words) into %s", title, len(used), c.inputPath)

	return &Story{
		Title:     title,
		Text:      text,
		InputPath: c.inputPath,
		Words:     used,
	}, nil
}

func (c *Composer) loadTemplate() (string, error) {
	if c.templatePath == "" {
		return "", fmt.Errorf("%w: %w: no template path", core.ErrTemplateUnavailable, core.ErrConfigurationMissing)
	}

	data, err := os.ReadFile(c.templatePath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrTemplateUnavailable, err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("%w: %w: %s", core.ErrTemplateUnavailable, ErrEmptyTemplate, c.templatePath)
	}

	return string(data), nil
}

// Title derives the episode title from the topic. Equal topics always give
// equal titles, which keeps episode upserts idempotent.
func Title(topic string) string {
	titled := cases.Title(language.English).String(strings.TrimSpace(topic))

	return titlePrefix + strings.ReplaceAll(titled, " ", "")
}
