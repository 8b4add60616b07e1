// Package importer turns a directory or git repository of markdown notes
// into flashcards.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/conorfennell/knolstudy/internal/domain"
	"github.com/conorfennell/knolstudy/internal/flashcards"
	"github.com/conorfennell/knolstudy/internal/gitsource"
	"github.com/conorfennell/knolstudy/internal/knol"
	"github.com/conorfennell/knolstudy/internal/parser"
)

// Report summarises one import run.
type Report struct {
	Source     string   `json:"source"`
	SetID      string   `json:"set_id"`
	Files      int      `json:"files"`
	Parsed     int      `json:"parsed"`
	Added      int      `json:"added"`
	Duplicates int      `json:"duplicates"`
	Errors     []string `json:"errors"`
}

// ErrSourceNotAllowed is returned when a local source lies outside the
// directory the importer may read from.
var ErrSourceNotAllowed = errors.New("import source not allowed")

// Importer reads markdown sources into flashcard sets.
type Importer struct {
	sets     *flashcards.Sets
	reposDir string
	log      *slog.Logger
	sync     func(ctx context.Context, logger *slog.Logger, url, localPath string) error

	restrictLocal bool
	localRoot     string
}

// New returns an importer that checks git sources out under reposDir.
func New(sets *flashcards.Sets, reposDir string, logger *slog.Logger) *Importer {
	return &Importer{
		sets:     sets,
		reposDir: reposDir,
		log:      logger,
		sync:     gitsource.Sync,
	}
}

// WithLocalRoot returns a copy of the importer that only reads local
// directories and repositories found under root. Relative sources resolve
// against root. An empty root refuses every local source.
func (im *Importer) WithLocalRoot(root string) *Importer {
	restricted := *im
	restricted.restrictLocal = true
	restricted.localRoot = root
	return &restricted
}

// Import creates a new set titled title (or named after the source) and
// fills it from source.
func (im *Importer) Import(ctx context.Context, source, title string) (*domain.FlashcardSet, *Report, error) {
	if _, _, err := im.locate(source); err != nil {
		return nil, nil, err
	}
	if title == "" {
		title = defaultTitle(source)
	}
	set, err := im.sets.Create(flashcards.NewSet{
		Title:       title,
		Description: fmt.Sprintf("Imported from %s", source),
	})
	if err != nil {
		return nil, nil, err
	}
	return im.ImportInto(ctx, set.ID, source)
}

// ImportInto adds the cards found in source to an existing set. Cards the
// set already holds are counted as duplicates and skipped.
func (im *Importer) ImportInto(ctx context.Context, setID, source string) (*domain.FlashcardSet, *Report, error) {
	im.log.Info("Starting import", "source", source, "set_id", setID)

	root, cloneURL, err := im.locate(source)
	if err != nil {
		return nil, nil, err
	}
	if cloneURL != "" {
		if err := im.sync(ctx, im.log, cloneURL, root); err != nil {
			return nil, nil, err
		}
	}

	report := &Report{Source: source, SetID: setID, Errors: []string{}}
	cards, err := im.parseTree(ctx, root, report)
	if err != nil {
		return nil, nil, err
	}

	set, added, err := im.sets.AddCards(setID, cards)
	if err != nil {
		return nil, nil, err
	}
	report.Added = added
	report.Duplicates = report.Parsed - added

	im.log.Info("Import complete",
		"source", source,
		"set_id", setID,
		"files", report.Files,
		"parsed_cards", report.Parsed,
		"added", report.Added,
		"duplicates", report.Duplicates,
		"errors", len(report.Errors),
	)
	return set, report, nil
}

// locate works out which directory source is read from. For git sources it
// also returns the URL to clone into that directory.
func (im *Importer) locate(source string) (dir, cloneURL string, err error) {
	if !gitsource.IsRemote(source) {
		dir, err = im.localSource(source)
		return dir, "", err
	}

	cloneURL = source
	if !gitsource.IsNetwork(source) {
		if cloneURL, err = im.localSource(source); err != nil {
			return "", "", err
		}
	}
	dir, err = gitsource.LocalPath(im.reposDir, source)
	if err != nil {
		return "", "", err
	}
	return dir, cloneURL, nil
}

// localSource checks that a filesystem source lies under the local root.
func (im *Importer) localSource(source string) (string, error) {
	if !im.restrictLocal {
		return source, nil
	}
	if im.localRoot == "" {
		return "", fmt.Errorf("%w: local imports are disabled", ErrSourceNotAllowed)
	}

	root, err := filepath.Abs(im.localRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve import root %s: %w", im.localRoot, err)
	}
	path := source
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)

	// Compare real locations so a symlink cannot lead out of the root.
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the import root", ErrSourceNotAllowed, source)
	}
	return path, nil
}

func (im *Importer) parseTree(ctx context.Context, root string, report *Report) ([]domain.Card, error) {
	var cards []domain.Card
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		if im.restrictLocal && d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		report.Files++
		fileCards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			im.log.Warn("Failed to parse notes file", "path", path, "error", parseErr)
			report.Errors = append(report.Errors, fmt.Sprintf("parsing %s: %v", path, parseErr))
			return nil
		}
		for _, card := range fileCards {
			card.Hash = knol.Hash(card)
			cards = append(cards, card)
		}
		report.Parsed += len(fileCards)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", root, walkErr)
	}
	return cards, nil
}

func defaultTitle(source string) string {
	name := strings.TrimSuffix(filepath.Base(strings.TrimRight(source, "/")), ".git")
	if i := strings.LastIndexAny(name, ":/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." {
		return "Imported notes"
	}
	return name
}
