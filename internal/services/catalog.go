package services

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"skattjakt-backend/internal/models"
)

// LoadCatalog reads and validates the hunt catalog document. Any structural
// problem is fatal for startup; the caller is expected to halt on error.
func LoadCatalog(path string) (*models.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %v", path, err)
	}

	var catalog models.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("malformed catalog %s: %v", path, err)
	}

	if err := ValidateCatalog(&catalog); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %v", path, err)
	}

	return &catalog, nil
}

// ValidateCatalog checks the structural invariants of a loaded catalog:
// known kinds, per-kind required fields, exactly one final entry in last
// position, and a non-empty valid-name set.
func ValidateCatalog(c *models.Catalog) error {
	if len(c.Puzzles) < 2 {
		return fmt.Errorf("catalog needs at least one puzzle and the final entry, got %d entries", len(c.Puzzles))
	}

	finals := 0
	for i := range c.Puzzles {
		p := &c.Puzzles[i]
		if !p.Kind.Valid() {
			return fmt.Errorf("puzzle %d: unknown kind %q", i, p.Kind)
		}
		if strings.TrimSpace(p.Prompt) == "" {
			return fmt.Errorf("puzzle %d (%s): missing prompt", i, p.Kind)
		}
		if p.Kind == models.KindFinal {
			finals++
			if i != len(c.Puzzles)-1 {
				return fmt.Errorf("puzzle %d: final entry must be the last catalog entry", i)
			}
			continue
		}
		if err := validatePuzzleFields(i, p); err != nil {
			return err
		}
	}
	if finals != 1 {
		return fmt.Errorf("catalog must contain exactly one final entry, found %d", finals)
	}

	if len(c.ValidNames) == 0 {
		return fmt.Errorf("catalog has an empty valid-name list")
	}
	for i, name := range c.ValidNames {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("valid name %d is empty", i)
		}
	}

	for key, page := range c.StaticPages {
		if strings.TrimSpace(page.Title) == "" {
			return fmt.Errorf("static page %q: missing title", key)
		}
		if (page.ThumbRef == "") != (page.FullImageRef == "") {
			return fmt.Errorf("static page %q: thumb and full image must come together", key)
		}
	}

	return nil
}

func validatePuzzleFields(i int, p *models.PuzzleDefinition) error {
	switch p.Kind {
	case models.KindMorse:
		if len(p.AnswerVariants) == 0 {
			return fmt.Errorf("puzzle %d (morse): missing answers list", i)
		}
		if p.AudioRef == "" {
			return fmt.Errorf("puzzle %d (morse): missing audio src", i)
		}
		return nil

	case models.KindMagicSquare:
		if p.Size < 2 {
			return fmt.Errorf("puzzle %d (magic): size must be at least 2, got %d", i, p.Size)
		}
		if p.Target == 0 {
			return fmt.Errorf("puzzle %d (magic): missing target sum", i)
		}
		if len(p.Grid) != p.Size {
			return fmt.Errorf("puzzle %d (magic): grid has %d rows, size is %d", i, len(p.Grid), p.Size)
		}
		for r, row := range p.Grid {
			if len(row) != p.Size {
				return fmt.Errorf("puzzle %d (magic): row %d has %d cells, size is %d", i, r, len(row), p.Size)
			}
		}
		return nil

	case models.KindPrimeMinute:
		// The answer is computed per attempt from the elapsed minute count;
		// a fixed answer in the catalog would be ignored.
		return nil

	case models.KindName:
		// Compared against the valid-name set, no fixed answer.
		return nil
	}

	if p.Answer.String() == "" {
		return fmt.Errorf("puzzle %d (%s): missing answer", i, p.Kind)
	}

	switch p.Kind {
	case models.KindNumeric, models.KindCount, models.KindSteganographic:
		if p.ImageRef == "" {
			return fmt.Errorf("puzzle %d (%s): missing image", i, p.Kind)
		}
	case models.KindAudioReversed:
		if p.AudioRef == "" {
			return fmt.Errorf("puzzle %d (audio): missing audio src", i)
		}
	}

	return nil
}
