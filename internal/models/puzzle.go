package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type PuzzleKind string

const (
	KindName           PuzzleKind = "name"
	KindFreeText       PuzzleKind = "text"
	KindNumeric        PuzzleKind = "number"
	KindCount          PuzzleKind = "count"
	KindWord           PuzzleKind = "word"
	KindSteganographic PuzzleKind = "stego"
	KindAudioReversed  PuzzleKind = "audio"
	KindPrimeMinute    PuzzleKind = "prime"
	KindMorse          PuzzleKind = "morse"
	KindMagicSquare    PuzzleKind = "magic"
	KindFinal          PuzzleKind = "final"
)

func (k PuzzleKind) Valid() bool {
	switch k {
	case KindName, KindFreeText, KindNumeric, KindCount, KindWord,
		KindSteganographic, KindAudioReversed, KindPrimeMinute,
		KindMorse, KindMagicSquare, KindFinal:
		return true
	}
	return false
}

// AnswerValue accepts either a JSON string or a JSON number in the catalog
// document and keeps the canonical string form.
type AnswerValue string

func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = AnswerValue(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("answer must be a string or a number")
	}
	*a = AnswerValue(n.String())
	return nil
}

func (a AnswerValue) String() string {
	return string(a)
}

// MagicCell is one cell of a magic-square grid: either a fixed integer or a
// blank slot the participant has to fill in. The catalog document encodes a
// blank as an empty string.
type MagicCell struct {
	Value int
	Blank bool
}

func (c *MagicCell) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			c.Blank = true
			return nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("magic cell %q is not an integer", s)
		}
		c.Value = v
		return nil
	}

	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("magic cell must be an integer or an empty string")
	}
	c.Value = v
	return nil
}

func (c MagicCell) MarshalJSON() ([]byte, error) {
	if c.Blank {
		return []byte(`""`), nil
	}
	return json.Marshal(c.Value)
}

// PuzzleDefinition is one entry of the ordered hunt catalog. Field presence
// depends on Kind; the catalog loader enforces the per-kind requirements.
type PuzzleDefinition struct {
	Kind           PuzzleKind    `json:"type"`
	Prompt         string        `json:"prompt"`
	Hint           string        `json:"hint,omitempty"`
	Answer         AnswerValue   `json:"answer,omitempty"`
	AnswerVariants []string      `json:"answers,omitempty"`
	ImageRef       string        `json:"img,omitempty"`
	AudioRef       string        `json:"src,omitempty"`
	Size           int           `json:"size,omitempty"`
	Target         int           `json:"target,omitempty"`
	Grid           [][]MagicCell `json:"grid,omitempty"`
}

// BlankCount reports how many cells of a magic-square grid are blank, in
// row-major order semantics.
func (p *PuzzleDefinition) BlankCount() int {
	n := 0
	for _, row := range p.Grid {
		for _, cell := range row {
			if cell.Blank {
				n++
			}
		}
	}
	return n
}

// StaticPage is an informational tab (background, rules, help). Pages with a
// thumbnail also carry a full-size image for the zoom view.
type StaticPage struct {
	Title        string `json:"title"`
	Text         string `json:"text"`
	IconRef      string `json:"icon"`
	ThumbRef     string `json:"thumb,omitempty"`
	FullImageRef string `json:"full,omitempty"`
}

// Catalog is the full hunt data source, loaded once at startup and immutable
// for the lifetime of the process.
type Catalog struct {
	Puzzles     []PuzzleDefinition    `json:"puzzles"`
	StaticPages map[string]StaticPage `json:"staticPages"`
	ValidNames  []string              `json:"validNames"`
}

// PlayableCount is the number of puzzles the participant actually solves;
// the trailing final entry is a sentinel, not a playable puzzle.
func (c *Catalog) PlayableCount() int {
	if len(c.Puzzles) == 0 {
		return 0
	}
	return len(c.Puzzles) - 1
}

// FinalIndex is the catalog index of the final entry.
func (c *Catalog) FinalIndex() int {
	return len(c.Puzzles) - 1
}
