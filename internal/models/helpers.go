package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateDocumentID() string {
	return fmt.Sprintf("doc_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

// FormatElapsed renders a duration as mm:ss, rounded down to the second.
// Minutes keep growing past 99 rather than wrapping.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// ProgressLabel is the header shown above the current puzzle card.
func ProgressLabel(index, playable int) string {
	return fmt.Sprintf("Gåta %d av %d", index+1, playable)
}

func (r *SubmitAnswerRequest) Validate(kind PuzzleKind) error {
	switch kind {
	case KindMagicSquare:
		if len(r.Cells) == 0 && strings.TrimSpace(r.Answer) != "" {
			return fmt.Errorf("magic square answers go in cells, not answer")
		}
	case KindFinal:
		return fmt.Errorf("the final step takes a document, not an answer")
	}
	return nil
}

func (d *FinalDocument) Validate() error {
	if strings.TrimSpace(d.LatinName) == "" {
		return fmt.Errorf("latin name is required")
	}
	if strings.TrimSpace(d.TeamName) == "" {
		return fmt.Errorf("team name is required")
	}
	if d.PhotoSize <= 0 {
		return fmt.Errorf("photo is required")
	}
	return nil
}
