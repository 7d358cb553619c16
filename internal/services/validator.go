package services

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"skattjakt-backend/internal/models"
)

// Validator decides answer correctness per puzzle kind. It is pure with
// respect to engine state: elapsed time is an input, nothing is mutated.
type Validator struct {
	validNames map[string]struct{}
}

func NewValidator(validNames []string) *Validator {
	set := make(map[string]struct{}, len(validNames))
	for _, name := range validNames {
		set[normalize(name)] = struct{}{}
	}
	return &Validator{validNames: set}
}

// normalize applies the uniform comparison rule: trimmed and lowercased.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// stripSpace removes all internal whitespace, for the word and morse kinds
// where "f r i d a g" and "fridag" are equivalent.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// isPrime uses trial division up to floor(sqrt(n)); n < 2 is never prime.
func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for i := 2; i*i <= n; i++ {
		if n%i == 0 {
			return false
		}
	}
	return true
}

// Validate checks one submission against a puzzle definition. The final
// entry is not validated here; its submission goes through the document flow.
func (v *Validator) Validate(p *models.PuzzleDefinition, req *models.SubmitAnswerRequest, elapsed time.Duration) models.SubmissionResult {
	input := normalize(req.Answer)

	switch p.Kind {
	case models.KindName:
		_, ok := v.validNames[input]
		return models.SubmissionResult{Correct: ok}

	case models.KindFreeText, models.KindNumeric, models.KindCount,
		models.KindSteganographic, models.KindAudioReversed:
		return models.SubmissionResult{Correct: input == strings.ToLower(p.Answer.String())}

	case models.KindWord:
		want := stripSpace(strings.ToLower(p.Answer.String()))
		return models.SubmissionResult{Correct: stripSpace(input) == want}

	case models.KindPrimeMinute:
		minute := int(elapsed / time.Minute)
		if !isPrime(minute) {
			return models.SubmissionResult{Rejection: models.RejectionNotYetPrimeMinute}
		}
		return models.SubmissionResult{Correct: input == strconv.Itoa(minute)}

	case models.KindMorse:
		got := stripSpace(input)
		for _, variant := range p.AnswerVariants {
			if stripSpace(normalize(variant)) == got {
				return models.SubmissionResult{Correct: true}
			}
		}
		return models.SubmissionResult{Correct: false}

	case models.KindMagicSquare:
		return validateMagicSquare(p, req.Cells)
	}

	return models.SubmissionResult{Correct: false}
}

// validateMagicSquare substitutes the submitted values into the blank grid
// positions in row-major order, then requires every row, every column and
// both diagonals to sum to the target.
func validateMagicSquare(p *models.PuzzleDefinition, cells []string) models.SubmissionResult {
	blanks := p.BlankCount()
	if blanks > 0 && len(cells) == 0 {
		return models.SubmissionResult{Rejection: models.RejectionEmptyGrid}
	}
	if len(cells) != blanks {
		return models.SubmissionResult{Rejection: models.RejectionIncompleteInput}
	}

	values := make([]int, len(cells))
	for i, cell := range cells {
		v, err := strconv.Atoi(strings.TrimSpace(cell))
		if err != nil {
			return models.SubmissionResult{Rejection: models.RejectionIncompleteInput}
		}
		values[i] = v
	}

	n := p.Size
	grid := make([][]int, n)
	next := 0
	for r := 0; r < n; r++ {
		grid[r] = make([]int, n)
		for c := 0; c < n; c++ {
			if p.Grid[r][c].Blank {
				grid[r][c] = values[next]
				next++
			} else {
				grid[r][c] = p.Grid[r][c].Value
			}
		}
	}

	target := p.Target
	diag, anti := 0, 0
	for i := 0; i < n; i++ {
		rowSum, colSum := 0, 0
		for j := 0; j < n; j++ {
			rowSum += grid[i][j]
			colSum += grid[j][i]
		}
		if rowSum != target || colSum != target {
			return models.SubmissionResult{Correct: false}
		}
		diag += grid[i][i]
		anti += grid[i][n-1-i]
	}

	return models.SubmissionResult{Correct: diag == target && anti == target}
}
