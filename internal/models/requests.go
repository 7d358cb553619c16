package models

// SubmitAnswerRequest carries one answer attempt. Text-style puzzles use
// Answer; magic squares send the blank cell values in row-major order as
// Cells (kept as strings so unparseable input can be reported as a form
// error instead of a wrong answer).
type SubmitAnswerRequest struct {
	Answer string   `json:"answer"`
	Cells  []string `json:"cells"`
}

// HuntState is the full render document for the presentation layer: exactly
// one of Intro, Card, FinalForm or Summary is set, matching Phase.
type HuntState struct {
	Phase         HuntPhase          `json:"phase"`
	PuzzleIndex   int                `json:"puzzle_index"`
	PuzzleCount   int                `json:"puzzle_count"`
	ProgressLabel string             `json:"progress_label,omitempty"`
	ElapsedMS     int64              `json:"elapsed_ms"`
	Elapsed       string             `json:"elapsed"`
	Intro         *IntroCard         `json:"intro,omitempty"`
	Card          *PuzzleCard        `json:"card,omitempty"`
	FinalForm     *FinalForm         `json:"final_form,omitempty"`
	Summary       *CompletionSummary `json:"summary,omitempty"`
}

// IntroCard is the start screen shown while the hunt is not yet started.
type IntroCard struct {
	WelcomeText string `json:"welcome_text"`
	StartLabel  string `json:"start_label"`
	IconRef     string `json:"icon,omitempty"`
}

// PuzzleCard is everything needed to draw the current puzzle. Hint is only
// present once the fail counter has revealed it.
type PuzzleCard struct {
	Kind       PuzzleKind    `json:"kind"`
	Prompt     string        `json:"prompt"`
	Hint       string        `json:"hint,omitempty"`
	ImageRef   string        `json:"img,omitempty"`
	Revealable bool          `json:"revealable,omitempty"`
	AudioRef   string        `json:"src,omitempty"`
	Size       int           `json:"size,omitempty"`
	Target     int           `json:"target,omitempty"`
	Grid       [][]MagicCell `json:"grid,omitempty"`
	FailCount  int           `json:"fail_count"`
}

// FinalForm describes the documentation step: one photo plus two text fields.
type FinalForm struct {
	Prompt          string `json:"prompt"`
	PhotoField      string `json:"photo_field"`
	LatinNameField  string `json:"latin_name_field"`
	TeamNameField   string `json:"team_name_field"`
	SubmitLabel     string `json:"submit_label"`
	RequiredMessage string `json:"required_message"`
}

// CompletionSummary is the frozen end screen.
type CompletionSummary struct {
	ElapsedMS int64  `json:"elapsed_ms"`
	Elapsed   string `json:"elapsed"`
	LatinName string `json:"latin_name"`
	TeamName  string `json:"team_name"`
	PhotoName string `json:"photo_name"`
	Note      string `json:"note"`
}
