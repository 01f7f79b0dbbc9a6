package sentiment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kailas-cloud/vecmatch/internal/domain"
)

// Label is the normalized sentiment of a review.
type Label string

// Recognized sentiment labels.
const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
	Mixed    Label = "mixed"
)

// Analysis is the structured answer to the sentiment prompt.
type Analysis struct {
	Sentiment   Label  `json:"sentiment"`
	ProductName string `json:"product_name"`
	Reason      string `json:"reason"`
}

type rawAnalysis struct {
	Sentiment   *string `json:"sentiment"`
	ProductName *string `json:"product_name"`
	Reason      *string `json:"reason"`
}

// Decode parses a completion into an Analysis. The text may be wrapped in a
// markdown code fence. Unknown keys, a missing sentiment or product_name,
// an unrecognized label and trailing data are all ErrProvider.
func Decode(text string) (Analysis, error) {
	body := stripFence(text)

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()

	var raw rawAnalysis
	if err := dec.Decode(&raw); err != nil {
		return Analysis{}, fmt.Errorf("decode sentiment answer: %w: %w", domain.ErrProvider, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Analysis{}, fmt.Errorf("decode sentiment answer: trailing data: %w", domain.ErrProvider)
	}

	if raw.Sentiment == nil {
		return Analysis{}, fmt.Errorf("sentiment answer lacks %q: %w", "sentiment", domain.ErrProvider)
	}
	if raw.ProductName == nil {
		return Analysis{}, fmt.Errorf("sentiment answer lacks %q: %w", "product_name", domain.ErrProvider)
	}

	label := Label(strings.ToLower(strings.TrimSpace(*raw.Sentiment)))
	switch label {
	case Positive, Negative, Neutral, Mixed:
	default:
		return Analysis{}, fmt.Errorf("unknown sentiment %q: %w", *raw.Sentiment, domain.ErrProvider)
	}

	a := Analysis{Sentiment: label, ProductName: strings.TrimSpace(*raw.ProductName)}
	if raw.Reason != nil {
		a.Reason = *raw.Reason
	}
	return a, nil
}

func stripFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the info string, e.g. "json".
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
