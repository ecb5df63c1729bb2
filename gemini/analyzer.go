package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"fluent/apperr"
)

const (
	// PlaceholderFeedback stands in for a response without critique text.
	PlaceholderFeedback = "Sorry, I couldn't analyze your pronunciation. Please try recording again with a clearer voice."
	// NetworkErrorFeedback stands in when the request itself failed.
	NetworkErrorFeedback = "There was an error analyzing your pronunciation. Please check your internet connection and try again."
)

const analysisPrompt = `Please analyze the pronunciation of this English sentence: %q.

Provide detailed feedback in this format:

**Overall Accuracy**: [Score out of 10]

**Pronunciation Issues**:
- [List specific mispronounced words or sounds]

**Intonation & Fluency**:
- [Comments on rhythm, stress, and flow]

**Specific Improvements**:
- [Actionable advice for better pronunciation]

**Positive Points**:
- [What the speaker did well]

Be encouraging but precise in your feedback.`

// Audio is an encoded recording.
type Audio struct {
	Data     []byte
	MIMEType string
}

// Analysis is the critique shown to the user. When Err is set, Text holds
// the placeholder for that failure.
type Analysis struct {
	Text string
	Err  error
}

type Analyzer struct {
	gen   generator
	model string
}

// Analyze sends one request and never fails: problems come back as a
// placeholder Text plus Err.
func (a *Analyzer) Analyze(ctx context.Context, audio Audio, sentence string) Analysis {
	ctx = withOp(ctx, "analyze", a.model)

	parts := []*genai.Part{
		genai.NewPartFromText(fmt.Sprintf(analysisPrompt, sentence)),
		genai.NewPartFromBytes(audio.Data, audio.MIMEType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := a.gen.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			err = apperr.Network("analysis request", err)
		}
		return Analysis{Text: NetworkErrorFeedback, Err: err}
	}

	text, ok := firstText(resp)
	if !ok {
		return Analysis{Text: PlaceholderFeedback, Err: apperr.Malformed("response carries no analysis text")}
	}
	return Analysis{Text: text}
}

func firstPart(resp *genai.GenerateContentResponse) *genai.Part {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil || len(c.Content.Parts) == 0 {
		return nil
	}
	return c.Content.Parts[0]
}

func firstText(resp *genai.GenerateContentResponse) (string, bool) {
	p := firstPart(resp)
	if p == nil || p.Text == "" {
		return "", false
	}
	return p.Text, true
}
