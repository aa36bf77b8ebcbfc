package formcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/2beens/fitlog/internal/telemetry/tracing"
)

var ErrNoAPIKey = errors.New("gemini api key not set")

const coachPrompt = `You are an experienced strength and conditioning coach reviewing a short exercise clip.

Analyze the athlete's form throughout the clip:
1. Identify the exercise and the setup / transition into the first rep.
2. Check joint angles and body alignment against good form for that exercise.
3. Comment on tempo, range of motion / depth, and core engagement.
4. Call out compensation patterns or anything that risks injury.

Finish with the corrections the athlete should work on, ordered by impact,
most important first. Keep the whole answer short and practical.`

// Analyzer sends the transcoded clip to Gemini and returns the
// coaching feedback as plain text.
type Analyzer struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewAnalyzer(apiKey, model string, httpClient *http.Client) *Analyzer {
	return &Analyzer{
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

func (a *Analyzer) Analyze(ctx context.Context, videoPath string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "formcheck.analyze")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	// checked before any network call, a missing key is a deployment
	// problem and not a model error
	if a.apiKey == "" {
		return "", ErrNoAPIKey
	}

	videoBytes, err := os.ReadFile(videoPath)
	if err != nil {
		return "", fmt.Errorf("read video: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     a.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: a.httpClient,
	})
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}

	contents := []*genai.Content{
		{
			Parts: []*genai.Part{
				{
					InlineData: &genai.Blob{
						MIMEType: "video/mp4",
						Data:     videoBytes,
					},
				},
				{
					Text: coachPrompt,
				},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no analysis generated")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	analysis := sb.String()
	if analysis == "" {
		return "", errors.New("empty analysis generated")
	}

	return analysis, nil
}
