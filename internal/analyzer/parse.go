package analyzer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/personalens/personalens/internal/core"
	apperrors "github.com/personalens/personalens/internal/errors"
)

var (
	jsonFencePattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	mbtiTypePattern  = regexp.MustCompile(`^[EI][SN][TF][JP]$`)
	trailingComma    = regexp.MustCompile(`,(\s*[}\]])`)
)

// verdict mirrors the JSON shape the prompt instructs the model to emit.
type verdict struct {
	MBTIType   string                    `json:"mbti_type"`
	Dimensions map[string]dimensionScore `json:"dimensions"`
	Overall    string                    `json:"overall_analysis"`
}

type dimensionScore struct {
	Type       string `json:"type"`
	Percentage int    `json:"percentage"`
	Analysis   string `json:"analysis"`
}

// axisOrder fixes the presentation order of the four dimensions.
var axisOrder = []struct {
	key  string
	name string
}{
	{"E_I", "EI"},
	{"S_N", "SN"},
	{"T_F", "TF"},
	{"J_P", "JP"},
}

// parseVerdict extracts the JSON verdict from a model response and
// converts it to a result. Malformed output is an empty result, not a
// transient failure: re-sending the same prompt tends to reproduce it.
func parseVerdict(responseText, username string) (*core.MBTIResult, error) {
	jsonText, err := extractJSON(responseText)
	if err != nil {
		return nil, err
	}

	var v verdict
	if err := json.Unmarshal([]byte(jsonText), &v); err != nil {
		// One repair pass for the model's most common slip.
		repaired := trailingComma.ReplaceAllString(jsonText, "$1")
		if err := json.Unmarshal([]byte(repaired), &v); err != nil {
			return nil, apperrors.EmptyResult(ServiceName, username,
				fmt.Sprintf("verdict is not valid JSON: %v", err))
		}
	}

	mbtiType := strings.ToUpper(strings.TrimSpace(v.MBTIType))
	if !mbtiTypePattern.MatchString(mbtiType) {
		return nil, apperrors.EmptyResult(ServiceName, username,
			fmt.Sprintf("invalid MBTI type in verdict: %q", v.MBTIType))
	}
	if v.Overall == "" {
		return nil, apperrors.EmptyResult(ServiceName, username, "verdict is missing overall_analysis")
	}

	axes := make([]core.AxisScore, 0, len(axisOrder))
	var percentSum int
	for _, axis := range axisOrder {
		score, ok := v.Dimensions[axis.key]
		if !ok {
			return nil, apperrors.EmptyResult(ServiceName, username,
				fmt.Sprintf("verdict is missing dimension %s", axis.key))
		}
		percent := score.Percentage
		if percent < 50 {
			percent = 50
		}
		if percent > 100 {
			percent = 100
		}
		axes = append(axes, core.AxisScore{
			Dimension: axis.name,
			Value:     strings.ToUpper(strings.TrimSpace(score.Type)),
			Percent:   percent,
			Evidence:  score.Analysis,
		})
		percentSum += percent
	}

	return &core.MBTIResult{
		Username:   username,
		Type:       mbtiType,
		Confidence: float64(percentSum) / float64(len(axes)) / 100,
		Axes:       axes,
		Summary:    v.Overall,
		AnalyzedAt: time.Now().UTC(),
	}, nil
}

// extractJSON pulls the JSON block out of a response, preferring a
// ```json fence and falling back to the outermost braces.
func extractJSON(responseText string) (string, error) {
	if match := jsonFencePattern.FindStringSubmatch(responseText); match != nil {
		return match[1], nil
	}

	start := strings.Index(responseText, "{")
	end := strings.LastIndex(responseText, "}")
	if start == -1 || end == -1 || end < start {
		return "", apperrors.EmptyResult(ServiceName, "", "no JSON verdict found in response")
	}
	return responseText[start : end+1], nil
}
