package report

import (
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// barLength is the width of the terminal-style progress bars.
const barLength = 10

var reportTemplate = template.Must(
	template.New("terminal_report.html.tmpl").
		Funcs(template.FuncMap{
			"progressBar":   progressBar,
			"dimensionName": dimensionName,
		}).
		ParseFS(templateFS, "templates/terminal_report.html.tmpl"),
)

// progressBar renders a percentage as a fixed-width star bar, the way a
// terminal UI would.
func progressBar(percent int) string {
	filled := (percent*barLength + 50) / 100
	if filled < 0 {
		filled = 0
	}
	if filled > barLength {
		filled = barLength
	}
	return strings.Repeat("*", filled) + strings.Repeat("-", barLength-filled)
}

// dimensionName expands a winning pole letter to its full axis label.
func dimensionName(pole string) string {
	switch strings.ToUpper(pole) {
	case "E":
		return "Extraversion (E)"
	case "I":
		return "Introversion (I)"
	case "S":
		return "Sensing (S)"
	case "N":
		return "Intuition (N)"
	case "T":
		return "Thinking (T)"
	case "F":
		return "Feeling (F)"
	case "J":
		return "Judging (J)"
	case "P":
		return "Perceiving (P)"
	default:
		return pole
	}
}

// typeDescriptions carries the canonical nickname for each MBTI type.
var typeDescriptions = map[string]string{
	"INTJ": "Architect - imaginative strategic thinker",
	"INTP": "Logician - innovative inventor",
	"ENTJ": "Commander - bold imaginative leader",
	"ENTP": "Debater - smart and curious thinker",
	"INFJ": "Advocate - quiet and mystical idealist",
	"INFP": "Mediator - poetic kind-hearted altruist",
	"ENFJ": "Protagonist - charismatic inspiring leader",
	"ENFP": "Campaigner - enthusiastic creative free spirit",
	"ISTJ": "Logistician - practical fact-minded organizer",
	"ISFJ": "Defender - dedicated warm protector",
	"ESTJ": "Executive - excellent administrator",
	"ESFJ": "Consul - caring popular helper",
	"ISTP": "Virtuoso - bold practical experimenter",
	"ISFP": "Adventurer - flexible charming artist",
	"ESTP": "Entrepreneur - smart energetic perceiver",
	"ESFP": "Entertainer - spontaneous energetic enjoyer",
}

func typeDescription(mbtiType string) string {
	if desc, ok := typeDescriptions[strings.ToUpper(mbtiType)]; ok {
		return desc
	}
	return "a distinctive personality type"
}

// letterArt renders the four type letters as block ASCII art, six lines
// tall, for the report header.
var letterArt = map[rune][]string{
	'E': {"███████╗", "██╔════╝", "█████╗  ", "██╔══╝  ", "███████╗", "╚══════╝"},
	'I': {"██╗", "██║", "██║", "██║", "██║", "╚═╝"},
	'N': {"███╗   ██╗", "████╗  ██║", "██╔██╗ ██║", "██║╚██╗██║", "██║ ╚████║", "╚═╝  ╚═══╝"},
	'S': {"███████╗", "██╔════╝", "███████╗", "╚════██║", "███████║", "╚══════╝"},
	'T': {"████████╗", "╚══██╔══╝", "   ██║   ", "   ██║   ", "   ██║   ", "   ╚═╝   "},
	'F': {"███████╗", "██╔════╝", "█████╗  ", "██╔══╝  ", "██║     ", "╚═╝     "},
	'J': {"     ██╗", "     ██║", "     ██║", "██   ██║", "╚█████╔╝", " ╚════╝ "},
	'P': {"██████╗ ", "██╔══██╗", "██████╔╝", "██╔═══╝ ", "██║     ", "╚═╝     "},
}

func asciiArt(mbtiType string) string {
	lines := make([]string, 6)
	for _, letter := range strings.ToUpper(mbtiType) {
		art, ok := letterArt[letter]
		if !ok {
			continue
		}
		for i := range lines {
			lines[i] += art[i] + "  "
		}
	}
	return strings.Join(lines, "\n")
}
