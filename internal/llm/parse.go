package llm

import "strings"

// The model is instructed to answer with labeled sections. Parsing is
// tolerant: a missing marker leaves later sections empty rather than
// failing, and whatever text sits under the last seen marker is kept.

func parseInsights(content string) *Insights {
	sections := splitSections(content, []string{
		"HISTORICAL_CONTEXT:",
		"THEOLOGICAL_SIGNIFICANCE:",
		"PRACTICAL_APPLICATION:",
	})
	return &Insights{
		HistoricalContext:       sections[0],
		TheologicalSignificance: sections[1],
		PracticalApplication:    sections[2],
	}
}

func parseDefinition(content string) *Definition {
	sections := splitSections(content, []string{
		"DEFINITION:",
		"BIBLICAL_USAGE:",
		"ORIGINAL_LANGUAGE:",
	})
	return &Definition{
		Definition:       sections[0],
		BiblicalUsage:    sections[1],
		OriginalLanguage: sections[2],
	}
}

// splitSections carves content into one string per marker, in marker
// order. Text before the first marker is discarded; each section runs
// until the next marker that actually appears.
func splitSections(content string, markers []string) []string {
	out := make([]string, len(markers))

	starts := make([]int, len(markers))
	for i, m := range markers {
		starts[i] = strings.Index(content, m)
	}

	for i, start := range starts {
		if start < 0 {
			continue
		}
		begin := start + len(markers[i])
		end := len(content)
		for j := i + 1; j < len(markers); j++ {
			if starts[j] >= 0 {
				end = starts[j]
				break
			}
		}
		if begin > end {
			continue
		}
		out[i] = strings.TrimSpace(content[begin:end])
	}
	return out
}
