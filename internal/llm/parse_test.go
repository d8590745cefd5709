package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInsights_AllSections(t *testing.T) {
	content := `HISTORICAL_CONTEXT: Written during the Babylonian exile.
THEOLOGICAL_SIGNIFICANCE: God remains sovereign over history.
PRACTICAL_APPLICATION: Trust through displacement and loss.`

	ins := parseInsights(content)
	assert.Equal(t, "Written during the Babylonian exile.", ins.HistoricalContext)
	assert.Equal(t, "God remains sovereign over history.", ins.TheologicalSignificance)
	assert.Equal(t, "Trust through displacement and loss.", ins.PracticalApplication)
}

func TestParseInsights_PreambleDiscarded(t *testing.T) {
	content := `Here are my thoughts on this passage.

HISTORICAL_CONTEXT: Context here.
THEOLOGICAL_SIGNIFICANCE: Themes here.
PRACTICAL_APPLICATION: Application here.`

	ins := parseInsights(content)
	assert.Equal(t, "Context here.", ins.HistoricalContext)
}

func TestParseInsights_MissingMarkers(t *testing.T) {
	ins := parseInsights("HISTORICAL_CONTEXT: Only this section came back.")
	assert.Equal(t, "Only this section came back.", ins.HistoricalContext)
	assert.Empty(t, ins.TheologicalSignificance)
	assert.Empty(t, ins.PracticalApplication)
}

func TestParseInsights_MiddleMarkerMissing(t *testing.T) {
	content := `HISTORICAL_CONTEXT: First part.
PRACTICAL_APPLICATION: Last part.`

	ins := parseInsights(content)
	assert.Equal(t, "First part.", ins.HistoricalContext)
	assert.Empty(t, ins.TheologicalSignificance)
	assert.Equal(t, "Last part.", ins.PracticalApplication)
}

func TestParseInsights_NoMarkersAtAll(t *testing.T) {
	ins := parseInsights("I cannot analyze this passage.")
	assert.Empty(t, ins.HistoricalContext)
	assert.Empty(t, ins.TheologicalSignificance)
	assert.Empty(t, ins.PracticalApplication)
}

func TestParseDefinition_AllSections(t *testing.T) {
	content := `DEFINITION: Steadfast love and covenant loyalty.
BIBLICAL_USAGE: Appears roughly 250 times, chiefly in Psalms.
ORIGINAL_LANGUAGE: Hebrew chesed, no single English equivalent.`

	def := parseDefinition(content)
	assert.Equal(t, "Steadfast love and covenant loyalty.", def.Definition)
	assert.Equal(t, "Appears roughly 250 times, chiefly in Psalms.", def.BiblicalUsage)
	assert.Equal(t, "Hebrew chesed, no single English equivalent.", def.OriginalLanguage)
}

func TestParseDefinition_MultilineSections(t *testing.T) {
	content := `DEFINITION: Grace is unmerited favor.
It is given, not earned.
BIBLICAL_USAGE: Central to Paul's letters.
ORIGINAL_LANGUAGE: Greek charis.`

	def := parseDefinition(content)
	assert.Equal(t, "Grace is unmerited favor.\nIt is given, not earned.", def.Definition)
	assert.Equal(t, "Central to Paul's letters.", def.BiblicalUsage)
}
