package enginenode

import (
	statex "github.com/planscout/planscout/agent/state"
)

// sourceSectionTable maps each source to the section its facts land in when
// the classifier gave no hint. Deterministic so folds are reproducible.
var sourceSectionTable = map[string]statex.SectionID{
	"wikipedia": statex.SectionOverview,
	"website":   statex.SectionOpportunities,
	"news":      statex.SectionFinancials,
}

// sectionForSource resolves the fold target for one source: the classifier
// hint wins, then the table, then the overview catch-all.
func sectionForSource(source string, hint statex.SectionID) statex.SectionID {
	if hint != "" {
		return hint
	}
	if sec, ok := sourceSectionTable[source]; ok {
		return sec
	}
	return statex.SectionOverview
}
