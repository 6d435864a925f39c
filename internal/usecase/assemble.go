package usecase

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"godlearn/config"
	"godlearn/internal/adapter/journal"
	"godlearn/internal/domain"
)

// AssembleUseCase maps reasoning units 1:1 to prose paragraphs and applies
// a surface-only style pass. Assembly is re-derivable: the same reasoning
// graph always yields the same draft. The style pass never touches
// citations or headings; a post-validator enforces that and falls back to
// the pre-rewrite draft on any drift.
type AssembleUseCase struct {
	knowledge *journal.KnowledgeLog
	reasoning *journal.ReasoningLog
	cfg       config.AssembleConfig
	logger    *zap.Logger
}

func NewAssembleUseCase(
	knowledge *journal.KnowledgeLog,
	reasoning *journal.ReasoningLog,
	cfg config.AssembleConfig,
	logger *zap.Logger,
) *AssembleUseCase {
	return &AssembleUseCase{
		knowledge: knowledge,
		reasoning: reasoning,
		cfg:       cfg,
		logger:    logger,
	}
}

// Paragraph is one draft paragraph, mapped to exactly one knowledge unit.
type Paragraph struct {
	Heading string `json:"heading"`
	KUID    string `json:"ku_id"`
	Text    string `json:"text"`
}

// TraceEntry links a paragraph back to its source reasoning unit.
type TraceEntry struct {
	Paragraph int      `json:"paragraph"`
	KUID      string   `json:"ku_id"`
	EdgeIDs   []string `json:"edge_ids"`
}

// Draft is the assembled synthesis artifact.
type Draft struct {
	Title        string       `json:"title"`
	Outline      []string     `json:"outline"`
	Paragraphs   []Paragraph  `json:"paragraphs"`
	Trace        []TraceEntry `json:"trace"`
	StyleApplied bool         `json:"style_applied"`
}

// Assemble builds the draft from the current reasoning graph.
func (u *AssembleUseCase) Assemble() (*Draft, error) {
	units, err := u.knowledge.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge log: %w", err)
	}
	edges, err := u.reasoning.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read reasoning log: %w", err)
	}

	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })

	outgoing := make(map[string][]domain.ReasoningEdge)
	for _, e := range edges {
		outgoing[e.SourceKU] = append(outgoing[e.SourceKU], e)
	}
	for id := range outgoing {
		es := outgoing[id]
		sort.Slice(es, func(i, j int) bool { return es[i].TargetKU < es[j].TargetKU })
		outgoing[id] = es
	}

	draft := &Draft{Title: u.cfg.Title}
	for i, ku := range units {
		heading := fmt.Sprintf("## Unit %s", ku.ID)
		text := ku.Text

		var edgeIDs []string
		for _, e := range outgoing[ku.ID] {
			text += " " + relationSentence(e)
			edgeIDs = append(edgeIDs, e.ID)
		}

		draft.Outline = append(draft.Outline, heading)
		draft.Paragraphs = append(draft.Paragraphs, Paragraph{
			Heading: heading,
			KUID:    ku.ID,
			Text:    text,
		})
		draft.Trace = append(draft.Trace, TraceEntry{
			Paragraph: i,
			KUID:      ku.ID,
			EdgeIDs:   edgeIDs,
		})
	}

	if u.cfg.StyleRender {
		styled := u.render(draft)
		if err := ValidateRender(draft, styled); err != nil {
			// Never ship an ungrounded rewrite; the plain draft stands.
			u.logger.Warn("style render discarded", zap.Error(err))
			return draft, nil
		}
		styled.StyleApplied = true
		return styled, nil
	}

	return draft, nil
}

func relationSentence(e domain.ReasoningEdge) string {
	switch e.Relation {
	case domain.RelationSupport:
		return fmt.Sprintf("This is consistent with unit %s.", e.TargetKU)
	case domain.RelationConflict:
		return fmt.Sprintf("This is in tension with unit %s.", e.TargetKU)
	case domain.RelationElaboration:
		return fmt.Sprintf("This expands on unit %s.", e.TargetKU)
	case domain.RelationInheritance:
		return fmt.Sprintf("This subsumes unit %s.", e.TargetKU)
	default:
		return fmt.Sprintf("This stands apart from unit %s.", e.TargetKU)
	}
}

// Fixed surface substitutions. The table only ever swaps connective wording,
// so headings and citation markers cannot be affected by construction; the
// validator still checks.
var styleSubstitutions = []struct{ from, to string }{
	{"This is consistent with", "This aligns with"},
	{"This is in tension with", "This conflicts with"},
	{"This expands on", "This elaborates on"},
	{"This stands apart from", "This contrasts with"},
	{"In addition", "Moreover"},
	{"However", "Nevertheless"},
	{"Therefore", "Consequently"},
	{"shows that", "demonstrates that"},
	{"uses", "employs"},
}

// render applies the substitution table to paragraph text. Even paragraphs
// take the even-indexed substitutions and odd paragraphs the odd-indexed
// ones, giving mild variation that is still fully deterministic.
func (u *AssembleUseCase) render(draft *Draft) *Draft {
	out := &Draft{
		Title:   draft.Title,
		Outline: append([]string(nil), draft.Outline...),
		Trace:   append([]TraceEntry(nil), draft.Trace...),
	}
	for i, p := range draft.Paragraphs {
		text := p.Text
		for j, sub := range styleSubstitutions {
			if j%2 == i%2 {
				text = strings.ReplaceAll(text, sub.from, sub.to)
			}
		}
		out.Paragraphs = append(out.Paragraphs, Paragraph{
			Heading: p.Heading,
			KUID:    p.KUID,
			Text:    text,
		})
	}
	return out
}

var citationPattern = regexp.MustCompile(`\[[0-9a-f]{16}:\d+\]`)

// ValidateRender confirms the rewrite is surface-only: identical headings,
// identical paragraph-to-unit mapping and an identical citation multiset.
func ValidateRender(before, after *Draft) error {
	if len(before.Paragraphs) != len(after.Paragraphs) {
		return fmt.Errorf("paragraph count changed: %d -> %d", len(before.Paragraphs), len(after.Paragraphs))
	}
	for i := range before.Paragraphs {
		if before.Paragraphs[i].Heading != after.Paragraphs[i].Heading {
			return fmt.Errorf("heading %d changed", i)
		}
		if before.Paragraphs[i].KUID != after.Paragraphs[i].KUID {
			return fmt.Errorf("paragraph %d remapped from %s to %s", i, before.Paragraphs[i].KUID, after.Paragraphs[i].KUID)
		}
	}

	beforeCites := citationCounts(before)
	afterCites := citationCounts(after)
	for cite, n := range beforeCites {
		if afterCites[cite] != n {
			return fmt.Errorf("citation %s count changed: %d -> %d", cite, n, afterCites[cite])
		}
	}
	for cite := range afterCites {
		if _, ok := beforeCites[cite]; !ok {
			return fmt.Errorf("citation %s introduced by rewrite", cite)
		}
	}
	return nil
}

func citationCounts(d *Draft) map[string]int {
	counts := make(map[string]int)
	for _, p := range d.Paragraphs {
		for _, c := range citationPattern.FindAllString(p.Text, -1) {
			counts[c]++
		}
	}
	return counts
}
