package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"godlearn/config"
	"godlearn/internal/adapter/analyzer"
	"godlearn/internal/adapter/journal"
	"godlearn/internal/domain"
)

// ReasonUseCase builds the cross-document reasoning graph over promoted
// knowledge units. Similarity is character n-gram overlap on stored text,
// never embeddings, so the graph is auditable independent of any embedding
// model. The whole computation is deterministic: ties break on
// (source_ku_id, target_ku_id), and recomputation over the same KU set
// appends nothing new.
type ReasonUseCase struct {
	knowledge *journal.KnowledgeLog
	reasoning *journal.ReasoningLog
	cfg       config.ReasonConfig
	logger    *zap.Logger
}

func NewReasonUseCase(
	knowledge *journal.KnowledgeLog,
	reasoning *journal.ReasoningLog,
	cfg config.ReasonConfig,
	logger *zap.Logger,
) *ReasonUseCase {
	return &ReasonUseCase{
		knowledge: knowledge,
		reasoning: reasoning,
		cfg:       cfg,
		logger:    logger,
	}
}

// ReasonResult reports what a reasoning run produced.
type ReasonResult struct {
	KUs           int
	PairsScored   int
	EdgesRetained int
	EdgesAppended int
}

type scoredPair struct {
	a, b    int
	jaccard float64
}

// Build computes the pruned, typed relation graph and appends new edges.
func (u *ReasonUseCase) Build() (*ReasonResult, error) {
	units, err := u.knowledge.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge log: %w", err)
	}

	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })

	result := &ReasonResult{KUs: len(units)}
	if len(units) < 2 {
		return result, nil
	}

	grams := make([]map[string]struct{}, len(units))
	negated := make([]bool, len(units))
	for i, ku := range units {
		grams[i] = analyzer.NGramSet(ku.Text, u.cfg.NGramSize)
		negated[i] = analyzer.HasNegation(ku.Text)
	}

	// Score all pairs above the edge threshold, then prune to the top-K
	// neighbors per KU to bound the graph at O(K*|KU|).
	neighbors := make([][]scoredPair, len(units))
	for i := 0; i < len(units); i++ {
		for j := i + 1; j < len(units); j++ {
			result.PairsScored++
			sim := analyzer.Jaccard(grams[i], grams[j])
			if sim < u.cfg.EdgeThreshold {
				continue
			}
			pair := scoredPair{a: i, b: j, jaccard: sim}
			neighbors[i] = append(neighbors[i], pair)
			neighbors[j] = append(neighbors[j], pair)
		}
	}

	retained := make(map[[2]int]scoredPair)
	for i := range neighbors {
		ns := neighbors[i]
		sort.Slice(ns, func(x, y int) bool {
			if ns[x].jaccard != ns[y].jaccard {
				return ns[x].jaccard > ns[y].jaccard
			}
			// Lexical tie-break on the pair's KU IDs.
			if units[ns[x].a].ID != units[ns[y].a].ID {
				return units[ns[x].a].ID < units[ns[y].a].ID
			}
			return units[ns[x].b].ID < units[ns[y].b].ID
		})
		if len(ns) > u.cfg.TopK {
			ns = ns[:u.cfg.TopK]
		}
		for _, p := range ns {
			retained[[2]int{p.a, p.b}] = p
		}
	}

	var edges []domain.ReasoningEdge
	for _, p := range retained {
		edges = append(edges, u.classify(units, grams, negated, p))
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourceKU != edges[j].SourceKU {
			return edges[i].SourceKU < edges[j].SourceKU
		}
		return edges[i].TargetKU < edges[j].TargetKU
	})

	result.EdgesRetained = len(edges)
	appended, err := u.reasoning.Append(edges...)
	if err != nil {
		return nil, fmt.Errorf("failed to append reasoning edges: %w", err)
	}
	result.EdgesAppended = appended

	u.logger.Info("reasoning graph built",
		zap.Int("kus", result.KUs),
		zap.Int("edges_retained", result.EdgesRetained),
		zap.Int("edges_appended", result.EdgesAppended))

	return result, nil
}

// classify assigns a relation type with deterministic heuristics. Direction
// for containment relations runs container -> contained; everything else
// runs in lexical KU order.
func (u *ReasonUseCase) classify(units []domain.KnowledgeUnit, grams []map[string]struct{}, negated []bool, p scoredPair) domain.ReasoningEdge {
	a, b := p.a, p.b
	source, target := units[a].ID, units[b].ID
	if source > target {
		source, target = target, source
		a, b = b, a
	}

	containA := analyzer.Containment(grams[a], grams[b]) // share of a inside b
	containB := analyzer.Containment(grams[b], grams[a])

	relation := domain.RelationContrast
	switch {
	case negated[a] != negated[b]:
		relation = domain.RelationConflict
	case containA >= u.cfg.InheritContainment || containB >= u.cfg.InheritContainment:
		relation = domain.RelationInheritance
	case containA >= u.cfg.ElaborateContainment || containB >= u.cfg.ElaborateContainment:
		relation = domain.RelationElaboration
	case p.jaccard >= u.cfg.SupportThreshold:
		relation = domain.RelationSupport
	}

	// Containment relations point from the container to the unit it
	// subsumes.
	if relation == domain.RelationInheritance || relation == domain.RelationElaboration {
		if containA > containB {
			// a's grams sit inside b: b contains a.
			source, target = units[b].ID, units[a].ID
		} else {
			source, target = units[a].ID, units[b].ID
		}
	}

	return domain.ReasoningEdge{
		ID:       edgeID(source, target, relation),
		SourceKU: source,
		TargetKU: target,
		Relation: relation,
		Score:    p.jaccard,
	}
}

func edgeID(source, target, relation string) string {
	hash := sha256.Sum256([]byte(source + ">" + target + ":" + relation))
	return hex.EncodeToString(hash[:8])
}
