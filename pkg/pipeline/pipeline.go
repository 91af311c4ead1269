package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/TheApexWu/lacuna/config"
	"github.com/TheApexWu/lacuna/internal"
	"github.com/TheApexWu/lacuna/pkg/divergence"
	"github.com/TheApexWu/lacuna/pkg/embeddings"
	"github.com/TheApexWu/lacuna/pkg/models"
	"github.com/TheApexWu/lacuna/pkg/search"
	"github.com/TheApexWu/lacuna/pkg/topology"
	"github.com/TheApexWu/lacuna/pkg/validation"
)

var log = internal.GetLogger()

const explainNeighbors = 5

// Run drives one full pipeline pass: embed, validate, detect ghosts,
// project. Stage-local failures never abort the run; the result is the
// best-effort union of what could be computed, with every exclusion
// flagged. Only a language that produced no data at all makes Run return
// an error, and even then alongside the partial result.
func Run(
	ctx context.Context,
	appState *models.AppState,
	set *models.ConceptSet,
) (*models.RunResult, error) {
	cfg := appState.Config

	langs := cfg.Languages
	if len(langs) == 0 {
		langs = set.Meta.Languages
	}

	result := &models.RunResult{
		RunID:     uuid.New().String(),
		Model:     cfg.Embeddings.Model,
		Languages: langs,
	}
	result.Stats.Total = len(set.Concepts)

	log.Infof("run %s: %d concepts, languages %v, model %s",
		result.RunID, len(set.Concepts), langs, result.Model)

	// Stage 2: embed. Languages run sequentially so the shared
	// inter-batch delay actually rate-limits the provider.
	embedder := embeddings.NewEmbedder(appState)
	byLang := map[string]*models.LanguageVectors{}
	var fatalErr error
	for _, lang := range langs {
		lv, missing, err := embedder.EmbedLanguage(ctx, set, lang)
		result.MissingEmbeddings = append(result.MissingEmbeddings, missing...)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			log.Errorf("no embeddings for %s: %v", lang, err)
			fatalErr = err
			continue
		}
		byLang[lang] = lv
	}
	for _, m := range result.MissingEmbeddings {
		log.Infof("SKIP %s (%s): %s", m.ConceptID, m.Language, m.Reason)
	}

	// Stage 3: validate
	validator := validation.NewValidator(cfg.Validation)
	vres := validator.Validate(set, byLang)

	// Stage 4: divergence and ghost classification
	detector := divergence.NewDetector(cfg.Ghost)
	result.Divergences = detector.Compare(vres, langs)

	// Stage 5: per-language projection fits are independent, so they
	// run concurrently. Each fit only reads its language's vectors and
	// writes its own layout slot.
	layouts := fitLayouts(vres, langs, cfg.Topology)
	for _, lang := range langs {
		if layouts[lang] != nil && layouts[lang].LowConfidence {
			result.LowConfidenceTopologies = append(result.LowConfidenceTopologies, lang)
		}
	}

	assemble(result, set, langs, vres, layouts)
	interpret(ctx, appState, set, vres, result)

	if fatalErr != nil {
		return result, fatalErr
	}
	return result, nil
}

func fitLayouts(
	vres *validation.Result,
	langs []string,
	cfg config.TopologyConfig,
) map[string]*topology.Layout {
	projector := topology.NewProjector(cfg)
	layouts := map[string]*topology.Layout{}
	var mu sync.Mutex

	var g errgroup.Group
	for _, lang := range langs {
		lang := lang
		surv := vres.Survivors[lang]
		if surv == nil {
			continue
		}
		g.Go(func() error {
			layout, err := projector.Fit(surv)
			if err != nil {
				if errors.Is(err, models.ErrIllDefinedProjection) {
					log.Warnf("topology degraded for %s: %v", lang, err)
				} else {
					log.Errorf("projection failed for %s: %v", lang, err)
					return nil
				}
			}
			mu.Lock()
			layouts[lang] = layout
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return layouts
}

func assemble(
	result *models.RunResult,
	set *models.ConceptSet,
	langs []string,
	vres *validation.Result,
	layouts map[string]*topology.Layout,
) {
	positions := map[string]map[string][2]float64{}
	for lang, layout := range layouts {
		if layout == nil {
			continue
		}
		for i, id := range layout.ConceptIDs {
			if positions[id] == nil {
				positions[id] = map[string][2]float64{}
			}
			positions[id][lang] = [2]float64{layout.Positions[i].X, layout.Positions[i].Z}
		}
	}

	ghosts := map[string]map[string]bool{}
	for _, dr := range result.Divergences {
		for lang, isGhost := range dr.GhostIn {
			if !isGhost {
				continue
			}
			if ghosts[dr.ConceptID] == nil {
				ghosts[dr.ConceptID] = map[string]bool{}
			}
			ghosts[dr.ConceptID][lang] = true
		}
	}

	ghostConcepts := map[string]struct{}{}
	for _, c := range set.Concepts {
		rejected, reason := vres.Rejected(c.ID)
		rec := models.ConceptRecord{
			ID:          c.ID,
			Labels:      c.Labels,
			Definitions: c.Definitions,
			Cluster:     c.Cluster,
			Position:    map[string][2]float64{},
			Weight:      map[string]float64{},
			Ghost:       map[string]bool{},
			Validation: models.ValidationStatus{
				Rejected:     rejected,
				RejectReason: reason,
			},
		}
		if rejected {
			result.Stats.Rejected++
			result.Concepts = append(result.Concepts, rec)
			continue
		}
		// Concepts that never produced an embedding are neither valid
		// nor rejected; they are already listed as missing.
		if _, embedded := vres.Records[c.ID]; embedded {
			result.Stats.Valid++
		}

		for _, lang := range langs {
			if w, ok := vres.Weight(c.ID, lang); ok {
				rec.Weight[lang] = w
				rec.Ghost[lang] = ghosts[c.ID][lang]
				if rec.Ghost[lang] {
					ghostConcepts[c.ID] = struct{}{}
				}
			}
			if pos, ok := positions[c.ID][lang]; ok {
				rec.Position[lang] = pos
			}
		}
		result.Concepts = append(result.Concepts, rec)
	}
	result.Stats.Ghosts = len(ghostConcepts)
}

// interpret asks the optional interpretation provider for a prose
// explanation of each ghost. Provider failures are logged and dropped;
// the core output is already complete at this point.
func interpret(
	ctx context.Context,
	appState *models.AppState,
	set *models.ConceptSet,
	vres *validation.Result,
	result *models.RunResult,
) {
	if appState.Interpreter == nil {
		return
	}

	labels := map[string]map[string]string{}
	for _, c := range set.Concepts {
		labels[c.ID] = c.Labels
	}

	for _, dr := range result.Divergences {
		var ghostIn []string
		for lang, isGhost := range dr.GhostIn {
			if isGhost {
				ghostIn = append(ghostIn, lang)
			}
		}
		if len(ghostIn) == 0 {
			continue
		}

		facts := models.GhostFacts{
			ConceptID:  dr.ConceptID,
			Labels:     labels[dr.ConceptID],
			Weights:    map[string]float64{},
			Divergence: dr.Divergence,
			GhostIn:    ghostIn,
			Neighbors:  map[string][]models.Neighbor{},
		}
		for _, lang := range []string{dr.LanguageA, dr.LanguageB} {
			if w, ok := vres.Weight(dr.ConceptID, lang); ok {
				facts.Weights[lang] = w
			}
			langLabels := map[string]string{}
			for id, ls := range labels {
				langLabels[id] = ls[lang]
			}
			facts.Neighbors[lang] = search.ConceptNeighbors(
				dr.ConceptID, vres.Survivors[lang], langLabels, explainNeighbors,
			)
		}

		text, err := appState.Interpreter.Explain(ctx, facts)
		if err != nil {
			log.Debugf("interpretation failed for %s: %v", dr.ConceptID, err)
			continue
		}
		if result.Interpretations == nil {
			result.Interpretations = map[string]string{}
		}
		result.Interpretations[dr.ConceptID] = text
	}
}
