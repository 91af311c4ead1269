package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/TheApexWu/lacuna/config"
	"github.com/TheApexWu/lacuna/pkg/divergence"
	"github.com/TheApexWu/lacuna/pkg/embeddings"
	"github.com/TheApexWu/lacuna/pkg/frames"
	"github.com/TheApexWu/lacuna/pkg/interpret"
	"github.com/TheApexWu/lacuna/pkg/models"
	"github.com/TheApexWu/lacuna/pkg/pipeline"
	"github.com/TheApexWu/lacuna/pkg/validation"
)

// run is the entrypoint for a full pipeline pass
func run() {
	cfg := loadConfig()

	log.Infof("Starting lacuna version %s", config.VersionString)

	appState := NewAppState(cfg)

	set, err := frames.LoadConceptSet(inputPath)
	if err != nil {
		log.Fatalf("Error loading concept set: %s", err)
	}

	result, err := pipeline.Run(context.Background(), appState, set)
	if err != nil {
		// Partial results are still written; the error names the
		// stage and language that produced nothing.
		log.Errorf("Run completed with failures: %s", err)
	}
	if result == nil {
		os.Exit(1)
	}

	if werr := pipeline.WriteResult(outputPath, result); werr != nil {
		log.Fatalf("Error writing output: %s", werr)
	}
	log.Infof("Run %s: %d valid, %d rejected, %d ghosts",
		result.RunID, result.Stats.Valid, result.Stats.Rejected, result.Stats.Ghosts)

	if err != nil {
		os.Exit(1)
	}
}

// NewAppState creates an AppState struct from the config file / ENV and
// constructs the embedding provider client
func NewAppState(cfg *config.Config) *models.AppState {
	client, err := embeddings.NewEmbeddingClient(cfg)
	if err != nil {
		log.Fatalf("Error creating embeddings client: %s", err)
	}

	return &models.AppState{
		EmbeddingClient: client,
		Interpreter:     interpret.NewTemplateInterpreter(),
		Config:          cfg,
	}
}

func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Error configuring lacuna: %s", err)
	}

	handleCLIOptions(cfg)

	config.SetLogLevel(cfg)
	return cfg
}

// handleCLIOptions handles CLI options that don't require a run
func handleCLIOptions(cfg *config.Config) {
	if showVersion {
		fmt.Println(config.VersionString)
		os.Exit(0)
	}
	if dumpConfig {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			log.Fatalf("Error dumping config: %s", err)
		}
		fmt.Println(string(data))
		os.Exit(0)
	}
}

// inspect prints a readiness report for each dataset path.
func inspect(paths []string) {
	loadConfig()

	ready := 0
	for _, path := range paths {
		set, err := frames.LoadConceptSet(path)
		if err != nil {
			log.Errorf("Failed to load %s: %s", path, err)
			continue
		}
		summary := frames.Summarize(set)
		frames.LogSummary(path, summary)
		if summary.Ready {
			ready++
		}
	}
	log.Infof("%d/%d datasets ready", ready, len(paths))
}

// probe embeds a live sentence in both languages of a pair and reports
// its divergence direction against the current concept set.
func probe() {
	cfg := loadConfig()
	appState := NewAppState(cfg)

	set, err := frames.LoadConceptSet(inputPath)
	if err != nil {
		log.Fatalf("Error loading concept set: %s", err)
	}

	ctx := context.Background()
	embedder := embeddings.NewEmbedder(appState)

	byLang := map[string]*models.LanguageVectors{}
	for _, lang := range []string{probeLangA, probeLangB} {
		lv, _, err := embedder.EmbedLanguage(ctx, set, lang)
		if err != nil {
			log.Fatalf("Error embedding concept set for %s: %s", lang, err)
		}
		byLang[lang] = lv
	}

	textB := probeTextB
	if textB == "" {
		textB = probeText
	}
	vecs, err := appState.EmbeddingClient.EmbedTexts(ctx, []string{probeText, textB})
	if err != nil {
		log.Fatalf("Error embedding probe: %s", err)
	}

	validator := validation.NewValidator(cfg.Validation)
	vres := validator.Validate(set, byLang)

	detector := divergence.NewDetector(cfg.Ghost)
	pr := detector.CompareProbe(vres, probeLangA, probeLangB, vecs[0], vecs[1])

	data, err := json.MarshalIndent(pr, "", "  ")
	if err != nil {
		log.Fatalf("Error encoding probe result: %s", err)
	}
	fmt.Println(string(data))
}
