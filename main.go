package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mmundy42/mackinac/internal/config"
	"github.com/mmundy42/mackinac/internal/util"
	"github.com/mmundy42/mackinac/logger"
	"github.com/mmundy42/mackinac/pkg/genome"
	"github.com/mmundy42/mackinac/pkg/jobs"
	"github.com/mmundy42/mackinac/pkg/likelihood"
	"github.com/mmundy42/mackinac/pkg/model"
	"github.com/mmundy42/mackinac/pkg/store"
	"github.com/mmundy42/mackinac/pkg/template"
)

const usageText = `usage: mackinac <command> [options]

commands:
  build-db      build the search database from the reference protein file
  likelihoods   calculate reaction likelihoods for a genome
  reconstruct   reconstruct a draft model for a genome
  models        list the models in the local store

Run "mackinac <command> -h" for the options of a command.
`

func main() {

	// Establish logger
	VERSION := "0.1.0"
	LOG_LEVEL := zapcore.InfoLevel

	if err := logger.InitLogger(LOG_LEVEL); err != nil {
		panic(err)
	}

	// Try load env
	dotenvErr := godotenv.Load()

	if dotenvErr != nil {
		logger.Warn("No .env found, using local environment")
	}

	defer logger.Sync() // Make sure that the buffered is flushed.

	cfg := config.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	logger.Info("Start:", zap.String("Version", VERSION), zap.String("Command", os.Args[1]))

	var err error
	switch os.Args[1] {
	case "build-db":
		err = runBuildDB(cfg, os.Args[2:])
	case "likelihoods":
		err = runLikelihoods(cfg, os.Args[2:])
	case "reconstruct":
		err = runReconstruct(cfg, os.Args[2:])
	case "models":
		err = runModels(cfg, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed:", zap.String("command", os.Args[1]), zap.Error(err))
		os.Exit(1)
	}
}

func newSearcher(cfg config.Config) (*likelihood.Searcher, error) {
	return likelihood.NewSearcher(cfg.Search.ProgramName, cfg.Search.ProgramPath,
		cfg.Search.EValue, cfg.Search.Accel, cfg.Search.Threads)
}

func loadTemplate(cfg config.Config, universalFolder, templateFolder string) (*template.Template, error) {
	tpl := template.New("growth", "Growth template", "growth", "Bacteria")
	err := tpl.LoadFromFiles(template.SourcePaths{
		UniversalMetabolites: path.Join(universalFolder, "metabolites.json"),
		UniversalReactions:   path.Join(universalFolder, "reactions.json"),
		Compartments:         path.Join(templateFolder, "compartments.tsv"),
		Biomasses:            path.Join(templateFolder, "biomasses.tsv"),
		BiomassComponents:    path.Join(templateFolder, "biomass_metabolites.tsv"),
		Reactions:            path.Join(templateFolder, "reactions.tsv"),
		Complexes:            path.Join(templateFolder, "complexes.tsv"),
		Roles:                path.Join(templateFolder, "roles.tsv"),
	})
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

func runBuildDB(cfg config.Config, args []string) error {
	flags := flag.NewFlagSet("build-db", flag.ExitOnError)
	fastaPath := flags.String("fasta", cfg.ProteinFastaPath(), "path to reference protein fasta file")
	databasePath := flags.String("db", cfg.Search.DatabasePath, "path for the search database")
	flags.Parse(args)

	if !util.FileExists(*fastaPath) {
		return fmt.Errorf("protein fasta file %s does not exist", *fastaPath)
	}
	searcher, err := newSearcher(cfg)
	if err != nil {
		return err
	}
	if err := searcher.BuildDatabase(*fastaPath, *databasePath); err != nil {
		return err
	}
	logger.Info("Built search database on", zap.String("path", *databasePath))
	return nil
}

func runLikelihoods(cfg config.Config, args []string) error {
	flags := flag.NewFlagSet("likelihoods", flag.ExitOnError)
	genomeID := flags.String("genome", "", "ID of the genome to annotate")
	universalFolder := flags.String("universal", path.Join(cfg.Data.Folder, "universal"), "folder with universal source files")
	templateFolder := flags.String("template", path.Join(cfg.Data.Folder, "template"), "folder with template source files")
	annotation := flags.String("annotation", genome.AnnotationPATRIC, "annotation scheme (PATRIC or RefSeq)")
	flags.Parse(args)
	if *genomeID == "" {
		return fmt.Errorf("a genome ID is required")
	}

	ctx := context.Background()
	tpl, err := loadTemplate(cfg, *universalFolder, *templateFolder)
	if err != nil {
		return err
	}

	client := genome.NewClient(cfg.Genome.APIURL)
	features, err := client.Features(ctx, *genomeID, *annotation)
	if err != nil {
		return err
	}

	searcher, err := newSearcher(cfg)
	if err != nil {
		return err
	}
	annotator := likelihood.NewAnnotation(searcher, cfg.Search.DatabasePath,
		cfg.FidRolePath(), cfg.Likelihood.WorkFolder)
	annotator.PseudoCount = cfg.Likelihood.PseudoCount
	annotator.DilutionPercent = cfg.Likelihood.DilutionPercent
	annotator.Separator = cfg.Likelihood.Separator
	annotator.Debug = cfg.Likelihood.Debug

	manager := jobs.NewManager(func(ctx context.Context, spec jobs.Spec) (string, error) {
		if err := annotator.Calculate(spec.Parameters["genome"], features,
			tpl.ComplexesToRoles(), tpl.ReactionsToComplexes()); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d reaction likelihoods", len(annotator.ReactionValues)), nil
	})
	jobCtx, cancel := context.WithTimeout(ctx, cfg.Jobs.Timeout)
	defer cancel()
	jobID, err := manager.Submit(jobCtx, jobs.Spec{
		Command:    "likelihoods",
		Parameters: map[string]string{"genome": *genomeID},
	})
	if err != nil {
		return err
	}
	if _, err := jobs.Wait(jobCtx, manager, jobID, cfg.Jobs.PollInterval); err != nil {
		return err
	}
	logger.Info("Finished likelihood calculation for",
		zap.String("genome", *genomeID),
		zap.Int("reactions", len(annotator.ReactionValues)),
		zap.Float64("average", annotator.Statistics.AverageLikelihood))

	ws, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer ws.Close()
	return ws.SaveLikelihoods(ctx, *genomeID, annotator.ReactionValues)
}

func runReconstruct(cfg config.Config, args []string) error {
	flags := flag.NewFlagSet("reconstruct", flag.ExitOnError)
	genomeID := flags.String("genome", "", "ID of the genome to reconstruct")
	modelID := flags.String("model", "", "ID for the model (defaults to the genome ID)")
	biomassID := flags.String("biomass", "bio1", "ID of the biomass entity for the objective")
	universalFolder := flags.String("universal", path.Join(cfg.Data.Folder, "universal"), "folder with universal source files")
	templateFolder := flags.String("template", path.Join(cfg.Data.Folder, "template"), "folder with template source files")
	annotation := flags.String("annotation", genome.AnnotationPATRIC, "annotation scheme (PATRIC or RefSeq)")
	cutoff := flags.Float64("cutoff", 0.0, "when positive, reconstruct from stored likelihoods at this cutoff")
	flags.Parse(args)
	if *genomeID == "" {
		return fmt.Errorf("a genome ID is required")
	}
	if *modelID == "" {
		*modelID = *genomeID
	}

	ctx := context.Background()
	tpl, err := loadTemplate(cfg, *universalFolder, *templateFolder)
	if err != nil {
		return err
	}

	client := genome.NewClient(cfg.Genome.APIURL)
	summary, err := client.Summary(ctx, *genomeID)
	if err != nil {
		return err
	}
	gcContent := summary.GCContent / 100.0

	ws, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer ws.Close()

	var built *model.Model
	if *cutoff > 0.0 {
		values, err := ws.GetLikelihoods(ctx, *genomeID)
		if err != nil {
			return err
		}
		likelihoods := make(map[string]float64, len(values))
		for id, value := range values {
			likelihoods[id] = value.Likelihood
		}
		built, err = tpl.ReconstructFromLikelihoods(*modelID, summary.Name, likelihoods,
			*cutoff, *biomassID, gcContent)
		if err != nil {
			return err
		}
	} else {
		records, err := client.Features(ctx, *genomeID, *annotation)
		if err != nil {
			return err
		}
		var features []*genome.Feature
		for _, record := range records {
			if record.Product == "" {
				continue
			}
			featureID, err := record.FeatureID()
			if err != nil {
				return err
			}
			features = append(features, genome.NewFeature(featureID, record.Product))
		}

		built, err = tpl.Reconstruct(*modelID, summary.Name, features, *biomassID, gcContent)
		if err != nil {
			return err
		}
		valid := template.CheckBoundaryMetabolites(built, "e", "c")
		logger.Info("Verified boundary metabolites on",
			zap.String("model", built.ID), zap.Int("valid", valid))
	}

	if err := ws.SaveModel(ctx, built, *genomeID); err != nil {
		return err
	}
	logger.Info("Saved model on",
		zap.String("model", built.ID),
		zap.Int("reactions", len(built.Reactions())),
		zap.Int("metabolites", len(built.Metabolites())))
	return nil
}

func runModels(cfg config.Config, args []string) error {
	flags := flag.NewFlagSet("models", flag.ExitOnError)
	flags.Parse(args)

	ws, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer ws.Close()

	infos, err := ws.ListModels(context.Background())
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Printf("%s\t%s\t%s\n", info.ID, info.GenomeID, info.Name)
	}
	return nil
}
