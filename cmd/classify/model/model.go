package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cozy-creator/classify-server/internal/app"
	"github.com/cozy-creator/classify-server/internal/classifier"
	"github.com/cozy-creator/classify-server/internal/config"
	"github.com/cozy-creator/classify-server/internal/services/filestorage"
	"github.com/cozy-creator/classify-server/internal/services/modelfetch"
	"github.com/cozy-creator/classify-server/internal/utils/hashutil"
	"github.com/cozy-creator/classify-server/internal/utils/pathutil"
	"github.com/cozy-creator/classify-server/pkg/logger"

	"github.com/spf13/cobra"
)

var Cmd = &cobra.Command{
	Use:   "model",
	Short: "Inspect and move model artifacts",
}

type inspectReport struct {
	Path       string               `json:"path"`
	Blake3     string               `json:"blake3"`
	Strategy   string               `json:"strategy"`
	Attempts   []classifier.Attempt `json:"attempts"`
	Info       classifier.Info      `json:"info"`
	Geometry   classifier.Geometry  `json:"geometry"`
	OutputSize int                  `json:"output_size"`
}

func init() {
	inspectCmd := &cobra.Command{
		Use:   "inspect [model-path]",
		Short: "Load a model with the startup strategies and print what was found",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().Bool("no-validate", false, "Skip the validation inference")

	pullCmd := &cobra.Command{
		Use:   "pull <source>",
		Short: "Download a model from a URL (hf:<owner>/<repo> for the Hugging Face hub)",
		Args:  cobra.ExactArgs(1),
		RunE:  runPull,
	}
	pullCmd.Flags().String("dest", "", "Destination directory; defaults to the models directory")

	pushCmd := &cobra.Command{
		Use:   "push [model-path]",
		Short: "Upload a model and its metadata sidecar to the configured file storage",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPush,
	}

	Cmd.AddCommand(inspectCmd, pullCmd, pushCmd)
}

func modelPathArg(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		return pathutil.ResolvePath(args[0], cfg.ModelsDir)
	}

	return pathutil.ResolvePath(cfg.ModelPath, cfg.ModelsDir)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg := config.MustGetConfig()
	log, err := logger.InitLogger(cfg)
	if err != nil {
		return err
	}
	defer classifier.DestroyRuntime()

	noValidate, err := cmd.Flags().GetBool("no-validate")
	if err != nil {
		return err
	}

	loaderConfig := app.LoaderConfig(cfg)
	loaderConfig.ModelPath = modelPathArg(cfg, args)
	loaderConfig.FallbackPaths = nil

	file, err := os.Open(loaderConfig.ModelPath)
	if err != nil {
		return err
	}
	digest, err := hashutil.Blake3HashReader(file)
	file.Close()
	if err != nil {
		return err
	}

	result, err := classifier.Load(cmd.Context(), log, classifier.DefaultStrategies(loaderConfig), !noValidate)
	if err != nil {
		report, _ := json.MarshalIndent(result.Attempts, "", "  ")
		return fmt.Errorf("%w:\n%s", err, report)
	}
	defer result.Model.Close()

	info := result.Model.Info()
	geometry, err := classifier.GeometryOf(info.InputShape, info.Layout)
	if err != nil {
		return err
	}

	outputSize := 1
	for _, dim := range info.OutputShape {
		outputSize *= int(dim)
	}

	report, err := json.MarshalIndent(inspectReport{
		Path:       loaderConfig.ModelPath,
		Blake3:     digest,
		Strategy:   result.Strategy,
		Attempts:   result.Attempts,
		Info:       info,
		Geometry:   geometry,
		OutputSize: outputSize,
	}, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(report))
	return nil
}

func runPull(cmd *cobra.Command, args []string) error {
	cfg := config.MustGetConfig()
	log, err := logger.InitLogger(cfg)
	if err != nil {
		return err
	}

	dest, err := cmd.Flags().GetString("dest")
	if err != nil {
		return err
	}
	if dest == "" {
		dest = cfg.ModelsDir
	}

	source, err := modelfetch.ParseSource(args[0])
	if err != nil {
		return err
	}

	path, err := modelfetch.NewFetcher(log).Pull(cmd.Context(), source, dest)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Model available at %s\n", path)
	if filepath.Clean(path) != filepath.Clean(pathutil.ResolvePath(cfg.ModelPath, cfg.ModelsDir)) {
		fmt.Fprintf(cmd.OutOrStdout(), "Set model_path to use it: CLASSIFY_MODEL_PATH=%s\n", path)
	}
	return nil
}

func runPush(cmd *cobra.Command, args []string) error {
	cfg := config.MustGetConfig()

	storage, err := filestorage.NewFileStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	url, err := modelfetch.Push(cmd.Context(), storage, modelPathArg(cfg, args))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Model uploaded: %s\n", url)
	return nil
}
