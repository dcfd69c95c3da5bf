package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/mapo80/signature-detection/annotate"
	"github.com/mapo80/signature-detection/benchmark"
	"github.com/mapo80/signature-detection/config"
	"github.com/mapo80/signature-detection/controller"
	"github.com/mapo80/signature-detection/decode"
	"github.com/mapo80/signature-detection/detector"
	"github.com/mapo80/signature-detection/inference"
	"github.com/mapo80/signature-detection/inference/providers"
	"github.com/mapo80/signature-detection/logging"
	"github.com/mapo80/signature-detection/profiler"
)

// setup loads the configuration, applies command line overrides and builds
// the logger.
func setup(c *cli.Context) (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return cfg, nil, err
	}

	if v := c.String(flagLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := c.String(flagLogFormat); v != "" {
		cfg.Log.Format = v
	}
	if v := c.String(flagDataset); v != "" {
		cfg.DatasetDir = v
	}
	if v := c.String(flagOutput); v != "" {
		cfg.OutputDir = v
	}
	if v := c.String(flagExtension); v != "" {
		cfg.Extension = v
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	cfg.Log.Output = c.App.ErrWriter
	log, err := logging.New(cfg.Log)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

func newEngine(m config.ModelConfig) (inference.Engine, error) {
	engine, err := inference.NewEngineBuilder().
		WithBackend(m.Backend).
		WithProvider(m.Provider).
		WithModel(m.Args()).
		Build()
	if err != nil {
		return nil, errors.Wrapf(err, "load %s model %s", m.Name, m.Path)
	}
	return engine, nil
}

// buildDetector loads the configured model, or both ensemble members. The
// returned function releases the engines and the onnxruntime environment.
func buildDetector(cfg config.Config, log logrus.FieldLogger) (detector.Detector, func(), error) {
	var adapters []*detector.Adapter
	release := func() {
		for _, a := range adapters {
			if err := a.Close(); err != nil {
				log.WithError(err).Warn("closing engine")
			}
		}
		if err := providers.DestroyEnvironment(); err != nil {
			log.WithError(err).Warn("destroying onnxruntime environment")
		}
	}

	modelCfgs := []config.ModelConfig{cfg.Model}
	if cfg.Ensemble.Enabled {
		modelCfgs = append(modelCfgs, cfg.Ensemble.Secondary)
	}

	for _, m := range modelCfgs {
		engine, err := newEngine(m)
		if err != nil {
			release()
			return nil, nil, err
		}
		adapters = append(adapters, detector.New(engine,
			detector.WithLogger(log.WithField("model", m.Name)),
		))
		log.WithFields(logrus.Fields{
			"model":   m.Name,
			"path":    m.Path,
			"backend": m.Backend,
		}).Info("model loaded")
	}

	if !cfg.Ensemble.Enabled {
		return adapters[0], release, nil
	}

	ensemble, err := detector.NewEnsemble(cfg.Ensemble.DetectorConfig(), adapters[0], adapters[1])
	if err != nil {
		release()
		return nil, nil, err
	}
	return ensemble, release, nil
}

func runAction(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	style, err := cfg.Annotate.Style()
	if err != nil {
		return cli.Exit(err, 1)
	}

	det, release, err := buildDetector(cfg, log)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer release()

	prof := profiler.New()
	ctrl, err := controller.New(controller.Config{
		DatasetDir:    cfg.DatasetDir,
		OutputDir:     cfg.OutputDir,
		Extension:     cfg.NormalizedExtension(),
		DetectTimeout: cfg.DetectTimeout,
	}, det, annotate.New(style),
		controller.WithLogger(log),
		controller.WithProfiler(prof),
	)
	if err != nil {
		return cli.Exit(err, 1)
	}

	report, err := ctrl.Run(c.Context)
	if err != nil {
		return cli.Exit(err, 1)
	}
	prof.LogReport(log)

	if report.Empty() {
		return cli.Exit("no images found in "+cfg.DatasetDir, 1)
	}

	log.WithFields(logrus.Fields{
		"run_id":    report.RunID,
		"processed": report.Processed,
		"written":   report.Succeeded(),
		"failed":    len(report.Failures),
		"output":    cfg.OutputDir,
	}).Info("annotated images saved")
	return nil
}

func evaluateAction(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	det, release, err := buildDetector(cfg, log)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer release()

	evaluator := benchmark.NewEvaluator(det,
		benchmark.WithIoUThreshold(float32(c.Float64(flagIoU))),
		benchmark.WithMaxImages(c.Int(flagMaxImages)),
		benchmark.WithExtension(cfg.NormalizedExtension()),
		benchmark.WithLogger(log),
	)

	result, err := evaluator.Run(c.Context, cfg.DatasetDir)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if result.Images == 0 {
		return cli.Exit("no images evaluated in "+cfg.DatasetDir, 1)
	}

	if c.Bool(flagJSON) {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return nil
}

func decodeAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("decode needs exactly one file or directory", 1)
	}
	target := c.Args().First()

	cfg := logging.Config{
		Level:  c.String(flagLogLevel),
		Format: c.String(flagLogFormat),
		Output: c.App.ErrWriter,
	}
	log, err := logging.New(cfg)
	if err != nil {
		return cli.Exit(err, 1)
	}

	opts := decode.Options{
		OutputDir:      c.String(flagOutputDir),
		Recursive:      c.Bool(flagRecursive),
		RemoveOriginal: c.Bool(flagRemoveOriginal),
		Log:            log,
	}

	info, err := os.Stat(target)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if !info.IsDir() {
		if _, err := decode.File(target, opts); err != nil {
			return cli.Exit(err, 1)
		}
		return nil
	}

	summary, err := decode.Dir(target, opts)
	if err != nil {
		return cli.Exit(err, 1)
	}
	log.WithFields(logrus.Fields{
		"decoded": summary.Decoded,
		"failed":  summary.Failed,
	}).Info("decode finished")
	if summary.Failed > 0 {
		return cli.Exit(errors.Errorf("%d files could not be decoded", summary.Failed), 1)
	}
	return nil
}
