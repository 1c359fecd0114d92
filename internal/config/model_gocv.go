//go:build gocv

package config

import (
	"SiteGuard/pkg/detector"
	"SiteGuard/pkg/yolo"
	"fmt"

	"github.com/sirupsen/logrus"
)

func newLocalModel(log *logrus.Logger, classes detector.ClassTable) (detector.Model, func() error, error) {
	cfg := yolo.DefaultConfig(classes.Len())
	model, err := yolo.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load ONNX model: %w", err)
	}

	log.WithFields(logrus.Fields{
		"model_path": cfg.ModelPath,
		"classes":    classes.Len(),
	}).Info("Loaded local ONNX detector")

	return model, model.Close, nil
}
