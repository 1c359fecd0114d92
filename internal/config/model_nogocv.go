//go:build !gocv

package config

import (
	"SiteGuard/pkg/detector"
	"fmt"

	"github.com/sirupsen/logrus"
)

// newLocalModel is only available in binaries built with -tags gocv.
func newLocalModel(_ *logrus.Logger, _ detector.ClassTable) (detector.Model, func() error, error) {
	return nil, nil, fmt.Errorf("detector backend %q requires a build with -tags gocv", BackendONNX)
}
