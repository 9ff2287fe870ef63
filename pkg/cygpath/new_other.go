//go:build !windows

package cygpath

import (
	"github.com/saworbit/cygbridge/internal/metrics"
	"github.com/saworbit/cygbridge/pkg/config"
)

// New returns an inactive translator: the Cygwin runtime only exists on Windows.
func New(_ *config.TranslatorConfig) Translator {
	metrics.SetLibraryLoaded("", false)
	return stubTranslator{}
}
