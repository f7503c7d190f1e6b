// Package failures classifies domain errors into typed web errors.
package failures

import (
	"errors"
	"strings"

	"github.com/prestigeprep/prep/internal/agent"
	"github.com/prestigeprep/prep/internal/content"
	"github.com/prestigeprep/prep/internal/practice"
	apperrors "github.com/prestigeprep/prep/internal/services/web/platform/errors"
	"github.com/prestigeprep/prep/internal/storage/docstore"
	"github.com/prestigeprep/prep/internal/storage/objectstore"
)

type rule struct {
	sentinel error
	kind     apperrors.Kind
}

var rules = []rule{
	{content.ErrInvalidInput, apperrors.KindInvalidInput},
	{practice.ErrInvalidInput, apperrors.KindInvalidInput},
	{objectstore.ErrInvalidKey, apperrors.KindInvalidInput},
	{content.ErrInvalidName, apperrors.KindInvalidInput},
	{content.ErrNotFound, apperrors.KindNotFound},
	{docstore.ErrNotFound, apperrors.KindNotFound},
	{objectstore.ErrNotFound, apperrors.KindNotFound},
	{agent.ErrNoSet, apperrors.KindInvalidInput},
	{agent.ErrInvalidBranch, apperrors.KindInvalidInput},
	{agent.ErrAlreadyRunning, apperrors.KindConflict},
	{agent.ErrBusy, apperrors.KindConflict},
	{agent.ErrNotRunning, apperrors.KindConflict},
}

// Classify returns err as a typed web error. Sentinel prefixes are removed
// from the message so clients see "gcsPath required" rather than the
// wrapped chain. Already typed and unknown errors pass through.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.KindOf(err) != apperrors.KindUnknown {
		return err
	}
	for _, r := range rules {
		if errors.Is(err, r.sentinel) {
			return apperrors.Error{Kind: r.kind, Message: message(err, r.sentinel), Err: err}
		}
	}
	return err
}

func message(err, sentinel error) string {
	msg := err.Error()
	if trimmed, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok && trimmed != "" {
		return trimmed
	}
	return msg
}
