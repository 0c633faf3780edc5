package forest

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/cottonadvisor/internal/logging"
)

const (
	GeographicArtifact = "geographic_model.json"
	MetadataArtifact   = "metadata.json"
	SeasonArtifact     = "season_model.json"
)

// Artifacts lists every file a Bundle is built from.
var Artifacts = []string{GeographicArtifact, MetadataArtifact, SeasonArtifact}

// Bundle holds the loaded models. A nil model means its artifact was missing
// or unreadable and predictions relying on it are unavailable.
type Bundle struct {
	Geographic *Forest
	Season     *Forest
	Meta       *Metadata
}

// LoadBundle loads every artifact from src. Missing or broken artifacts are
// logged and left nil so the rest of the service keeps working.
func LoadBundle(ctx context.Context, src Source, log logging.Logger) *Bundle {
	b := &Bundle{Meta: DefaultMetadata()}

	b.Geographic = loadForest(ctx, src, GeographicArtifact, log)
	b.Season = loadForest(ctx, src, SeasonArtifact, log)

	rc, err := src.Open(ctx, MetadataArtifact)
	if err != nil {
		logOpenError(ctx, log, MetadataArtifact, err)
		return b
	}
	defer rc.Close()
	meta, err := DecodeMetadata(rc)
	if err != nil {
		log.Error(ctx, "model metadata is invalid", "artifact", MetadataArtifact, "error", err)
		return b
	}
	b.Meta = meta
	return b
}

func loadForest(ctx context.Context, src Source, name string, log logging.Logger) *Forest {
	rc, err := src.Open(ctx, name)
	if err != nil {
		logOpenError(ctx, log, name, err)
		return nil
	}
	defer rc.Close()

	f, err := Decode(rc)
	if err != nil {
		log.Error(ctx, "model artifact is invalid", "artifact", name, "error", err)
		return nil
	}
	log.Info(ctx, "model loaded", "artifact", name, "trees", len(f.Trees), "features", f.NumFeatures())
	return f
}

func logOpenError(ctx context.Context, log logging.Logger, name string, err error) {
	if errors.Is(err, ErrArtifactNotFound) {
		log.Warn(ctx, "model artifact missing", "artifact", name)
		return
	}
	log.Error(ctx, "model artifact unreadable", "artifact", name, "error", err)
}
