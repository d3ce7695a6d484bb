package convert

import (
	"context"
	"fmt"
	"io"
	"io/fs"

	"go.uber.org/zap"

	"hdx/content"
	"hdx/docx"
	"hdx/state"
	"hdx/transform"
)

// Document loads source from r and converts it into document model. Name
// selects input format by its extension and anchors relative resources,
// which are taken from files when it is not nil. Settings come from
// environment configuration.
func Document(ctx context.Context, r io.Reader, name string, files fs.FS, log *zap.Logger) (*content.Content, *docx.Document, *transform.Result, error) {
	env := state.EnvFromContext(ctx)

	c, err := content.Prepare(ctx, r, name, files, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("unable to load source (%s): %w", name, err)
	}

	doc := docx.New(log)
	res, err := transform.Convert(ctx, c, doc, transform.NewSettings(&env.Cfg.Document), log)
	if err != nil {
		return c, nil, res, err
	}
	if len(res.Warnings) > 0 {
		log.Info("Conversion finished with warnings", zap.String("source", name), zap.Int("count", len(res.Warnings)))
	}
	return c, doc, res, nil
}
