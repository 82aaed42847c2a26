package envelope

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/juev/envelope/internal/ast"
	"github.com/juev/envelope/internal/include"
)

// LoadJournal reads the journal at path, or content when it is not empty,
// together with its includes and merges them into one journal. Only an
// unreadable primary file fails; every other load error is logged and
// returned so the report can still be built.
func LoadJournal(loader *include.Loader, path, content string, logger *zap.Logger) (*ast.Journal, []include.LoadError, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		resolved *include.ResolvedJournal
		errs     []include.LoadError
	)
	if content != "" {
		resolved, errs = loader.LoadFromContent(path, content)
	} else {
		resolved, errs = loader.Load(path)
	}
	if resolved == nil {
		if len(errs) > 0 {
			return nil, errs, fmt.Errorf("load journal: %w", errs[0])
		}
		return nil, nil, fmt.Errorf("load journal %s", path)
	}

	for _, e := range errs {
		logger.Warn("journal load error",
			zap.String("path", e.Path),
			zap.Int("line", e.Range.Start.Line),
			zap.String("error", e.Message),
		)
	}

	return resolved.Merged(), errs, nil
}
