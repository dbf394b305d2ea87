package compare

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-compare/internal/model"
	"github.com/sells-group/bid-compare/internal/normalize"
)

// Analyze runs normalize → compare → aggregate over raw extracted records in
// one blocking pass. It has no side effects beyond logging; identical input
// yields an identical Analysis.
func Analyze(raw []model.RawRecord, opts normalize.Options) (*model.Analysis, error) {
	set, report, err := normalize.Normalize(raw, opts)
	if err != nil {
		return nil, eris.Wrap(err, "analyze: normalize")
	}

	plans, excluded := Compare(set.Records)
	overall := Aggregate(plans)

	a := &model.Analysis{
		Normalize: *report,
		Plans:     plans,
		Excluded:  excluded,
		Overall:   overall,
	}

	zap.L().Info("analyze: complete",
		zap.Int("records", set.Len()),
		zap.Int("eligible", len(plans)),
		zap.Int("excluded", len(excluded)),
		zap.Strings("winners", overall.Winners),
		zap.Bool("tie", overall.Tie),
		zap.Float64("total_savings", overall.TotalSavings),
	)
	return a, nil
}
