package capeval_test

import (
	"testing"

	"github.com/alejandrodnm/martin/internal/capeval"
	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tick(ts int64, price float64) domain.PriceTick {
	return domain.PriceTick{TS: ts, Price: decimal.NewFromFloat(price)}
}

func TestEvaluate_Pass(t *testing.T) {
	ticks := []domain.PriceTick{
		tick(1000421, 0.50),
		tick(1000431, 0.54),
		tick(1000441, 0.52),
	}
	res := capeval.Evaluate(ticks, capeval.Params{
		ConfirmTS: 1000420, EndTS: 1003600,
		PriceCap: decimal.NewFromFloat(0.55), CapMinTicks: 3, Now: 1000441,
	})
	require.Equal(t, domain.CapStatusPass, res.Status)
	assert.Equal(t, 3, res.ConsecutiveTicks)
	require.NotNil(t, res.FirstPassTS)
	assert.Equal(t, int64(1000441), *res.FirstPassTS)
}

func TestEvaluate_PreConfirmTicksIgnored(t *testing.T) {
	// S3 from spec: pre-confirm dips never help pass, post-confirm never
	// reaches cap_min_ticks.
	ticks := []domain.PriceTick{
		tick(1000400, 0.40),
		tick(1000410, 0.42),
		tick(1000425, 0.60),
		tick(1000500, 0.58),
	}
	res := capeval.Evaluate(ticks, capeval.Params{
		ConfirmTS: 1000420, EndTS: 1003600,
		PriceCap: decimal.NewFromFloat(0.55), CapMinTicks: 3, Now: 1003600,
	})
	assert.Equal(t, domain.CapStatusFail, res.Status)
	assert.Equal(t, 0, res.ConsecutiveTicks)
}

func TestEvaluate_GapResetsRun(t *testing.T) {
	ticks := []domain.PriceTick{
		tick(100, 0.50),
		tick(101, 0.50),
		tick(102, 0.60), // gap
		tick(103, 0.50),
		tick(104, 0.50),
	}
	res := capeval.Evaluate(ticks, capeval.Params{
		ConfirmTS: 100, EndTS: 200,
		PriceCap: decimal.NewFromFloat(0.55), CapMinTicks: 3, Now: 104,
	})
	assert.Equal(t, domain.CapStatusPending, res.Status)
	assert.Equal(t, 2, res.ConsecutiveTicks)
}

func TestEvaluate_TieCountsAsPass(t *testing.T) {
	ticks := []domain.PriceTick{
		tick(1, 0.55),
		tick(2, 0.55),
		tick(3, 0.55),
	}
	res := capeval.Evaluate(ticks, capeval.Params{
		ConfirmTS: 0, EndTS: 10,
		PriceCap: decimal.NewFromFloat(0.55), CapMinTicks: 3, Now: 3,
	})
	assert.Equal(t, domain.CapStatusPass, res.Status)
}

func TestEvaluate_Late(t *testing.T) {
	res := capeval.Evaluate(nil, capeval.Params{
		ConfirmTS: 1003620, EndTS: 1003600,
		PriceCap: decimal.NewFromFloat(0.55), CapMinTicks: 3, Now: 1003620,
	})
	assert.Equal(t, domain.CapStatusLate, res.Status)
}

func TestEvaluate_NoPassByEndIsFail(t *testing.T) {
	ticks := []domain.PriceTick{tick(100, 0.60)}
	res := capeval.Evaluate(ticks, capeval.Params{
		ConfirmTS: 90, EndTS: 100,
		PriceCap: decimal.NewFromFloat(0.55), CapMinTicks: 1, Now: 100,
	})
	assert.Equal(t, domain.CapStatusFail, res.Status)
}

func TestEvaluate_UnorderedTicksAreSorted(t *testing.T) {
	ticks := []domain.PriceTick{
		tick(103, 0.50),
		tick(101, 0.50),
		tick(102, 0.50),
	}
	res := capeval.Evaluate(ticks, capeval.Params{
		ConfirmTS: 100, EndTS: 200,
		PriceCap: decimal.NewFromFloat(0.55), CapMinTicks: 3, Now: 103,
	})
	require.Equal(t, domain.CapStatusPass, res.Status)
	assert.Equal(t, int64(103), *res.FirstPassTS)
}
