package extract

import (
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yjkwon/offerharvester/internal/market"
)

// The browser is cached for the process lifetime, so the launch deadline must
// not survive connecting: a browser whose context expires after launchTimeout
// fails every subsequent page creation.
func TestDetachLaunchDeadline(t *testing.T) {
	timed := rod.New().Timeout(40 * time.Millisecond)
	_, hasDeadline := timed.GetContext().Deadline()
	require.True(t, hasDeadline)

	cached := detachLaunchDeadline(timed)
	_, hasDeadline = cached.GetContext().Deadline()
	assert.False(t, hasDeadline)

	time.Sleep(60 * time.Millisecond)
	assert.NoError(t, cached.GetContext().Err())
}

func TestInjectMarketUnparseableURLFailsLoudly(t *testing.T) {
	profile := market.Profile{
		MarketID:       "JP",
		CurrencyTarget: "JPY",
		Cookies:        map[string]string{"currency": "JPY"},
	}
	mctx := market.NewContext(profile, true)

	r := NewRodRenderer(time.Second, time.Second, true)
	err := r.injectMarket(nil, "http://%zz invalid", mctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cookie injection failed")
}
