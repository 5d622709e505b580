package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurum/internal/access"
	"aurum/internal/platform/flags"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/testutil"
)

type stubOracle struct {
	healthy bool
	ratio   uint64
	err     error
}

func (o *stubOracle) IsHealthy(context.Context) (bool, uint64, error) {
	return o.healthy, o.ratio, o.err
}

var (
	pauser = testutil.Address(0x05)
	holder = testutil.Address(0x10)
	t0     = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
)

func newGuard(oracle Oracle) *Guard {
	auth := access.NewAuthorizer(map[access.Capability][]id.Address{access.Pauser: {pauser}})
	return New(flags.NewInMemoryStore(), oracle, auth)
}

func TestGuard_Check(t *testing.T) {
	t.Run("open when healthy and not paused", func(t *testing.T) {
		g := newGuard(&stubOracle{healthy: true, ratio: 10100})
		require.NoError(t, g.Check(context.Background()))
	})

	t.Run("unhealthy oracle blocks", func(t *testing.T) {
		g := newGuard(&stubOracle{ratio: 9900})
		err := g.Check(context.Background())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCoverageBreached))
		assert.NoError(t, g.CheckPaused(context.Background()))
	})

	t.Run("pause wins over a healthy oracle", func(t *testing.T) {
		g := newGuard(&stubOracle{healthy: true, ratio: 10100})
		require.NoError(t, g.Pause(testutil.Ctx(pauser, t0), "audit window"))

		err := g.Check(context.Background())
		assert.True(t, dErrors.HasCode(err, dErrors.CodePaused))

		st, err := g.Status(context.Background())
		require.NoError(t, err)
		assert.True(t, st.Paused)
		assert.True(t, st.Healthy)
		assert.False(t, st.Open)
		assert.Equal(t, "audit window", st.PauseReason)

		require.NoError(t, g.Unpause(testutil.Ctx(pauser, t0)))
		require.NoError(t, g.Check(context.Background()))
	})

	t.Run("oracle failure is internal", func(t *testing.T) {
		g := newGuard(&stubOracle{err: errors.New("db down")})
		err := g.Check(context.Background())
		assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(err))
	})
}

func TestGuard_PauseAuthorization(t *testing.T) {
	g := newGuard(&stubOracle{healthy: true})

	err := g.Pause(testutil.Ctx(holder, t0), "because")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	err = g.Pause(testutil.Ctx(pauser, t0), "  ")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	err = g.Unpause(testutil.Ctx(pauser, t0))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}
