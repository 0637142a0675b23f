package ledgerclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

func TestCapabilityProbe_CachesAfterFirstAnswer(t *testing.T) {
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) (uint64, error) {
		calls++
		return 2, nil
	}

	probe := &capabilityProbe{}
	version, err := probe.resolve(ctx, fetch)
	require.NoError(t, err)
	assert.Equal(t, CapabilityV2, version)

	// second resolve must not hit the ledger again
	version, err = probe.resolve(ctx, fetch)
	require.NoError(t, err)
	assert.Equal(t, CapabilityV2, version)
	assert.Equal(t, 1, calls)
}

func TestCapabilityProbe_RevertMeansV1(t *testing.T) {
	ctx := context.Background()

	probe := &capabilityProbe{}
	version, err := probe.resolve(ctx, func(ctx context.Context) (uint64, error) {
		return 0, errors.New("execution reverted")
	})
	require.NoError(t, err)
	assert.Equal(t, CapabilityV1, version)
}

func TestCapabilityProbe_TransientFailureNotCached(t *testing.T) {
	ctx := context.Background()

	calls := 0
	probe := &capabilityProbe{}

	_, err := probe.resolve(ctx, func(ctx context.Context) (uint64, error) {
		calls++
		return 0, types.NewBlockchainError(types.ReasonNetwork, "ledger call interfaceVersion failed", errors.New("connection refused"))
	})
	require.Error(t, err)

	// a later resolve retries instead of reusing a misclassified answer
	version, err := probe.resolve(ctx, func(ctx context.Context) (uint64, error) {
		calls++
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, CapabilityV1, version)
	assert.Equal(t, 2, calls)
}
