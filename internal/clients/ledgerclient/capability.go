package ledgerclient

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

// CapabilityVersion distinguishes ledger deployments. V1 lacks the batched
// getAllLevelIncome accessor and interfaceVersion itself.
type CapabilityVersion int

const (
	CapabilityUnknown CapabilityVersion = 0
	CapabilityV1      CapabilityVersion = 1
	CapabilityV2      CapabilityVersion = 2
)

// capabilityProbe resolves the ledger interface version exactly once and
// caches the answer. A revert means the accessor does not exist (old
// deployment); a transient network failure is returned to the caller and the
// probe stays unresolved, so a flaky node is never misread as an old version.
type capabilityProbe struct {
	mu       sync.Mutex
	resolved bool
	version  CapabilityVersion
}

func (p *capabilityProbe) resolve(ctx context.Context, fetch func(ctx context.Context) (uint64, error)) (CapabilityVersion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolved {
		return p.version, nil
	}

	version, err := fetch(ctx)
	if err != nil {
		if isMissingAccessor(err) {
			p.resolved = true
			p.version = CapabilityV1
			log.Debug().Msg("ledger has no interfaceVersion accessor, treating as v1")
			return p.version, nil
		}
		return CapabilityUnknown, err
	}

	p.resolved = true
	if version >= 2 {
		p.version = CapabilityV2
	} else {
		p.version = CapabilityV1
	}
	log.Debug().Uint64("version", version).Msg("resolved ledger interface version")
	return p.version, nil
}

// isMissingAccessor reports whether the failure indicates the accessor is
// absent from the deployed contract rather than a transient fault.
func isMissingAccessor(err error) bool {
	if types.ReasonOf(err) == types.ReasonNetwork {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "execution reverted") ||
		strings.Contains(msg, "abi: attempting to unmarshall an empty string") ||
		strings.Contains(msg, "no contract code") ||
		strings.Contains(msg, "method not found")
}
