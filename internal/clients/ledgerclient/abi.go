package ledgerclient

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ledgerABIJSON is the external surface of the referral ledger contract
// consumed by this layer. Business rules behind these entry points live in the
// contract and are out of scope here.
const ledgerABIJSON = `[
{"type":"function","name":"getUserInfo","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"userId","type":"uint256"},{"name":"sponsorId","type":"uint256"},{"name":"isActive","type":"bool"},{"name":"activatedAt","type":"uint256"},{"name":"directReferrals","type":"uint256"},{"name":"totalEarned","type":"uint256"},{"name":"totalWithdrawn","type":"uint256"},{"name":"achieverLevel","type":"uint8"},{"name":"name","type":"string"},{"name":"contact","type":"string"}]},
{"type":"function","name":"addressById","stateMutability":"view","inputs":[{"name":"userId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"getDirectReferrals","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
{"type":"function","name":"getLevelIncome","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"level","type":"uint256"}],"outputs":[{"name":"earned","type":"uint256"},{"name":"withdrawn","type":"uint256"}]},
{"type":"function","name":"getAllLevelIncome","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"earned","type":"uint256[10]"},{"name":"withdrawn","type":"uint256[10]"}]},
{"type":"function","name":"interfaceVersion","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getEligibleUsers","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
{"type":"function","name":"isEligible","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"getDistributionCursor","stateMutability":"view","inputs":[],"outputs":[{"name":"lastIndex","type":"uint256"},{"name":"totalEligible","type":"uint256"},{"name":"batchSize","type":"uint256"},{"name":"isComplete","type":"bool"}]},
{"type":"function","name":"getPoolStats","stateMutability":"view","inputs":[],"outputs":[{"name":"balance","type":"uint256"},{"name":"totalDistributed","type":"uint256"},{"name":"eligibleCount","type":"uint256"}]},
{"type":"function","name":"getAdminSummary","stateMutability":"view","inputs":[],"outputs":[{"name":"totalAccounts","type":"uint256"},{"name":"activeAccounts","type":"uint256"},{"name":"eligibleCount","type":"uint256"},{"name":"poolBalance","type":"uint256"},{"name":"paused","type":"bool"},{"name":"owner","type":"address"}]},
{"type":"function","name":"paused","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"register","stateMutability":"nonpayable","inputs":[{"name":"sponsorId","type":"uint256"},{"name":"name","type":"string"},{"name":"contact","type":"string"}],"outputs":[]},
{"type":"function","name":"activate","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"function","name":"updateProfile","stateMutability":"nonpayable","inputs":[{"name":"name","type":"string"},{"name":"contact","type":"string"}],"outputs":[]},
{"type":"function","name":"withdrawAll","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"function","name":"withdrawLevel","stateMutability":"nonpayable","inputs":[{"name":"level","type":"uint256"}],"outputs":[]},
{"type":"function","name":"withdrawNonWorking","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"function","name":"claimPoolShare","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"function","name":"pause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"function","name":"unpause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"function","name":"distributePool","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"function","name":"distributePoolBatch","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"function","name":"addEligible","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"}],"outputs":[]},
{"type":"function","name":"removeEligible","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"}],"outputs":[]},
{"type":"function","name":"updateDistributionPercentages","stateMutability":"nonpayable","inputs":[{"name":"percentages","type":"uint256[]"}],"outputs":[]},
{"type":"function","name":"updateReserveWallet","stateMutability":"nonpayable","inputs":[{"name":"wallet","type":"address"}],"outputs":[]},
{"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]},
{"type":"function","name":"markAchieverReward","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"},{"name":"level","type":"uint256"}],"outputs":[]},
{"type":"event","name":"Registration","inputs":[{"name":"userId","type":"uint256","indexed":true},{"name":"sponsorId","type":"uint256","indexed":true}],"anonymous":false},
{"type":"event","name":"Activation","inputs":[{"name":"userId","type":"uint256","indexed":true}],"anonymous":false},
{"type":"event","name":"LevelIncomePaid","inputs":[{"name":"fromId","type":"uint256","indexed":true},{"name":"toId","type":"uint256","indexed":true},{"name":"level","type":"uint256","indexed":false},{"name":"amount","type":"uint256","indexed":false}],"anonymous":false},
{"type":"event","name":"PoolDistributed","inputs":[{"name":"accounts","type":"uint256","indexed":false},{"name":"amount","type":"uint256","indexed":false}],"anonymous":false},
{"type":"event","name":"EligibleAdded","inputs":[{"name":"account","type":"address","indexed":true}],"anonymous":false},
{"type":"event","name":"EligibleRemoved","inputs":[{"name":"account","type":"address","indexed":true}],"anonymous":false}
]`

var ledgerABI = mustParseABI(ledgerABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// LedgerABI exposes the parsed contract ABI for event decoding in the sync
// bridge.
func LedgerABI() abi.ABI {
	return ledgerABI
}
