package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Recorders must be callable before Init: components start recording as soon
// as they are constructed, independent of when the scrape server comes up.
func TestRecordersUsableWithoutInit(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordLedgerClientLatency(time.Millisecond, "GetAccount", false)
		RecordTokenClientLatency(time.Millisecond, "allowance", true)
		RecordDbLatency(time.Millisecond, "SaveView", false)
		RecordEventProcessingDuration(time.Millisecond, "Activation", false)
		RecordTxConfirmLatency(time.Second, "pause", false)
		IncInFlightActions()
		DecInFlightActions()
		RecordQueuePublishError()
		RecordViewInvalidation("account")
		RecordEligibleAccountsCount(3)
		RecordDistributionCursorIndex(10)
		StartAdminRequestTimer("GET", "/health")(200)
	})
}
