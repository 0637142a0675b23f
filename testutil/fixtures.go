package testutil

import (
	"math/big"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/ethereum/go-ethereum/common"

	"github.com/levelfi-io/referral-orchestrator/internal/clients/ledgerclient"
)

// RandomAddress returns a random EVM address.
func RandomAddress() common.Address {
	var addr common.Address
	for i := range addr {
		addr[i] = byte(gofakeit.Number(0, 255))
	}
	return addr
}

// RandomAccount returns a registered, active account with plausible values.
func RandomAccount() *ledgerclient.Account {
	return &ledgerclient.Account{
		Address:         RandomAddress(),
		UserID:          uint64(gofakeit.Number(1, 1_000_000)),
		SponsorID:       uint64(gofakeit.Number(1, 1_000_000)),
		IsActive:        true,
		ActivatedAt:     gofakeit.DateRange(time.Now().AddDate(-2, 0, 0), time.Now()),
		DirectReferrals: uint64(gofakeit.Number(0, 50)),
		TotalEarned:     RandomAmount(),
		TotalWithdrawn:  big.NewInt(0),
		Name:            gofakeit.Username(),
		Contact:         gofakeit.Email(),
	}
}

// RandomAmount returns a token amount between 1 and 10_000 whole tokens,
// scaled to 18 decimals.
func RandomAmount() *big.Int {
	whole := big.NewInt(int64(gofakeit.Number(1, 10_000)))
	return new(big.Int).Mul(whole, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// RandomTxHash returns a random transaction hash.
func RandomTxHash() common.Hash {
	var h common.Hash
	for i := range h {
		h[i] = byte(gofakeit.Number(0, 255))
	}
	return h
}
