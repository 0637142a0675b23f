package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"
)

// Backend is the subset of the Ethereum RPC the signer needs. Satisfied by
// *ethclient.Client.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
}

// Signer holds the single shared privileged key. All privileged writes consume
// sequential nonces from this one key, so Submit serializes the whole
// estimate-sign-broadcast sequence; concurrent administrative requests queue
// up on the mutex instead of colliding on a nonce.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	backend Backend

	// FeeBufferPercent is added on top of every gas estimate.
	feeBufferPercent int64

	mu        sync.Mutex
	chainID   *big.Int
	nextNonce uint64
	nonceInit bool
}

func New(privateKeyHex string, feeBufferPercent int64, backend Backend) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse signer private key: %w", err)
	}

	return &Signer{
		key:              key,
		address:          crypto.PubkeyToAddress(key.PublicKey),
		backend:          backend,
		feeBufferPercent: feeBufferPercent,
	}, nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

// BufferGas applies the configured safety buffer to a gas estimate.
func (s *Signer) BufferGas(estimate uint64) uint64 {
	return estimate + estimate*uint64(s.feeBufferPercent)/100
}

// Submit estimates, signs and broadcasts a transaction to the given contract.
// The returned hash identifies the broadcast transaction; waiting for
// inclusion is the caller's concern. Once sent, the transaction cannot be
// withdrawn.
func (s *Signer) Submit(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chainID == nil {
		chainID, err := s.backend.ChainID(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to fetch chain id: %w", err)
		}
		s.chainID = chainID
	}

	if !s.nonceInit {
		nonce, err := s.backend.PendingNonceAt(ctx, s.address)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to fetch pending nonce: %w", err)
		}
		s.nextNonce = nonce
		s.nonceInit = true
	}

	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	gasLimit, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: s.address,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gasLimit = s.BufferGas(gasLimit)

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    s.nextNonce,
		To:       &to,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.backend.SendTransaction(ctx, signedTx); err != nil {
		// resync from the node on the next submission, the local counter may
		// have drifted from whatever the node accepted
		s.nonceInit = false
		return common.Hash{}, fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	s.nextNonce++
	log.Debug().
		Str("tx_hash", signedTx.Hash().Hex()).
		Uint64("nonce", signedTx.Nonce()).
		Uint64("gas_limit", gasLimit).
		Msg("broadcast privileged transaction")

	return signedTx.Hash(), nil
}
