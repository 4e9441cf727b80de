package confirm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const erc20TransferABI = `[{"name":"transfer","type":"function","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}]`

const fallbackGasLimit = 100000

// ERC20Submitter broadcasts a direct token transfer signed with a local
// key. It is the self-custodied submission strategy; FetchSubmitter is
// the facilitator-settled alternative.
type ERC20Submitter struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
	token   common.Address
	abi     abi.ABI
}

// NewERC20Submitter dials the RPC endpoint and prepares a submitter for
// the given token contract. privateKeyHex is the sender key without the
// 0x prefix.
func NewERC20Submitter(ctx context.Context, rpcURL, privateKeyHex, tokenAddress string) (*ERC20Submitter, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc endpoint: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("parse transfer abi: %w", err)
	}
	return &ERC20Submitter{
		client:  client,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		token:   common.HexToAddress(tokenAddress),
		abi:     parsed,
	}, nil
}

// Submit signs and broadcasts transfer(payTo, amount) on the token
// contract and returns the transaction hash.
func (s *ERC20Submitter) Submit(ctx context.Context, req Request) (TxRef, error) {
	to := common.HexToAddress(req.PayTo)
	data, err := s.abi.Pack("transfer", to, req.Amount)
	if err != nil {
		return TxRef{}, fmt.Errorf("pack transfer call: %w", err)
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return TxRef{}, fmt.Errorf("read pending nonce: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return TxRef{}, fmt.Errorf("suggest gas price: %w", err)
	}
	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &s.token,
		Data: data,
	})
	if err != nil {
		gasLimit = fallbackGasLimit
	}

	tx := types.NewTransaction(nonce, s.token, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return TxRef{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return TxRef{}, err
	}
	return TxRef{Hash: signed.Hash().Hex()}, nil
}

// Close releases the RPC connection.
func (s *ERC20Submitter) Close() {
	s.client.Close()
}

// EthWatcher observes transaction receipts over an RPC client.
type EthWatcher struct {
	client       *ethclient.Client
	pollInterval time.Duration
}

// NewEthWatcher dials the RPC endpoint and polls at the given interval,
// defaulting to two seconds.
func NewEthWatcher(ctx context.Context, rpcURL string, pollInterval time.Duration) (*EthWatcher, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc endpoint: %w", err)
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &EthWatcher{client: client, pollInterval: pollInterval}, nil
}

// Wait polls for a receipt until one appears or ctx expires. A missing
// receipt is not an error while polling; transient lookup failures are
// also retried until the deadline.
func (w *EthWatcher) Wait(ctx context.Context, ref TxRef) (Outcome, error) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		outcome, err := w.Check(ctx, ref)
		if err == nil {
			return outcome, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Check performs a single receipt lookup. A transaction without a
// receipt yet is reported as an error so the caller can distinguish
// "unknown" from a settled outcome.
func (w *EthWatcher) Check(ctx context.Context, ref TxRef) (Outcome, error) {
	receipt, err := w.client.TransactionReceipt(ctx, common.HexToHash(ref.Hash))
	if err != nil {
		return 0, fmt.Errorf("transaction receipt: %w", err)
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return OutcomeConfirmed, nil
	}
	return OutcomeReverted, nil
}

// Close releases the RPC connection.
func (w *EthWatcher) Close() {
	w.client.Close()
}
