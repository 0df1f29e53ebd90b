package config

import "time"

// Gas limits used as EstimateGas fallbacks when the node cannot simulate the tx.
const (
	GasLimitETHTransfer  = uint64(21_000)  // plain value transfer to an EOA
	GasLimitContractCall = uint64(200_000) // value transfer to, or call on, a contract
)

// Timeouts.
const (
	RPCSelectTimeout   = 10 * time.Second // RPC benchmark before first use
	RPCCallTimeout     = 20 * time.Second // single read call from a UI action
	TxConfirmTimeout   = 3 * time.Minute  // default wait for a receipt
	ReceiptPollDefault = 2 * time.Second  // receipt polling interval
	ChainWatchInterval = 5 * time.Second  // eth_chainId polling in the console
)
