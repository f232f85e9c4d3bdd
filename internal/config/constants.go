package config

import "time"

// Fixed gas limits per administrative call. Fees are a fixed schedule too;
// nothing here is derived from live network conditions.
const (
	GasLimitMint     = uint64(80_000)  // mint(address,uint256)
	GasLimitBurn     = uint64(60_000)  // burn(uint256)
	GasLimitTransfer = uint64(60_000)  // transfer(address,uint256)
	GasLimitRenounce = uint64(50_000)  // renounce()
	GasLimitFallback = uint64(200_000) // anything else
)

// Default fee schedule in gwei. Overridable through settings only.
const (
	DefaultMaxFeeGwei      = int64(50)
	DefaultPriorityFeeGwei = int64(2)
)

// Timeouts for external calls.
const (
	RPCDialTimeout = 15 * time.Second
	RPCCallTimeout = 30 * time.Second
	ForgeTimeout   = 10 * time.Minute // build + create can be slow on first run
	VerifyTimeout  = 5 * time.Minute
)

// DefaultSupply is the initial supply offered by the deploy wizard, in whole tokens.
const DefaultSupply = "1000000"
