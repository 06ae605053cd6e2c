package domain

const (
	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// ERC20 Transfer(address indexed from, address indexed to, uint256 value)
	TRANSFER_EVENT_SIGNATURE = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

	// Topic position of the indexed `to` argument of an ERC20 Transfer
	TRANSFER_RECIPIENT_TOPIC_INDEX = 2

	// Token amounts are 18-decimal fixed point
	TOKEN_DECIMALS = 18

	// Multicall3 is deployed at the same address on every supported network
	MULTICALL3_ADDRESS = "0xcA11bde05977b3631167028862bE2a173976CA11"
)
