package protocol

const (
	// Chain parameters
	HiveChainID    = "beeab0de00000000000000000000000000000000000000000000000000000000"
	KeyPrefix      = "STM" // Public key string prefix
	WIFVersion     = 0x80  // Private key WIF version byte
	BIP44Purpose   = 44
	BIP44CoinType  = 3054 // SLIP-44 HIVE
	BIP44Change    = 0
	HardenedOffset = 0x80000000

	// Credential storage prefixes
	PrefixUser = "user:" // user:Username = base64(JSON credential record)

	// Query cache key prefixes
	PrefixCacheAccount = "account:" // account:Username = authority record
)
