package tracing

// BalanceChangeReason is a description of the reason why a balance was changed.
type BalanceChangeReason int

const (
	BalanceChangeUnspecified BalanceChangeReason = iota
	BalanceChangeTransfer
	BalanceChangeGenesis
	BalanceChangeSnapshotRestore
	BalanceChangeBatch
	BalanceChangeDeletion
	BalanceChangeDirect
)

// NonceChangeReason is a description of the reason why a nonce was changed.
type NonceChangeReason int

const (
	NonceChangeUnspecified NonceChangeReason = iota
	NonceChangeContractCreator
	NonceChangeBatch
	NonceChangeDirect
)

// String returns a human-readable string for the reason.
func (r BalanceChangeReason) String() string {
	switch r {
	case BalanceChangeUnspecified:
		return "unspecified"
	case BalanceChangeTransfer:
		return "transfer"
	case BalanceChangeGenesis:
		return "genesis"
	case BalanceChangeSnapshotRestore:
		return "snapshot_restore"
	case BalanceChangeBatch:
		return "batch"
	case BalanceChangeDeletion:
		return "deletion"
	case BalanceChangeDirect:
		return "direct"
	}
	return "unknown"
}

// String returns a human-readable string for the reason.
func (r NonceChangeReason) String() string {
	switch r {
	case NonceChangeUnspecified:
		return "unspecified"
	case NonceChangeContractCreator:
		return "contract_creator"
	case NonceChangeBatch:
		return "batch"
	case NonceChangeDirect:
		return "direct"
	}
	return "unknown"
}
