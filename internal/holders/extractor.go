package holders

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ExtractRecipients returns the unique recipients of transfer logs, read from the
// low 20 bytes of topic topicIndex. Logs with too few topics are skipped and the
// zero address is dropped when skipZero is set. The result is sorted by address
// bytes so it does not depend on the order of logs.
func ExtractRecipients(logs []types.Log, topicIndex int, skipZero bool) []common.Address {
	if topicIndex < 0 {
		return nil
	}

	seen := make(map[common.Address]struct{})
	for _, l := range logs {
		if len(l.Topics) <= topicIndex {
			continue
		}

		recipient := common.BytesToAddress(l.Topics[topicIndex].Bytes())
		if skipZero && recipient == (common.Address{}) {
			continue
		}
		seen[recipient] = struct{}{}
	}

	recipients := make([]common.Address, 0, len(seen))
	for addr := range seen {
		recipients = append(recipients, addr)
	}
	sort.Slice(recipients, func(i, j int) bool {
		return bytes.Compare(recipients[i][:], recipients[j][:]) < 0
	})

	return recipients
}
