package gmx

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/gmx-exporter/internal/domain"
)

// Result is the outcome of aggregating one account
type Result struct {
	Account common.Address
	Record  *domain.AccountRecord
	Err     error
}

// ResultTable collects account results in arrival order and exposes rows in
// candidate order. Each account appears at most once. It is not safe for
// concurrent writes.
type ResultTable struct {
	order      []common.Address
	duplicates int
	rows       map[common.Address]*domain.AccountRecord
	results    []Result
}

// NewResultTable creates an empty table for the given candidates. Repeated
// candidates keep their first position.
func NewResultTable(accounts []common.Address) *ResultTable {
	seen := make(map[common.Address]struct{}, len(accounts))
	order := make([]common.Address, 0, len(accounts))
	for _, a := range accounts {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		order = append(order, a)
	}

	return &ResultTable{
		order:      order,
		duplicates: len(accounts) - len(order),
		rows:       make(map[common.Address]*domain.AccountRecord, len(order)),
	}
}

// Accounts returns the unique candidates in order
func (t *ResultTable) Accounts() []common.Address {
	return t.order
}

// Duplicates returns how many repeated candidates were dropped
func (t *ResultTable) Duplicates() int {
	return t.duplicates
}

// Add records a result; only successes become rows
func (t *ResultTable) Add(r Result) {
	t.results = append(t.results, r)
	if r.Err == nil && r.Record != nil {
		t.rows[r.Account] = r.Record
	}
}

// Rows returns the successful records in candidate order
func (t *ResultTable) Rows() []*domain.AccountRecord {
	rows := make([]*domain.AccountRecord, 0, len(t.rows))
	for _, account := range t.order {
		if r, ok := t.rows[account]; ok {
			rows = append(rows, r)
		}
	}
	return rows
}

// Results returns every collected result in arrival order
func (t *ResultTable) Results() []Result {
	return t.results
}

// Failures returns the failed results in arrival order
func (t *ResultTable) Failures() []Result {
	var failures []Result
	for _, r := range t.results {
		if r.Err != nil {
			failures = append(failures, r)
		}
	}
	return failures
}

// Len returns the number of rows
func (t *ResultTable) Len() int {
	return len(t.rows)
}

// Pending returns how many candidates never produced a result, e.g. after cancellation
func (t *ResultTable) Pending() int {
	return len(t.order) - len(t.results)
}
