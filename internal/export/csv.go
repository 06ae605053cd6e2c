package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/gmx-exporter/internal/domain"
)

const accountColumn = "account"

// AccountColumns is the header of the accounts file; amounts follow AccountRecord.Amounts
var AccountColumns = []string{
	accountColumn,
	"GMX in wallet",
	"GMX staked",
	"esGMX in wallet",
	"esGMX staked",
	"GLP in wallet",
	"GLP staked",
	"MP in wallet",
	"MP staked",
	"esGMX earned from GMX/esGMX/MPs",
	"GMX needed to vest",
	"esGMX earned from GLP",
	"GLP needed to vest",
}

// WriteAccounts writes the header and one row per record with amounts in token units
func WriteAccounts(w io.Writer, records []*domain.AccountRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AccountColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(AccountColumns))
	for _, r := range records {
		row[0] = r.Account.Hex()
		for i, amount := range r.Amounts() {
			row[i+1] = domain.ScaleAmount(amount).String()
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row of %s: %w", r.Account.Hex(), err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteAddresses writes a single-column address list
func WriteAddresses(w io.Writer, addresses []common.Address) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{accountColumn}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, a := range addresses {
		if err := cw.Write([]string{a.Hex()}); err != nil {
			return fmt.Errorf("failed to write address %s: %w", a.Hex(), err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadAddresses reads an address list written by WriteAddresses or the account
// column of an accounts file
func ReadAddresses(r io.Reader) ([]common.Address, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	col := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), accountColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("missing %q column", accountColumn)
	}

	var addresses []common.Address
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		if col >= len(record) {
			return nil, fmt.Errorf("line %d: missing %q column", line, accountColumn)
		}

		value := strings.TrimSpace(record[col])
		if !common.IsHexAddress(value) {
			return nil, fmt.Errorf("line %d: invalid address %q", line, value)
		}
		addresses = append(addresses, common.HexToAddress(value))
	}

	return addresses, nil
}

// Window returns addresses[start:end]; end <= 0 or past the list selects through the end
func Window(addresses []common.Address, start, end int) ([]common.Address, error) {
	if end <= 0 || end > len(addresses) {
		end = len(addresses)
	}
	if start < 0 || start > end {
		return nil, fmt.Errorf("invalid window [%d, %d) over %d addresses", start, end, len(addresses))
	}
	return addresses[start:end], nil
}
