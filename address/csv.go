package address

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseAddressCSV parses one address CSV row into an Address. The input
// grammar is "number, street, [substreet,] town, state" with explicit
// length dispatch: a 4-field row has no substreet, a 5-field row does. This
// is an explicit length dispatch rather than a length-compared-to-integer
// check, which would conflate "no substreet" with a parse error.
func ParseAddressCSV(row string) (Address, error) {
	fields := strings.Split(row, ",")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}

	switch len(fields) {
	case 4:
		return Address{
			Number: fields[0],
			Street: fields[1],
			Town:   fields[2],
			State:  fields[3],
		}, nil
	case 5:
		return Address{
			Number:    fields[0],
			Street:    fields[1],
			Substreet: fields[2],
			Town:      fields[3],
			State:     fields[4],
		}, nil
	default:
		return Address{}, fmt.Errorf(
			"address: CSV row has %d fields, want 4 (number,street,town,state) or 5 (number,street,substreet,town,state): %q",
			len(fields), row)
	}
}

// ParseAddressCSVFile reads one address per non-blank line from r, in
// ParseAddressCSV's grammar, for the mock-election orchestrator's address
// book.
func ParseAddressCSVFile(r io.Reader) ([]Address, error) {
	var out []Address
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		a, err := ParseAddressCSV(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("address: reading csv: %w", err)
	}
	return out, nil
}
