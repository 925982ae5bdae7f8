// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibkrflexquery

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// sensitiveAttributeToPrefix maps attributes that identify an account, order,
// or execution to the digit that prefixes their replacements.
var sensitiveAttributeToPrefix = map[string]string{
	"accountId":        "1",
	"acctAlias":        "2",
	"conid":            "3",
	"tradeID":          "4",
	"transactionID":    "5",
	"ibOrderID":        "6",
	"ibExecID":         "7",
	"brokerageOrderID": "8",
	"orderReference":   "9",
	"clientReference":  "10",
	"origOrderID":      "11",
	"origTradeID":      "12",
	"clearingFirmID":   "13",
}

// Anonymize replaces identifying attribute values in Flex Query XML so that
// statements can be shared as test data.
//
// Each distinct value of a sensitive attribute is replaced by the attribute's
// prefix followed by a zero-padded sequence number, keeping the original length
// where possible. Equal inputs map to equal outputs within one call, so trades
// and the cash transactions that reference them stay linked and ids stay unique.
// Empty values are left empty.
func Anonymize(data []byte) ([]byte, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var buffer bytes.Buffer
	encoder := xml.NewEncoder(&buffer)
	pseudonymizer := newPseudonymizer()
	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading xml: %w", err)
		}
		if startElement, ok := token.(xml.StartElement); ok {
			startElement = startElement.Copy()
			for i, attr := range startElement.Attr {
				if prefix, ok := sensitiveAttributeToPrefix[attr.Name.Local]; ok && attr.Value != "" {
					startElement.Attr[i].Value = pseudonymizer.replace(attr.Name.Local, prefix, attr.Value)
				}
			}
			token = startElement
		}
		if err := encoder.EncodeToken(token); err != nil {
			return nil, fmt.Errorf("writing xml: %w", err)
		}
	}
	if err := encoder.Flush(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// *** PRIVATE ***

type pseudonymizer struct {
	// Keyed by attribute name, so tradeID on trades and on cash transactions
	// share one mapping.
	nameToValueToReplacement map[string]map[string]string
}

func newPseudonymizer() *pseudonymizer {
	return &pseudonymizer{
		nameToValueToReplacement: make(map[string]map[string]string),
	}
}

func (p *pseudonymizer) replace(name string, prefix string, value string) string {
	valueToReplacement, ok := p.nameToValueToReplacement[name]
	if !ok {
		valueToReplacement = make(map[string]string)
		p.nameToValueToReplacement[name] = valueToReplacement
	}
	if replacement, ok := valueToReplacement[value]; ok {
		return replacement
	}
	sequence := strconv.Itoa(len(valueToReplacement) + 1)
	padding := max(len(value)-len(prefix)-len(sequence), 0)
	replacement := prefix + strings.Repeat("0", padding) + sequence
	// Account ids keep their letter prefix (e.g., "U") so they still look like account ids.
	if name == "accountId" && len(value) > 0 && (value[0] < '0' || value[0] > '9') {
		replacement = value[:1] + replacement[1:]
	}
	valueToReplacement[value] = replacement
	return replacement
}
