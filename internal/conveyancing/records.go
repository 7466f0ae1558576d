package conveyancing

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID holds a record id. The API returns numeric ids on some endpoints and string ids on others.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	s, err := unmarshalScalar(b)
	if err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = ID(s)
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Text holds a value the API sends either as a string or as a number, such as
// invoice numbers ("INV-2026-001" or 1042) and money amounts ("£250,000" or 250000).
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	s, err := unmarshalScalar(b)
	if err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

func (t Text) String() string {
	return string(t)
}

// unmarshalScalar returns a JSON string or number as a string. null gives "".
func unmarshalScalar(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", fmt.Errorf("expected a string or a number: %w", err)
	}
	return n.String(), nil
}

type Case struct {
	ID              ID              `json:"id"`
	Reference       string          `json:"reference,omitempty"`
	Status          string          `json:"status,omitempty"`
	PropertyAddress json.RawMessage `json:"property_address,omitempty"`
	BranchID        ID              `json:"branch_id,omitempty"`
	CreatedAt       string          `json:"created_at,omitempty"`
}

type MortgageApplication struct {
	ID         ID     `json:"id"`
	CaseID     ID     `json:"case_id,omitempty"`
	BankID     ID     `json:"bank_id,omitempty"`
	BrokerID   ID     `json:"broker_id,omitempty"`
	Status     string `json:"status,omitempty"`
	LoanAmount Text   `json:"loan_amount,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

type Invoice struct {
	ID        ID     `json:"id"`
	CaseID    ID     `json:"case_id,omitempty"`
	Number    Text   `json:"number,omitempty"`
	Status    string `json:"status,omitempty"`
	Total     Text   `json:"total,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type Appointment struct {
	ID        ID     `json:"id"`
	CaseID    ID     `json:"case_id,omitempty"`
	StartsAt  string `json:"starts_at,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type Broker struct {
	ID    ID     `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type Branch struct {
	ID   ID     `json:"id"`
	Name string `json:"name,omitempty"`
}

type Bank struct {
	ID   ID     `json:"id"`
	Name string `json:"name,omitempty"`
}
