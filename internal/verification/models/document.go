package models

import (
	"fmt"
	"strings"
)

// DocumentClass is the declared type of an uploaded document. It drives
// provider routing, required-field validation and the review gate.
type DocumentClass string

const (
	ClassBankStatement    DocumentClass = "bank_statement"
	ClassPayslip          DocumentClass = "payslip"
	ClassPassport         DocumentClass = "passport"
	ClassDrivingLicence   DocumentClass = "driving_licence"
	ClassUtilityBill      DocumentClass = "utility_bill"
	ClassMortgageApproval DocumentClass = "mortgage_approval"
	ClassPropertyContract DocumentClass = "property_contract"
	ClassHTBApplication   DocumentClass = "htb_application"
	ClassProofOfFunds     DocumentClass = "proof_of_funds"
	ClassTaxReturn        DocumentClass = "tax_return"
)

var knownClasses = map[DocumentClass]struct{}{
	ClassBankStatement:    {},
	ClassPayslip:          {},
	ClassPassport:         {},
	ClassDrivingLicence:   {},
	ClassUtilityBill:      {},
	ClassMortgageApproval: {},
	ClassPropertyContract: {},
	ClassHTBApplication:   {},
	ClassProofOfFunds:     {},
	ClassTaxReturn:        {},
}

// IsValid reports whether c is one of the supported document classes.
func (c DocumentClass) IsValid() bool {
	_, ok := knownClasses[c]
	return ok
}

func (c DocumentClass) String() string {
	return string(c)
}

// ParseDocumentClass normalizes and validates a class name.
func ParseDocumentClass(s string) (DocumentClass, error) {
	c := DocumentClass(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return "", &ValidationError{Field: "document_class", Reason: "document class is required"}
	}
	if !c.IsValid() {
		return "", &ValidationError{Field: "document_class", Reason: fmt.Sprintf("unsupported document class %q", s)}
	}
	return c, nil
}
