package service

import (
	"strings"

	"docverify/internal/verification/models"
)

// DefaultRequiredFields lists the extracted fields each class should carry.
// Missing fields are a compliance warning, never a failure.
func DefaultRequiredFields() map[models.DocumentClass][]string {
	return map[models.DocumentClass][]string{
		models.ClassBankStatement:    {"account_holder", "statement_period"},
		models.ClassPayslip:          {"employee_name", "employer", "pay_period"},
		models.ClassPassport:         {"full_name", "document_number", "date_of_birth", "expiry_date"},
		models.ClassDrivingLicence:   {"full_name", "licence_number", "expiry_date"},
		models.ClassUtilityBill:      {"account_holder", "address", "bill_date"},
		models.ClassMortgageApproval: {"lender", "applicant_name", "loan_amount"},
		models.ClassPropertyContract: {"property_address", "parties"},
		models.ClassHTBApplication:   {"applicant_name", "property_address"},
		models.ClassProofOfFunds:     {"account_holder", "available_balance"},
		models.ClassTaxReturn:        {"taxpayer_name", "tax_year"},
	}
}

func missingFields(ext *models.Extraction, required []string) []string {
	var missing []string
	for _, f := range required {
		v, ok := ext.Fields[f]
		if !ok || v == nil {
			missing = append(missing, f)
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

func joinFields(fields []string) string {
	return strings.Join(fields, ", ")
}
